package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Stock adjustment direction.
const (
	AdjustmentIn  = "IN"
	AdjustmentOut = "OUT"
)

// StockRecord holds the current quantity of one product-supplier link at one
// unit, per lot. The empty lot is a distinct key. Invariant kept by every
// mutation path: TotalValue = Quantity * UnitValue whenever UnitValue is set.
type StockRecord struct {
	ID         string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	LinkID     string `gorm:"uniqueIndex:idx_stock_link_unit_lot;type:uuid;not null" json:"linkId"`
	ProductID  string `gorm:"index;type:uuid" json:"productId"`
	UnitID     string `gorm:"uniqueIndex:idx_stock_link_unit_lot;type:uuid;not null" json:"unitId"`
	Lot        string `gorm:"uniqueIndex:idx_stock_link_unit_lot" json:"lot"`
	Quantity   int    `json:"quantity"`

	UnitValue  decimal.Decimal `gorm:"type:numeric(14,2)" json:"unitValue"`
	TotalValue decimal.Decimal `gorm:"type:numeric(14,2)" json:"totalValue"`

	ExpiryDate     *time.Time `json:"expiryDate,omitempty"`
	LastMovementAt time.Time  `json:"lastMovementAt"`
	Blocked        bool       `gorm:"default:false" json:"blocked"`
	BlockReason    string     `json:"blockReason,omitempty"`

	Link    ProductSupplierLink `gorm:"foreignKey:LinkID" json:"link,omitempty"`
	Product ProductReference    `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Unit    Unit                `gorm:"foreignKey:UnitID" json:"unit,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (StockRecord) TableName() string {
	return "stock_records"
}

// StockAdjustment is the audit record of one manual stock correction.
type StockAdjustment struct {
	ID            string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	StockRecordID string `gorm:"index;type:uuid;not null" json:"stockRecordId"`

	PreviousQuantity int    `json:"previousQuantity"`
	NewQuantity      int    `json:"newQuantity"`
	DeltaQuantity    int    `json:"deltaQuantity"`
	Type             string `json:"type"` // IN or OUT
	Reason           string `json:"reason"`

	PreviousUnitValue decimal.Decimal `gorm:"type:numeric(14,2)" json:"previousUnitValue"`
	NewUnitValue      decimal.Decimal `gorm:"type:numeric(14,2)" json:"newUnitValue"`

	UserID     string    `json:"userId,omitempty"`
	AdjustedAt time.Time `json:"adjustedAt"`

	StockRecord StockRecord `gorm:"foreignKey:StockRecordID" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
}

func (StockAdjustment) TableName() string {
	return "stock_adjustments"
}
