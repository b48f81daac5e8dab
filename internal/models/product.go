package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductReference is the canonical product record, shared across suppliers.
// Resolution order during ingestion: barcode, exact name, freshly minted.
type ProductReference struct {
	ID           string     `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	InternalCode string     `gorm:"uniqueIndex;not null" json:"internalCode"`
	Name         string     `gorm:"index" json:"name"`
	Description  string     `json:"description"`
	Barcode      string     `gorm:"index" json:"barcode"` // EAN-13/GTIN
	TaxCode      string     `json:"taxCode"`              // NCM, 8 digits
	Unit         string     `gorm:"default:'UN'" json:"unit"`
	Category     string     `json:"category"`
	ExpiryDate   *time.Time `json:"expiryDate,omitempty"`
	Status       string     `gorm:"default:'ACTIVE'" json:"status"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ProductReference) TableName() string {
	return "product_references"
}

// ProductSupplierLink ties a product to one supplier's catalog entry. The
// purchase price is refreshed on every purchase import.
type ProductSupplierLink struct {
	ID             string          `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ProductID      string          `gorm:"uniqueIndex:idx_product_supplier;type:uuid;not null" json:"productId"`
	SupplierID     string          `gorm:"uniqueIndex:idx_product_supplier;type:uuid;not null" json:"supplierId"`
	SupplierCode   string          `json:"supplierCode"` // product code in the supplier's catalog
	SupplierName   string          `json:"supplierName"` // product name as the supplier writes it
	Barcode        string          `json:"barcode"`
	Unit           string          `json:"unit"`
	PurchasePrice  decimal.Decimal `gorm:"type:numeric(14,2)" json:"purchasePrice"`
	LastPurchaseAt *time.Time      `json:"lastPurchaseAt,omitempty"`

	Product  ProductReference `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Supplier Supplier         `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ProductSupplierLink) TableName() string {
	return "product_supplier_links"
}
