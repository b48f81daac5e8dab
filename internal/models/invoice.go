package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice operation types, inferred from the CFOP codes of the items.
const (
	OperationPurchase = "PURCHASE"
	OperationSale     = "SALE"
)

// Invoice is a persisted electronic invoice (NFe). The access key is the
// 44-digit fiscal identifier and is unique: a second upload of the same
// document is rejected.
type Invoice struct {
	ID            string          `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Number        string          `gorm:"index" json:"number"`
	Series        string          `json:"series"`
	AccessKey     string          `gorm:"uniqueIndex;not null" json:"accessKey"`
	Status        string          `gorm:"default:'PROCESSED'" json:"status"`
	IssueDate     *time.Time      `json:"issueDate,omitempty"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(14,2)" json:"totalAmount"`
	OperationType string          `json:"operationType"`

	SupplierID     string  `gorm:"index;type:uuid" json:"supplierId"`
	UnitID         *string `gorm:"index;type:uuid" json:"unitId,omitempty"`
	ImportRecordID string  `gorm:"index;type:uuid" json:"importRecordId"`

	Supplier Supplier      `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	Items    []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Invoice) TableName() string {
	return "invoices"
}

// InvoiceItem is one processed line of an invoice.
type InvoiceItem struct {
	ID        string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	InvoiceID string `gorm:"index;type:uuid;not null" json:"invoiceId"`
	ProductID string `gorm:"index;type:uuid" json:"productId"`

	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(14,2)" json:"unitPrice"`
	LineTotal decimal.Decimal `gorm:"type:numeric(14,2)" json:"lineTotal"`

	Product ProductReference `gorm:"foreignKey:ProductID" json:"product,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (InvoiceItem) TableName() string {
	return "invoice_items"
}
