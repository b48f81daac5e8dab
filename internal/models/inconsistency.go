package models

import (
	"time"

	"gorm.io/gorm"
)

// Inconsistency types raised by the consistency checker.
const (
	IncValueMismatch          = "VALUE_MISMATCH"
	IncInvalidTaxCode         = "INVALID_TAX_CODE"
	IncInvalidOperationCode   = "INVALID_OPERATION_CODE"
	IncInvalidBarcode         = "INVALID_BARCODE"
	IncInvalidUnitPrice       = "INVALID_UNIT_PRICE"
	IncInvalidQuantity        = "INVALID_QUANTITY"
	IncIssueDateFuture        = "ISSUE_DATE_FUTURE"
	IncIssueDateStale         = "ISSUE_DATE_STALE"
	IncMissingLot             = "MISSING_LOT"
	IncTaxCodeMismatch        = "TAX_CODE_MISMATCH"
	IncNearExpiry             = "NEAR_EXPIRY"
	IncNegativeStock          = "NEGATIVE_STOCK"
	IncItemProcessingError    = "ITEM_PROCESSING_ERROR"
)

// Inconsistency severities.
const (
	SeverityLow      = "LOW"
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// Inconsistency statuses.
const (
	IncPending  = "PENDING"
	IncResolved = "RESOLVED"
	IncReopened = "REOPENED"
)

// Inconsistency is a non-blocking finding raised during ingestion (or manually).
// Resolved and reopened only by explicit operator action, never auto-deleted.
type Inconsistency struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Type        string `gorm:"index;not null" json:"type"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Status      string `gorm:"index;default:'PENDING'" json:"status"`

	InvoiceID string `gorm:"index;type:uuid;not null" json:"invoiceId"`

	DetectedAt      time.Time  `json:"detectedAt"`
	ResolvedAt      *time.Time `json:"resolvedAt,omitempty"`
	ResolutionNotes string     `json:"resolutionNotes,omitempty"`

	Invoice Invoice `gorm:"foreignKey:InvoiceID" json:"-"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Inconsistency) TableName() string {
	return "inconsistencies"
}
