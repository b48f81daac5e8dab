package nfe

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/annaehugo/freepharma/internal/models"
)

// ExtractedInvoice is the structured form of one parsed NFe document. It is
// transient: produced fresh per parse and never persisted directly.
type ExtractedInvoice struct {
	AccessKey     string
	Number        string
	Series        string
	IssueDate     *time.Time
	TotalAmount   decimal.Decimal
	OperationType string // models.OperationPurchase or models.OperationSale

	Issuer    ExtractedIssuer
	Recipient ExtractedRecipient
	Items     []ExtractedItem
}

// ExtractedIssuer holds the emitter (supplier) block of the document.
type ExtractedIssuer struct {
	TaxID             string
	LegalName         string
	TradeName         string
	StateRegistration string
	Address           string
	Phone             string
	Email             string
}

// ExtractedRecipient holds the destination block of the document.
type ExtractedRecipient struct {
	TaxID   string
	Name    string
	Address string
}

// ExtractedItem is one line item of the document. Quantity carries integer
// semantics: the decimal quantity string is truncated at the decimal point.
type ExtractedItem struct {
	SupplierCode  string
	Name          string
	Description   string
	Barcode       string
	TaxCode       string // NCM, expected 8 digits
	OperationCode string // CFOP, expected 4 digits
	Unit          string
	Quantity      int
	UnitPrice     decimal.Decimal
	LineTotal     decimal.Decimal
	Lot           string
	ExpiryDate    *time.Time
}

// Store is the persistence surface the ingestion pipeline consumes. Lookups
// return (nil, nil) when no record matches.
type Store interface {
	FindSupplierByTaxID(ctx context.Context, taxID string) (*models.Supplier, error)
	SaveSupplier(ctx context.Context, s *models.Supplier) error

	FindProductByBarcode(ctx context.Context, barcode string) (*models.ProductReference, error)
	FindProductByExactName(ctx context.Context, name string) (*models.ProductReference, error)
	SaveProduct(ctx context.Context, p *models.ProductReference) error

	FindLinkByProductAndSupplier(ctx context.Context, productID, supplierID string) (*models.ProductSupplierLink, error)
	SaveLink(ctx context.Context, l *models.ProductSupplierLink) error

	FindStockByLinkUnitLot(ctx context.Context, linkID, unitID, lot string) (*models.StockRecord, error)
	SaveStock(ctx context.Context, s *models.StockRecord) error

	FindInvoiceByAccessKey(ctx context.Context, accessKey string) (*models.Invoice, error)
	SaveInvoice(ctx context.Context, inv *models.Invoice) error
	SaveInvoiceItem(ctx context.Context, item *models.InvoiceItem) error

	SaveInconsistency(ctx context.Context, inc *models.Inconsistency) error
	SaveImportRecord(ctx context.Context, rec *models.ImportRecord) error
}
