package nfe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/annaehugo/freepharma/internal/logger"
	"github.com/annaehugo/freepharma/internal/models"
	"github.com/annaehugo/freepharma/internal/utils"
)

// Processor turns an extracted invoice into durable master data, stock
// movements and a persisted invoice. Items are processed sequentially in
// document order; a failure in one item never aborts the rest.
type Processor struct {
	store   Store
	checker *Checker
	now     func() time.Time
	log     zerolog.Logger
}

// NewProcessor creates a processor backed by the given store.
func NewProcessor(store Store) *Processor {
	return &Processor{
		store:   store,
		checker: NewChecker(store),
		now:     time.Now,
		log:     logger.WithComponent("nfe-processor"),
	}
}

// ItemResult is the outcome of one line item: either the persisted invoice
// item or the error that stopped it.
type ItemResult struct {
	SupplierCode string
	Item         *models.InvoiceItem
	Err          error
}

// ProcessOutcome aggregates everything one processing run produced.
type ProcessOutcome struct {
	Succeeded       bool
	Message         string
	Supplier        *models.Supplier
	Invoice         *models.Invoice
	Items           []ItemResult
	Inconsistencies int
}

// ProcessedCount returns how many items were fully processed.
func (o *ProcessOutcome) ProcessedCount() int {
	n := 0
	for _, r := range o.Items {
		if r.Err == nil {
			n++
		}
	}
	return n
}

// Errors returns one message per failed item.
func (o *ProcessOutcome) Errors() []string {
	var errs []string
	for _, r := range o.Items {
		if r.Err != nil {
			errs = append(errs, fmt.Sprintf("item %s: %v", r.SupplierCode, r.Err))
		}
	}
	return errs
}

// Process reconciles master data, applies stock deltas, persists the invoice
// and its items, and runs the consistency checker. Per-item failures are
// collected; only supplier or invoice persistence failures mark the whole
// run as not succeeded.
func (p *Processor) Process(ctx context.Context, inv *ExtractedInvoice, unit *models.Unit, record *models.ImportRecord) *ProcessOutcome {
	outcome := &ProcessOutcome{}

	supplier, err := p.reconcileSupplier(ctx, inv.Issuer)
	if err != nil {
		outcome.Message = fmt.Sprintf("supplier reconciliation failed: %v", err)
		return outcome
	}
	outcome.Supplier = supplier

	invoice, err := p.createInvoice(ctx, inv, supplier, unit, record)
	if err != nil {
		outcome.Message = fmt.Sprintf("invoice persistence failed: %v", err)
		return outcome
	}
	outcome.Invoice = invoice

	for _, item := range inv.Items {
		result := ItemResult{SupplierCode: item.SupplierCode}
		invoiceItem, err := p.processItem(ctx, item, inv.OperationType, supplier, unit, invoice, outcome)
		if err != nil {
			result.Err = err
			if p.checker.report(ctx, invoice.ID, models.IncItemProcessingError, models.SeverityHigh,
				fmt.Sprintf("failed to process item %s: %v", item.SupplierCode, err)) {
				outcome.Inconsistencies++
			}
			p.log.Warn().Err(err).Str("item", item.SupplierCode).Msg("item processing failed")
		} else {
			result.Item = invoiceItem
		}
		outcome.Items = append(outcome.Items, result)
	}

	outcome.Inconsistencies += p.checker.Check(ctx, inv, invoice.ID)

	outcome.Succeeded = true
	outcome.Message = fmt.Sprintf("NFe processed successfully, %d of %d items processed",
		outcome.ProcessedCount(), len(inv.Items))
	return outcome
}

func (p *Processor) processItem(ctx context.Context, item ExtractedItem, operationType string,
	supplier *models.Supplier, unit *models.Unit, invoice *models.Invoice, outcome *ProcessOutcome) (*models.InvoiceItem, error) {

	link, err := p.reconcileLink(ctx, item, supplier)
	if err != nil {
		return nil, err
	}

	invoiceItem := &models.InvoiceItem{
		InvoiceID: invoice.ID,
		ProductID: link.ProductID,
		Quantity:  item.Quantity,
		UnitPrice: item.UnitPrice,
		LineTotal: item.LineTotal,
	}
	if err := p.store.SaveInvoiceItem(ctx, invoiceItem); err != nil {
		return nil, err
	}

	if unit != nil {
		if err := p.applyStock(ctx, link, item, unit, operationType, invoice.ID, outcome); err != nil {
			return nil, err
		}
	}

	return invoiceItem, nil
}

// reconcileSupplier looks the issuer up by tax id and either merge-updates
// the existing record or creates a fresh ACTIVE one.
func (p *Processor) reconcileSupplier(ctx context.Context, issuer ExtractedIssuer) (*models.Supplier, error) {
	supplier, err := p.store.FindSupplierByTaxID(ctx, issuer.TaxID)
	if err != nil {
		return nil, err
	}

	if supplier != nil {
		mergeSupplier(supplier, issuer)
		if err := p.store.SaveSupplier(ctx, supplier); err != nil {
			return nil, err
		}
		return supplier, nil
	}

	city, state := parseCityState(issuer.Address)
	supplier = &models.Supplier{
		TaxID:             issuer.TaxID,
		LegalName:         issuer.LegalName,
		TradeName:         issuer.TradeName,
		StateRegistration: issuer.StateRegistration,
		Address:           issuer.Address,
		City:              city,
		State:             state,
		Phone:             issuer.Phone,
		Email:             issuer.Email,
		Status:            models.SupplierActive,
		RegisteredAt:      p.now(),
	}
	if err := p.store.SaveSupplier(ctx, supplier); err != nil {
		return nil, err
	}
	return supplier, nil
}

// mergeSupplier is non-destructive: only fields that arrive non-empty and
// changed overwrite the stored value.
func mergeSupplier(supplier *models.Supplier, issuer ExtractedIssuer) {
	if issuer.TradeName != "" && issuer.TradeName != supplier.TradeName {
		supplier.TradeName = issuer.TradeName
	}
	if issuer.Address != "" && issuer.Address != supplier.Address {
		supplier.Address = issuer.Address
	}
	if issuer.Phone != "" && issuer.Phone != supplier.Phone {
		supplier.Phone = issuer.Phone
	}
	if issuer.Email != "" && issuer.Email != supplier.Email {
		supplier.Email = issuer.Email
	}
}

// parseCityState pulls city and state back out of the formatted address
// ("street, number - district, city - state CEP: zip").
func parseCityState(address string) (string, string) {
	if !strings.Contains(address, ",") {
		return "", ""
	}
	parts := strings.Split(address, ",")
	last := strings.TrimSpace(parts[len(parts)-1])
	if cep := strings.Index(last, " CEP: "); cep >= 0 {
		last = last[:cep]
	}
	city, state, found := strings.Cut(last, " - ")
	if !found {
		return "", ""
	}
	return strings.TrimSpace(city), strings.TrimSpace(state)
}

// resolveProduct finds the reference product: barcode wins, then exact name,
// otherwise a new product is minted with a generated internal code. No fuzzy
// matching.
func (p *Processor) resolveProduct(ctx context.Context, item ExtractedItem) (*models.ProductReference, error) {
	if item.Barcode != "" && item.Barcode != BarcodePlaceholder {
		product, err := p.store.FindProductByBarcode(ctx, item.Barcode)
		if err != nil {
			return nil, err
		}
		if product != nil {
			return product, nil
		}
	}

	if item.Name != "" {
		product, err := p.store.FindProductByExactName(ctx, item.Name)
		if err != nil {
			return nil, err
		}
		if product != nil {
			return product, nil
		}
	}

	unit := item.Unit
	if unit == "" {
		unit = "UN"
	}
	product := &models.ProductReference{
		InternalCode: utils.GenerateInternalCode(),
		Name:         item.Name,
		Description:  item.Description,
		Barcode:      item.Barcode,
		TaxCode:      item.TaxCode,
		Unit:         unit,
		ExpiryDate:   item.ExpiryDate,
		Status:       "ACTIVE",
	}
	if err := p.store.SaveProduct(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (p *Processor) reconcileLink(ctx context.Context, item ExtractedItem, supplier *models.Supplier) (*models.ProductSupplierLink, error) {
	product, err := p.resolveProduct(ctx, item)
	if err != nil {
		return nil, err
	}

	link, err := p.store.FindLinkByProductAndSupplier(ctx, product.ID, supplier.ID)
	if err != nil {
		return nil, err
	}

	if link != nil {
		if item.UnitPrice.IsPositive() {
			link.PurchasePrice = item.UnitPrice
			now := p.now()
			link.LastPurchaseAt = &now
		}
		if err := p.store.SaveLink(ctx, link); err != nil {
			return nil, err
		}
		link.Product = *product
		return link, nil
	}

	now := p.now()
	link = &models.ProductSupplierLink{
		ProductID:     product.ID,
		SupplierID:    supplier.ID,
		SupplierCode:  item.SupplierCode,
		SupplierName:  item.Name,
		Barcode:       item.Barcode,
		Unit:          item.Unit,
		PurchasePrice: item.UnitPrice,
		LastPurchaseAt: &now,
	}
	if err := p.store.SaveLink(ctx, link); err != nil {
		return nil, err
	}
	link.Product = *product
	return link, nil
}

// applyStock applies the item quantity to the (link, unit, lot) stock record:
// purchases add, sales subtract. Quantity may go negative on oversell; that
// is allowed and flagged with a NEGATIVE_STOCK inconsistency.
func (p *Processor) applyStock(ctx context.Context, link *models.ProductSupplierLink, item ExtractedItem,
	unit *models.Unit, operationType, invoiceID string, outcome *ProcessOutcome) error {

	stock, err := p.store.FindStockByLinkUnitLot(ctx, link.ID, unit.ID, item.Lot)
	if err != nil {
		return err
	}
	if stock == nil {
		stock = &models.StockRecord{
			LinkID:     link.ID,
			ProductID:  link.ProductID,
			UnitID:     unit.ID,
			Lot:        item.Lot,
			Quantity:   0,
			ExpiryDate: item.ExpiryDate,
		}
	}

	switch operationType {
	case models.OperationPurchase:
		stock.Quantity += item.Quantity
	case models.OperationSale:
		stock.Quantity -= item.Quantity
	}

	if item.UnitPrice.IsPositive() {
		stock.UnitValue = item.UnitPrice
		stock.TotalValue = item.UnitPrice.Mul(decimalFromInt(stock.Quantity))
	}
	stock.LastMovementAt = p.now()

	if err := p.store.SaveStock(ctx, stock); err != nil {
		return err
	}

	if stock.Quantity < 0 {
		if p.checker.report(ctx, invoiceID, models.IncNegativeStock, models.SeverityHigh,
			fmt.Sprintf("stock went negative for product %q, lot %q: %d",
				item.Name, item.Lot, stock.Quantity)) {
			outcome.Inconsistencies++
		}
	}

	return nil
}

func (p *Processor) createInvoice(ctx context.Context, inv *ExtractedInvoice, supplier *models.Supplier,
	unit *models.Unit, record *models.ImportRecord) (*models.Invoice, error) {

	invoice := &models.Invoice{
		Number:         inv.Number,
		Series:         inv.Series,
		AccessKey:      inv.AccessKey,
		Status:         "PROCESSED",
		IssueDate:      inv.IssueDate,
		TotalAmount:    inv.TotalAmount,
		OperationType:  inv.OperationType,
		SupplierID:     supplier.ID,
		ImportRecordID: record.ID,
	}
	if unit != nil {
		invoice.UnitID = &unit.ID
	}
	if err := p.store.SaveInvoice(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

func decimalFromInt(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}
