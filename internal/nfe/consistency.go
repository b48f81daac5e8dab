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
)

// Checker thresholds.
const (
	futureIssueGraceDays = 1
	staleIssueLimitDays  = 30
	nearExpiryDays       = 180
	pharmaTaxCodePrefix  = "30"
)

// totalTolerance is the largest invoice-total vs item-sum difference that is
// not reported.
var totalTolerance = decimal.RequireFromString("0.01")

// pharmaKeywords mark an item as a regulated pharmaceutical good when its
// name contains any of them (names come in Portuguese on NFe documents).
var pharmaKeywords = []string{
	"medicament", "remedio", "farmaco", "comprimido",
	"capsula", "xarope", "pomada", "creme",
}

// Checker runs the rule battery over an extracted invoice. Every violated
// rule persists one PENDING Inconsistency tied to the invoice; checking never
// aborts ingestion, and a failed write only costs that one finding.
type Checker struct {
	store Store
	now   func() time.Time
	log   zerolog.Logger
}

// NewChecker creates a consistency checker backed by the given store.
func NewChecker(store Store) *Checker {
	return &Checker{
		store: store,
		now:   time.Now,
		log:   logger.WithComponent("consistency-checker"),
	}
}

// Check evaluates every rule for the invoice and its items and returns the
// number of inconsistencies recorded.
func (c *Checker) Check(ctx context.Context, inv *ExtractedInvoice, invoiceID string) int {
	count := 0
	record := func(incType, severity, description string) {
		if c.report(ctx, invoiceID, incType, severity, description) {
			count++
		}
	}

	c.checkTotal(inv, record)
	c.checkIssueDate(inv, record)
	for _, item := range inv.Items {
		c.checkItem(item, record)
		c.checkPharmaceutical(item, record)
	}

	return count
}

type recordFunc func(incType, severity, description string)

func (c *Checker) checkTotal(inv *ExtractedInvoice, record recordFunc) {
	sum := decimal.Zero
	for _, item := range inv.Items {
		sum = sum.Add(item.LineTotal)
	}
	if inv.TotalAmount.Sub(sum).Abs().GreaterThan(totalTolerance) {
		record(models.IncValueMismatch, models.SeverityMedium,
			fmt.Sprintf("invoice total (%s) diverges from the sum of its items (%s)",
				inv.TotalAmount, sum))
	}
}

func (c *Checker) checkIssueDate(inv *ExtractedInvoice, record recordFunc) {
	if inv.IssueDate == nil {
		return
	}
	ageDays := int(c.now().Sub(*inv.IssueDate).Hours() / 24)
	if ageDays > staleIssueLimitDays {
		record(models.IncIssueDateStale, models.SeverityLow,
			fmt.Sprintf("invoice issued more than %d days ago: %s",
				staleIssueLimitDays, inv.IssueDate.Format("2006-01-02")))
	}
	if ageDays < -futureIssueGraceDays {
		record(models.IncIssueDateFuture, models.SeverityHigh,
			fmt.Sprintf("invoice carries a future issue date: %s",
				inv.IssueDate.Format("2006-01-02")))
	}
}

func (c *Checker) checkItem(item ExtractedItem, record recordFunc) {
	if !isDigits(item.TaxCode, 8) {
		record(models.IncInvalidTaxCode, models.SeverityHigh,
			fmt.Sprintf("invalid NCM for product %q: %q", item.Name, item.TaxCode))
	}
	if !isDigits(item.OperationCode, 4) {
		record(models.IncInvalidOperationCode, models.SeverityHigh,
			fmt.Sprintf("invalid CFOP for product %q: %q", item.Name, item.OperationCode))
	}
	if item.Barcode != "" && item.Barcode != BarcodePlaceholder && !ValidateEAN13(item.Barcode) {
		record(models.IncInvalidBarcode, models.SeverityMedium,
			fmt.Sprintf("invalid EAN/GTIN for product %q: %q", item.Name, item.Barcode))
	}
	if !item.UnitPrice.IsPositive() {
		record(models.IncInvalidUnitPrice, models.SeverityHigh,
			fmt.Sprintf("invalid unit price for product %q", item.Name))
	}
	if item.Quantity <= 0 {
		record(models.IncInvalidQuantity, models.SeverityHigh,
			fmt.Sprintf("invalid quantity for product %q", item.Name))
	}
	if IsPharmaceutical(item) && item.Lot == "" {
		record(models.IncMissingLot, models.SeverityHigh,
			fmt.Sprintf("lot is mandatory for pharmaceutical product %q", item.Name))
	}
}

func (c *Checker) checkPharmaceutical(item ExtractedItem, record recordFunc) {
	if !IsPharmaceutical(item) {
		return
	}
	if !strings.HasPrefix(item.TaxCode, pharmaTaxCodePrefix) {
		record(models.IncTaxCodeMismatch, models.SeverityMedium,
			fmt.Sprintf("NCM %q does not match a pharmaceutical product: %q",
				item.TaxCode, item.Name))
	}
	if item.ExpiryDate != nil {
		daysLeft := int(item.ExpiryDate.Sub(c.now()).Hours() / 24)
		if daysLeft < nearExpiryDays {
			record(models.IncNearExpiry, models.SeverityMedium,
				fmt.Sprintf("product %q close to expiry: %s",
					item.Name, item.ExpiryDate.Format("2006-01-02")))
		}
	}
}

// report persists one finding. Returns false when the write failed; the
// checker keeps going either way.
func (c *Checker) report(ctx context.Context, invoiceID, incType, severity, description string) bool {
	inc := &models.Inconsistency{
		Type:        incType,
		Description: description,
		Severity:    severity,
		Status:      models.IncPending,
		InvoiceID:   invoiceID,
		DetectedAt:  c.now(),
	}
	if err := c.store.SaveInconsistency(ctx, inc); err != nil {
		c.log.Error().Err(err).Str("type", incType).Msg("failed to persist inconsistency")
		return false
	}
	return true
}

// IsPharmaceutical reports whether an item is a regulated good: NCM chapter
// 30 or a pharmaceutical keyword in the product name.
func IsPharmaceutical(item ExtractedItem) bool {
	if strings.HasPrefix(item.TaxCode, pharmaTaxCodePrefix) {
		return true
	}
	name := strings.ToLower(item.Name)
	for _, kw := range pharmaKeywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

// ValidateEAN13 checks the EAN-13 check digit: weighted mod-10 over the first
// 12 digits with alternating weights 1 and 3.
func ValidateEAN13(barcode string) bool {
	if len(barcode) != 13 {
		return false
	}
	sum := 0
	for i := 0; i < 12; i++ {
		d := barcode[i]
		if d < '0' || d > '9' {
			return false
		}
		digit := int(d - '0')
		if i%2 == 1 {
			digit *= 3
		}
		sum += digit
	}
	last := barcode[12]
	if last < '0' || last > '9' {
		return false
	}
	return (10-sum%10)%10 == int(last-'0')
}

func isDigits(s string, length int) bool {
	if len(s) != length {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
