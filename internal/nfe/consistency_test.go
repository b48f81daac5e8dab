package nfe

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/annaehugo/freepharma/internal/models"
)

var checkerNow = time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

func newTestChecker(store *fakeStore) *Checker {
	c := NewChecker(store)
	c.now = func() time.Time { return checkerNow }
	return c
}

// cleanItem returns a pharmaceutical item that violates no rule as of
// checkerNow.
func cleanItem() ExtractedItem {
	expiry := checkerNow.AddDate(2, 0, 0)
	return ExtractedItem{
		SupplierCode:  "FD-001",
		Name:          "Dipirona 500mg Comprimido",
		Barcode:       "7898100170104",
		TaxCode:       "30049099",
		OperationCode: "1102",
		Unit:          "CX",
		Quantity:      10,
		UnitPrice:     decimal.RequireFromString("15.50"),
		LineTotal:     decimal.RequireFromString("155.00"),
		Lot:           "L2024A",
		ExpiryDate:    &expiry,
	}
}

func cleanInvoice() *ExtractedInvoice {
	issued := checkerNow.AddDate(0, 0, -2)
	item := cleanItem()
	return &ExtractedInvoice{
		AccessKey:   sampleAccessKey,
		Number:      "4655",
		Series:      "1",
		IssueDate:   &issued,
		TotalAmount: item.LineTotal,
		Items:       []ExtractedItem{item},
	}
}

func TestCheckCleanInvoice(t *testing.T) {
	store := newFakeStore()
	checker := newTestChecker(store)

	if got := checker.Check(context.Background(), cleanInvoice(), "inv-1"); got != 0 {
		t.Errorf("Check() = %d findings, want 0: %+v", got, store.incs)
	}
}

func TestCheckTotalMismatch(t *testing.T) {
	store := newFakeStore()
	checker := newTestChecker(store)

	inv := cleanInvoice()
	inv.TotalAmount = decimal.RequireFromString("200.00")

	if got := checker.Check(context.Background(), inv, "inv-1"); got != 1 {
		t.Fatalf("Check() = %d findings, want 1", got)
	}
	findings := store.findingsOfType(models.IncValueMismatch)
	if len(findings) != 1 {
		t.Fatalf("VALUE_MISMATCH findings = %d, want 1", len(findings))
	}
	if findings[0].Severity != models.SeverityMedium {
		t.Errorf("severity = %q, want MEDIUM", findings[0].Severity)
	}
	if findings[0].Status != models.IncPending {
		t.Errorf("status = %q, want PENDING", findings[0].Status)
	}
	if findings[0].InvoiceID != "inv-1" {
		t.Errorf("invoiceID = %q, want inv-1", findings[0].InvoiceID)
	}
}

func TestCheckTotalWithinTolerance(t *testing.T) {
	store := newFakeStore()
	checker := newTestChecker(store)

	inv := cleanInvoice()
	inv.TotalAmount = inv.TotalAmount.Add(decimal.RequireFromString("0.01"))

	if got := checker.Check(context.Background(), inv, "inv-1"); got != 0 {
		t.Errorf("Check() = %d findings, want 0 within tolerance", got)
	}
}

func TestCheckIssueDate(t *testing.T) {
	tests := []struct {
		name     string
		issued   time.Time
		wantType string
		wantSev  string
	}{
		{"stale", checkerNow.AddDate(0, 0, -31), models.IncIssueDateStale, models.SeverityLow},
		{"future", checkerNow.AddDate(0, 0, 3), models.IncIssueDateFuture, models.SeverityHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			checker := newTestChecker(store)

			inv := cleanInvoice()
			issued := tt.issued
			inv.IssueDate = &issued

			if got := checker.Check(context.Background(), inv, "inv-1"); got != 1 {
				t.Fatalf("Check() = %d findings, want 1", got)
			}
			findings := store.findingsOfType(tt.wantType)
			if len(findings) != 1 {
				t.Fatalf("%s findings = %d, want 1", tt.wantType, len(findings))
			}
			if findings[0].Severity != tt.wantSev {
				t.Errorf("severity = %q, want %q", findings[0].Severity, tt.wantSev)
			}
		})
	}
}

func TestCheckMissingIssueDate(t *testing.T) {
	store := newFakeStore()
	checker := newTestChecker(store)

	inv := cleanInvoice()
	inv.IssueDate = nil

	if got := checker.Check(context.Background(), inv, "inv-1"); got != 0 {
		t.Errorf("Check() = %d findings, want 0 for missing issue date", got)
	}
}

func TestCheckItemRules(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*ExtractedItem)
		wantType string
		wantSev  string
	}{
		{"bad ncm length", func(i *ExtractedItem) { i.TaxCode = "3004" }, models.IncInvalidTaxCode, models.SeverityHigh},
		{"ncm with letters", func(i *ExtractedItem) { i.TaxCode = "3004909A" }, models.IncInvalidTaxCode, models.SeverityHigh},
		{"bad cfop", func(i *ExtractedItem) { i.OperationCode = "11" }, models.IncInvalidOperationCode, models.SeverityHigh},
		{"bad barcode", func(i *ExtractedItem) { i.Barcode = "7898100170106" }, models.IncInvalidBarcode, models.SeverityMedium},
		{"zero price", func(i *ExtractedItem) { i.UnitPrice = decimal.Zero }, models.IncInvalidUnitPrice, models.SeverityHigh},
		{"zero quantity", func(i *ExtractedItem) { i.Quantity = 0 }, models.IncInvalidQuantity, models.SeverityHigh},
		{"pharma without lot", func(i *ExtractedItem) { i.Lot = "" }, models.IncMissingLot, models.SeverityHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			checker := newTestChecker(store)

			inv := cleanInvoice()
			tt.mutate(&inv.Items[0])

			checker.Check(context.Background(), inv, "inv-1")

			findings := store.findingsOfType(tt.wantType)
			if len(findings) != 1 {
				t.Fatalf("%s findings = %d, want 1 (all: %+v)", tt.wantType, len(findings), store.incs)
			}
			if findings[0].Severity != tt.wantSev {
				t.Errorf("severity = %q, want %q", findings[0].Severity, tt.wantSev)
			}
		})
	}
}

func TestCheckBarcodePlaceholderAccepted(t *testing.T) {
	store := newFakeStore()
	checker := newTestChecker(store)

	inv := cleanInvoice()
	inv.Items[0].Barcode = BarcodePlaceholder

	checker.Check(context.Background(), inv, "inv-1")
	if findings := store.findingsOfType(models.IncInvalidBarcode); len(findings) != 0 {
		t.Errorf("placeholder barcode flagged: %+v", findings)
	}
}

func TestCheckPharmaceuticalNCMMismatch(t *testing.T) {
	store := newFakeStore()
	checker := newTestChecker(store)

	inv := cleanInvoice()
	// Pharmaceutical by name keyword, but NCM outside chapter 30.
	inv.Items[0].Name = "Xarope Infantil 120ml"
	inv.Items[0].TaxCode = "21069090"

	checker.Check(context.Background(), inv, "inv-1")
	findings := store.findingsOfType(models.IncTaxCodeMismatch)
	if len(findings) != 1 {
		t.Fatalf("TAX_CODE_MISMATCH findings = %d, want 1", len(findings))
	}
	if findings[0].Severity != models.SeverityMedium {
		t.Errorf("severity = %q, want MEDIUM", findings[0].Severity)
	}
}

func TestCheckNearExpiry(t *testing.T) {
	store := newFakeStore()
	checker := newTestChecker(store)

	inv := cleanInvoice()
	expiry := checkerNow.AddDate(0, 0, 90)
	inv.Items[0].ExpiryDate = &expiry

	checker.Check(context.Background(), inv, "inv-1")
	if findings := store.findingsOfType(models.IncNearExpiry); len(findings) != 1 {
		t.Errorf("NEAR_EXPIRY findings = %d, want 1", len(findings))
	}
}

func TestCheckSaveFailureDoesNotAbort(t *testing.T) {
	store := newFakeStore()
	store.saveInconsistencyErr = errSaveFailed
	checker := newTestChecker(store)

	inv := cleanInvoice()
	inv.TotalAmount = decimal.RequireFromString("999.00")

	if got := checker.Check(context.Background(), inv, "inv-1"); got != 0 {
		t.Errorf("Check() = %d, want 0 counted when persistence fails", got)
	}
}

func TestValidateEAN13(t *testing.T) {
	tests := []struct {
		barcode string
		want    bool
	}{
		{"7898100170104", true},
		{"4006381333931", true},
		{"7898100170106", false},
		{"1234567890123", false},
		{"789810017010", false},
		{"78981001701045", false},
		{"789810017010A", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidateEAN13(tt.barcode); got != tt.want {
			t.Errorf("ValidateEAN13(%q) = %v, want %v", tt.barcode, got, tt.want)
		}
	}
}

func TestIsPharmaceutical(t *testing.T) {
	tests := []struct {
		name    string
		taxCode string
		product string
		want    bool
	}{
		{"ncm chapter 30", "30049099", "Produto Generico", true},
		{"keyword medicamento", "21069090", "Medicamento Generico 10mg", true},
		{"keyword xarope", "21069090", "XAROPE EXPECTORANTE", true},
		{"keyword capsula", "21069090", "Vitamina D Capsula", true},
		{"cosmetic", "33049910", "Sabonete Liquido", false},
		{"food", "21069090", "Suplemento Proteico", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := ExtractedItem{TaxCode: tt.taxCode, Name: tt.product}
			if got := IsPharmaceutical(item); got != tt.want {
				t.Errorf("IsPharmaceutical() = %v, want %v", got, tt.want)
			}
		})
	}
}
