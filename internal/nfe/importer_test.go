package nfe

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/annaehugo/freepharma/internal/models"
)

// buildNFe renders a complete one-item document with a current issue date and
// a far expiry, so ingesting it produces no findings.
func buildNFe(accessKey, cfop, destCNPJ string) []byte {
	issued := time.Now().Add(-2 * time.Hour).Format(time.RFC3339)
	expiry := time.Now().AddDate(2, 0, 0).Format("2006-01-02")
	return []byte(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<nfeProc versao="4.00">
  <NFe>
    <infNFe Id="NFe%s" versao="4.00">
      <ide><nNF>4655</nNF><serie>1</serie><dhEmi>%s</dhEmi></ide>
      <emit>
        <CNPJ>14200166000187</CNPJ>
        <xNome>Distribuidora Farma Ltda</xNome>
      </emit>
      <dest><CNPJ>%s</CNPJ><xNome>Farmacia Central</xNome></dest>
      <det nItem="1">
        <prod>
          <cProd>FD-001</cProd>
          <xProd>Dipirona 500mg Comprimido</xProd>
          <cEAN>7898100170104</cEAN>
          <NCM>30049099</NCM>
          <CFOP>%s</CFOP>
          <uCom>CX</uCom>
          <qCom>10.0000</qCom>
          <vUnCom>15.50</vUnCom>
          <vProd>155.00</vProd>
          <xLote>L2024A</xLote>
          <dVal>%s</dVal>
        </prod>
      </det>
      <total><ICMSTot><vNF>155.00</vNF></ICMSTot></total>
    </infNFe>
  </NFe>
</nfeProc>`, accessKey, issued, destCNPJ, cfop, expiry))
}

func uploadFor(data []byte) *Upload {
	return &Upload{
		Filename:    "nfe.xml",
		Size:        int64(len(data)),
		ContentType: "text/xml",
		Data:        data,
	}
}

func TestImportSuccess(t *testing.T) {
	store := newFakeStore()
	importer := NewImporter(store, 10<<20)
	data := buildNFe(sampleAccessKey, "1102", "11222333000155")

	result := importer.Import(context.Background(), uploadFor(data), testUnit())

	if result.Status != StatusSuccess {
		t.Fatalf("status = %q, want SUCCESS (message: %s)", result.Status, result.Message)
	}
	if result.ItemsProcessed != 1 {
		t.Errorf("itemsProcessed = %d, want 1", result.ItemsProcessed)
	}
	if result.InconsistenciesDetected != 0 {
		t.Errorf("inconsistenciesDetected = %d, want 0: %+v", result.InconsistenciesDetected, store.incs)
	}
	if result.InvoiceID == "" || result.SupplierID == "" {
		t.Errorf("result missing ids: %+v", result)
	}

	if len(store.records) != 1 {
		t.Fatalf("import records = %d, want 1", len(store.records))
	}
	record := store.records[0]
	if record.Status != models.ImportCompleted {
		t.Errorf("record status = %q, want COMPLETED", record.Status)
	}
	if record.ItemsInFile != 1 || record.ItemsProcessed != 1 || record.ItemsFailed != 0 {
		t.Errorf("record tallies = %d/%d/%d, want 1/1/0",
			record.ItemsInFile, record.ItemsProcessed, record.ItemsFailed)
	}
	if record.StartedAt == nil || record.FinishedAt == nil {
		t.Error("record missing start/finish timestamps")
	}
	if len(record.Result) == 0 {
		t.Error("record missing serialized result")
	}

	// Stock applied for the unit.
	if len(store.stocks) != 1 || store.stocks[0].Quantity != 10 {
		t.Errorf("stock not applied: %+v", store.stocks)
	}
}

func TestImportUploadValidation(t *testing.T) {
	big := make([]byte, 101)
	tests := []struct {
		name    string
		upload  *Upload
		maxSize int64
		wantErr error
	}{
		{"empty data", &Upload{Filename: "nfe.xml"}, 100, ErrEmptyFile},
		{"missing filename", &Upload{Data: []byte("x")}, 100, ErrMissingFilename},
		{"wrong extension", &Upload{Filename: "nfe.txt", Data: []byte("x")}, 100, ErrInvalidExtension},
		{"too large", &Upload{Filename: "nfe.xml", Data: big}, 100, ErrFileTooLarge},
		{"bad content type", &Upload{Filename: "nfe.xml", Data: []byte("x"), ContentType: "application/json"}, 100, ErrInvalidContentType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			importer := NewImporter(store, tt.maxSize)

			result := importer.Import(context.Background(), tt.upload, nil)

			if result.Status != StatusError {
				t.Errorf("status = %q, want ERROR", result.Status)
			}
			if result.Message != tt.wantErr.Error() {
				t.Errorf("message = %q, want %q", result.Message, tt.wantErr.Error())
			}
			// Rejected before any audit record exists.
			if len(store.records) != 0 {
				t.Errorf("records = %d, want 0", len(store.records))
			}
		})
	}
}

func TestImportContentSniff(t *testing.T) {
	store := newFakeStore()
	importer := NewImporter(store, 10<<20)
	upload := uploadFor([]byte(`<?xml version="1.0"?><invoice><total>10</total></invoice>`))

	result := importer.Import(context.Background(), upload, nil)

	if result.Status != StatusError {
		t.Fatalf("status = %q, want ERROR", result.Status)
	}
	if result.Message != ErrInvalidDocStructure.Error() {
		t.Errorf("message = %q, want %q", result.Message, ErrInvalidDocStructure.Error())
	}
	if len(store.records) != 1 || store.records[0].Status != models.ImportFailed {
		t.Errorf("want one FAILED record, got %+v", store.records)
	}
}

func TestImportMalformedXML(t *testing.T) {
	store := newFakeStore()
	importer := NewImporter(store, 10<<20)
	upload := uploadFor([]byte(`<?xml version="1.0"?><NFe><infNFe></NFe>`))

	result := importer.Import(context.Background(), upload, nil)

	if result.Status != StatusError {
		t.Fatalf("status = %q, want ERROR", result.Status)
	}
	if len(store.records) != 1 || store.records[0].Status != models.ImportFailed {
		t.Errorf("want one FAILED record, got %+v", store.records)
	}
}

func TestImportInvalidAccessKey(t *testing.T) {
	store := newFakeStore()
	importer := NewImporter(store, 10<<20)
	upload := uploadFor(buildNFe("12345", "1102", "11222333000155"))

	result := importer.Import(context.Background(), upload, nil)

	if result.Status != StatusError {
		t.Fatalf("status = %q, want ERROR", result.Status)
	}
	if result.Message != ErrInvalidAccessKey.Error() {
		t.Errorf("message = %q, want %q", result.Message, ErrInvalidAccessKey.Error())
	}
}

func TestImportDuplicateRejected(t *testing.T) {
	store := newFakeStore()
	importer := NewImporter(store, 10<<20)
	data := buildNFe(sampleAccessKey, "1102", "11222333000155")

	first := importer.Import(context.Background(), uploadFor(data), nil)
	if first.Status != StatusSuccess {
		t.Fatalf("first import status = %q, want SUCCESS", first.Status)
	}

	second := importer.Import(context.Background(), uploadFor(data), nil)
	if second.Status != StatusError {
		t.Fatalf("second import status = %q, want ERROR", second.Status)
	}
	if !strings.Contains(second.Message, "already imported") {
		t.Errorf("message = %q, want duplicate rejection", second.Message)
	}
	if len(store.invoices) != 1 {
		t.Errorf("invoices = %d, want 1", len(store.invoices))
	}
}

func TestImportSaleRecipientMustMatchUnit(t *testing.T) {
	store := newFakeStore()
	importer := NewImporter(store, 10<<20)
	// Sale CFOP, recipient differs from the unit's tax id.
	upload := uploadFor(buildNFe(sampleAccessKey, "5102", "99888777000166"))

	result := importer.Import(context.Background(), upload, testUnit())

	if result.Status != StatusError {
		t.Fatalf("status = %q, want ERROR", result.Status)
	}
	if !strings.Contains(result.Message, "recipient") {
		t.Errorf("message = %q, want recipient mismatch", result.Message)
	}
}

func TestImportSaleAgainstUnit(t *testing.T) {
	store := newFakeStore()
	importer := NewImporter(store, 10<<20)
	upload := uploadFor(buildNFe(sampleAccessKey, "5102", "11222333000155"))

	result := importer.Import(context.Background(), upload, testUnit())

	if result.Status != StatusSuccess {
		t.Fatalf("status = %q, want SUCCESS (message: %s)", result.Status, result.Message)
	}
	// Sale with no prior stock goes negative and is flagged.
	if len(store.stocks) != 1 || store.stocks[0].Quantity != -10 {
		t.Errorf("stock = %+v, want quantity -10", store.stocks)
	}
	if result.InconsistenciesDetected != 1 {
		t.Errorf("inconsistenciesDetected = %d, want 1 (negative stock)", result.InconsistenciesDetected)
	}
	if result.Alerts == "" {
		t.Error("alerts should mention the inconsistency report")
	}
}

func TestImportResultToMap(t *testing.T) {
	success := &ImportResult{
		Status:                  StatusSuccess,
		Message:                 "ok",
		ImportID:                "imp-1",
		File:                    "nfe.xml",
		Size:                    100,
		InvoiceID:               "inv-1",
		SupplierID:              "sup-1",
		ItemsProcessed:          2,
		InconsistenciesDetected: 1,
		Alerts:                  "check the report",
	}
	m := success.ToMap()
	for _, key := range []string{"status", "message", "file", "size", "importId", "invoiceId", "supplierId", "itemsProcessed", "inconsistenciesDetected", "alerts"} {
		if _, ok := m[key]; !ok {
			t.Errorf("success map missing %q", key)
		}
	}

	failure := &ImportResult{
		Status:  StatusError,
		Message: "broken",
		File:    "nfe.xml",
		Errors:  []string{"broken"},
	}
	m = failure.ToMap()
	if _, ok := m["invoiceId"]; ok {
		t.Error("error map must not carry invoiceId")
	}
	if _, ok := m["errors"]; !ok {
		t.Error("error map missing errors")
	}
	if m["status"] != "ERROR" {
		t.Errorf("status = %v, want ERROR", m["status"])
	}
}
