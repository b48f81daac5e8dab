package nfe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/annaehugo/freepharma/internal/logger"
	"github.com/annaehugo/freepharma/internal/models"
)

// Upload-level validation errors, surfaced verbatim to the caller before any
// import record is written.
var (
	ErrEmptyFile           = errors.New("uploaded file is empty")
	ErrMissingFilename     = errors.New("filename is required")
	ErrInvalidExtension    = errors.New("only XML files are accepted")
	ErrFileTooLarge        = errors.New("file exceeds the maximum allowed size")
	ErrInvalidContentType  = errors.New("invalid content type, expected XML")
	ErrInvalidDocStructure = errors.New("file does not contain a valid NFe structure")
	ErrInvalidAccessKey    = errors.New("access key must be exactly 44 characters")
	ErrDuplicateInvoice    = errors.New("invoice with this access key was already imported")
)

// Upload is one document received from the transport boundary.
type Upload struct {
	Filename    string
	Size        int64
	ContentType string
	Data        []byte
	UserID      string
	Note        string
}

// ImportStatus discriminates an ImportResult.
type ImportStatus string

// Import result statuses.
const (
	StatusSuccess       ImportStatus = "SUCCESS"
	StatusError         ImportStatus = "ERROR"
	StatusInternalError ImportStatus = "INTERNAL_ERROR"
)

// ImportResult is the structured outcome of one ingestion attempt. The HTTP
// boundary flattens it to a key/value payload via ToMap.
type ImportResult struct {
	Status                  ImportStatus `json:"status"`
	Message                 string       `json:"message"`
	ImportID                string       `json:"importId,omitempty"`
	File                    string       `json:"file"`
	Size                    int64        `json:"size"`
	InvoiceID               string       `json:"invoiceId,omitempty"`
	SupplierID              string       `json:"supplierId,omitempty"`
	ItemsProcessed          int          `json:"itemsProcessed"`
	InconsistenciesDetected int          `json:"inconsistenciesDetected"`
	Alerts                  string       `json:"alerts,omitempty"`
	Errors                  []string     `json:"errors,omitempty"`
}

// ToMap flattens the result into the key/value contract of the upload
// endpoint.
func (r *ImportResult) ToMap() map[string]interface{} {
	out := map[string]interface{}{
		"status":  string(r.Status),
		"message": r.Message,
		"file":    r.File,
		"size":    r.Size,
	}
	if r.ImportID != "" {
		out["importId"] = r.ImportID
	}
	if r.Status == StatusSuccess {
		out["invoiceId"] = r.InvoiceID
		out["supplierId"] = r.SupplierID
		out["itemsProcessed"] = r.ItemsProcessed
		out["inconsistenciesDetected"] = r.InconsistenciesDetected
		if r.Alerts != "" {
			out["alerts"] = r.Alerts
		}
	}
	if len(r.Errors) > 0 {
		out["errors"] = r.Errors
	}
	return out
}

// Importer sequences one ingestion: upload validation, audit record
// lifecycle, content sniff, parse, semantic validation, duplicate rejection,
// item processing, consistency checking and final bookkeeping. It never
// returns an error to the caller; every fault ends up inside the result.
type Importer struct {
	store     Store
	processor *Processor
	maxSize   int64
	now       func() time.Time
	log       zerolog.Logger
}

// NewImporter creates an importer with the given upload size ceiling.
func NewImporter(store Store, maxUploadBytes int64) *Importer {
	return &Importer{
		store:     store,
		processor: NewProcessor(store),
		maxSize:   maxUploadBytes,
		now:       time.Now,
		log:       logger.WithComponent("nfe-importer"),
	}
}

// Import runs the full ingestion pipeline for one uploaded document.
func (i *Importer) Import(ctx context.Context, upload *Upload, unit *models.Unit) (result *ImportResult) {
	result = &ImportResult{
		Status: StatusError,
		File:   upload.Filename,
		Size:   upload.Size,
	}

	if err := i.validateUpload(upload); err != nil {
		result.Message = err.Error()
		result.Errors = []string{err.Error()}
		return result
	}

	record := &models.ImportRecord{
		Filename:   upload.Filename,
		Status:     models.ImportPending,
		ImportedAt: i.now(),
		Note:       upload.Note,
	}
	if unit != nil {
		record.UnitID = &unit.ID
	}
	if upload.UserID != "" {
		record.UserID = &upload.UserID
	}
	if err := i.store.SaveImportRecord(ctx, record); err != nil {
		result.Status = StatusInternalError
		result.Message = fmt.Sprintf("failed to create import record: %v", err)
		return result
	}
	result.ImportID = record.ID

	// Nothing past this point may escape: a fault becomes a FAILED record
	// plus a structured error result.
	defer func() {
		if rec := recover(); rec != nil {
			i.log.Error().Interface("panic", rec).Msg("ingestion panicked")
			result.Status = StatusInternalError
			result.Message = fmt.Sprintf("processing failed: %v", rec)
			i.failRecord(ctx, record, result.Message)
			i.storeResult(ctx, record, result)
		}
	}()

	started := i.now()
	record.Status = models.ImportProcessing
	record.StartedAt = &started
	if err := i.store.SaveImportRecord(ctx, record); err != nil {
		result.Status = StatusInternalError
		result.Message = fmt.Sprintf("failed to update import record: %v", err)
		return result
	}

	if err := sniffContent(upload.Data); err != nil {
		return i.fail(ctx, record, result, err)
	}

	inv, err := Parse(upload.Data)
	if err != nil {
		return i.fail(ctx, record, result, err)
	}

	if err := i.validateInvoice(ctx, inv, unit); err != nil {
		return i.fail(ctx, record, result, err)
	}

	outcome := i.processor.Process(ctx, inv, unit, record)

	finished := i.now()
	record.FinishedAt = &finished
	record.ItemsInFile = len(inv.Items)
	record.ItemsProcessed = outcome.ProcessedCount()
	record.ItemsFailed = len(inv.Items) - outcome.ProcessedCount()
	record.InconsistenciesDetected = outcome.Inconsistencies

	if outcome.Succeeded {
		record.Status = models.ImportCompleted
		record.ProcessingLog = fmt.Sprintf("NFe processed, %d inconsistencies detected", outcome.Inconsistencies)
		if errs := outcome.Errors(); len(errs) > 0 {
			record.ErrorLog = strings.Join(errs, "; ")
		}

		result.Status = StatusSuccess
		result.Message = outcome.Message
		result.InvoiceID = outcome.Invoice.ID
		result.SupplierID = outcome.Supplier.ID
		result.ItemsProcessed = outcome.ProcessedCount()
		result.InconsistenciesDetected = outcome.Inconsistencies
		result.Errors = outcome.Errors()
		if outcome.Inconsistencies > 0 {
			result.Alerts = fmt.Sprintf("NFe imported with %d inconsistencies, check the inconsistency report",
				outcome.Inconsistencies)
		}
	} else {
		record.Status = models.ImportFailed
		record.ErrorLog = outcome.Message

		result.Status = StatusError
		result.Message = outcome.Message
		result.Errors = append(outcome.Errors(), outcome.Message)
	}

	i.storeResult(ctx, record, result)
	return result
}

// fail marks the record FAILED with the given reason and builds the error
// result.
func (i *Importer) fail(ctx context.Context, record *models.ImportRecord, result *ImportResult, err error) *ImportResult {
	i.log.Warn().Err(err).Str("file", record.Filename).Msg("import aborted")
	i.failRecord(ctx, record, err.Error())
	result.Status = StatusError
	result.Message = err.Error()
	result.Errors = []string{err.Error()}
	i.storeResult(ctx, record, result)
	return result
}

func (i *Importer) failRecord(ctx context.Context, record *models.ImportRecord, reason string) {
	finished := i.now()
	record.Status = models.ImportFailed
	record.FinishedAt = &finished
	record.ErrorLog = reason
}

// storeResult attaches the structured result to the record for audit and
// persists the final state. A failed save is logged, never surfaced.
func (i *Importer) storeResult(ctx context.Context, record *models.ImportRecord, result *ImportResult) {
	if payload, err := json.Marshal(result); err == nil {
		record.Result = payload
	}
	if err := i.store.SaveImportRecord(ctx, record); err != nil {
		i.log.Error().Err(err).Str("importId", record.ID).Msg("failed to persist import record")
	}
}

func (i *Importer) validateUpload(upload *Upload) error {
	if upload == nil || len(upload.Data) == 0 {
		return ErrEmptyFile
	}
	if strings.TrimSpace(upload.Filename) == "" {
		return ErrMissingFilename
	}
	if !strings.HasSuffix(strings.ToLower(upload.Filename), ".xml") {
		return ErrInvalidExtension
	}
	if int64(len(upload.Data)) > i.maxSize {
		return ErrFileTooLarge
	}
	if upload.ContentType != "" && !isXMLContentType(upload.ContentType) {
		return ErrInvalidContentType
	}
	return nil
}

func isXMLContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	if idx := strings.Index(ct, ";"); idx >= 0 {
		ct = strings.TrimSpace(ct[:idx])
	}
	return ct == "text/xml" || ct == "application/xml" || strings.HasSuffix(ct, "+xml")
}

// sniffContent requires recognizable NFe markers before the full parse runs.
func sniffContent(data []byte) error {
	content := string(data)
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "<?xml") && !strings.Contains(content, "<NFe") {
		return ErrInvalidDocStructure
	}
	if !strings.Contains(content, "<infNFe") {
		return ErrInvalidDocStructure
	}
	return nil
}

// validateInvoice applies the invoice-level semantic checks; any failure
// aborts the whole invoice.
func (i *Importer) validateInvoice(ctx context.Context, inv *ExtractedInvoice, unit *models.Unit) error {
	if len(inv.AccessKey) != 44 {
		return ErrInvalidAccessKey
	}
	if inv.Number == "" {
		return errors.New("invoice number is required")
	}
	if !inv.TotalAmount.IsPositive() {
		return errors.New("invoice total must be greater than zero")
	}
	if inv.Issuer.TaxID == "" && inv.Issuer.LegalName == "" {
		return errors.New("issuer data is required")
	}
	if len(inv.Items) == 0 {
		return errors.New("invoice must contain at least one item")
	}

	// Sales against a known unit must name that unit as the recipient.
	if inv.OperationType == models.OperationSale && unit != nil && unit.TaxID != "" {
		if inv.Recipient.TaxID != unit.TaxID {
			return errors.New("sale invoice must have the unit as its recipient")
		}
	}

	existing, err := i.store.FindInvoiceByAccessKey(ctx, inv.AccessKey)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateInvoice, inv.AccessKey)
	}

	return nil
}
