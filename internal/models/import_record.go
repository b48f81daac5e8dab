package models

import (
	"time"

	"gorm.io/datatypes"
)

// ImportRecord statuses. PENDING -> PROCESSING -> COMPLETED | FAILED.
const (
	ImportPending    = "PENDING"
	ImportProcessing = "PROCESSING"
	ImportCompleted  = "COMPLETED"
	ImportFailed     = "FAILED"
)

// ImportRecord is the audit trail of one ingestion attempt for one uploaded
// document. Immutable once COMPLETED or FAILED, except for the inconsistency
// count backfill.
type ImportRecord struct {
	ID       string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Filename string `json:"filename"`
	Status   string `gorm:"index;default:'PENDING'" json:"status"`

	UnitID *string `gorm:"index;type:uuid" json:"unitId,omitempty"`
	UserID *string `gorm:"index;type:uuid" json:"userId,omitempty"`
	Note   string  `json:"note,omitempty"`

	ImportedAt time.Time  `json:"importedAt"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`

	ItemsInFile             int `json:"itemsInFile"`
	ItemsProcessed          int `json:"itemsProcessed"`
	ItemsFailed             int `json:"itemsFailed"`
	InconsistenciesDetected int `json:"inconsistenciesDetected"`

	ProcessingLog string `json:"processingLog,omitempty"`
	ErrorLog      string `json:"errorLog,omitempty"`

	// Result keeps the structured outcome returned to the caller, for audit.
	Result datatypes.JSON `gorm:"type:jsonb" json:"result,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (ImportRecord) TableName() string {
	return "import_records"
}
