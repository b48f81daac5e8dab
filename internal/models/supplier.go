package models

import (
	"time"

	"gorm.io/gorm"
)

// Supplier status values.
const (
	SupplierActive   = "ACTIVE"
	SupplierInactive = "INACTIVE"
	SupplierBlocked  = "BLOCKED"
)

// Supplier is the issuer of purchase invoices, keyed by its tax id (CNPJ).
// Created on the first import that mentions an unseen CNPJ and merge-updated
// on every subsequent one.
type Supplier struct {
	ID                string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	TaxID             string `gorm:"uniqueIndex;not null" json:"taxId"`
	LegalName         string `json:"legalName"`
	TradeName         string `json:"tradeName"`
	StateRegistration string `json:"stateRegistration"`
	Address           string `json:"address"`
	City              string `json:"city"`
	State             string `json:"state"`
	Phone             string `json:"phone"`
	Email             string `json:"email"`
	Status            string `gorm:"default:'ACTIVE'" json:"status"`

	RegisteredAt time.Time      `json:"registeredAt"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Supplier) TableName() string {
	return "suppliers"
}
