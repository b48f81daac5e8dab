package models

import (
	"time"

	"gorm.io/gorm"
)

// Pharmacy is the chain-level organization a unit belongs to. Managed by the
// administrative CRUD surface, referenced here only as an owner of units.
type Pharmacy struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Name   string `gorm:"not null" json:"name"`
	TaxID  string `gorm:"uniqueIndex" json:"taxId"`
	Active bool   `gorm:"default:true" json:"active"`

	Units []Unit `gorm:"foreignKey:PharmacyID" json:"units,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Pharmacy) TableName() string {
	return "pharmacies"
}

// Unit is one branch of a pharmacy chain. Stock is kept per unit.
type Unit struct {
	ID         string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	PharmacyID string `gorm:"index;type:uuid" json:"pharmacyId"`
	Name       string `gorm:"not null" json:"name"`
	TaxID      string `gorm:"index" json:"taxId"`
	Address    string `json:"address"`
	Active     bool   `gorm:"default:true" json:"active"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Unit) TableName() string {
	return "units"
}
