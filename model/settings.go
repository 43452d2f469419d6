package model

import "gorm.io/gorm"

// Settings holds the seller's own identity as printed on documents.
type Settings struct {
	gorm.Model
	CompanyName    string
	InvoiceContact string
	InvoiceEMail   string
	Phone          string
	Address1       string
	Address2       string
	City           string
	PostalCode     string
	CountryCode    string
	Currency       string
	NIF            string
	RC             string
	AI             string
	NIS            string
	RIB            string
	BankName       string
}

// LoadSettings loads the owner's settings, initializing an empty record on
// first use.
func (s *Store) LoadSettings(ownerID any) (*Settings, error) {
	c := &Settings{}
	result := s.db.FirstOrInit(c, ownerID)
	if c.Currency == "" {
		c.Currency = "DZD"
	}
	return c, result.Error
}

// SaveSettings saves the owner's settings.
func (s *Store) SaveSettings(st *Settings) error {
	return s.db.Save(st).Error
}
