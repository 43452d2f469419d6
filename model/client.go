package model

import (
	"fmt"

	"gorm.io/gorm"
)

var ErrNotAllowed = fmt.Errorf("not allowed")

// ErrClientReferenced is returned when a client cannot be deleted because
// documents still point to it.
var ErrClientReferenced = fmt.Errorf("client is referenced by documents")

// Client is a customer with the fiscal identifiers required on invoices.
type Client struct {
	gorm.Model
	OwnerID     uint `gorm:"index"`
	Name        string
	ContactName string
	Email       string
	Phone       string
	Address1    string
	Address2    string
	City        string
	PostalCode  string
	Country     string
	NIF         string // numéro d'identification fiscale
	RC          string // registre de commerce
	AI          string // article d'imposition
	NIS         string // numéro d'identification statistique
	RIB         string
	BankName    string
	Notes       string
}

// SaveClient creates or updates a client. Ownership is enforced.
func (s *Store) SaveClient(c *Client, ownerID uint) error {
	if c.OwnerID != ownerID {
		return ErrNotAllowed
	}
	return s.db.Save(c).Error
}

// LoadClient loads a single client within the owner scope.
func (s *Store) LoadClient(id any, ownerID uint) (*Client, error) {
	var c Client
	if err := s.db.Where("owner_id = ?", ownerID).First(&c, id).Error; err != nil {
		return nil, fmt.Errorf("load client %v: %w", id, err)
	}
	return &c, nil
}

// ListClients returns all clients of the owner ordered by name.
func (s *Store) ListClients(ownerID uint) ([]Client, error) {
	var clients []Client
	err := s.db.Where("owner_id = ?", ownerID).Order("name asc").Find(&clients).Error
	return clients, err
}

// DeleteClient removes a client unless any proforma, invoice or delivery note
// still references it.
func (s *Store) DeleteClient(id uint, ownerID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&Proforma{}).
			Where("client_id = ? AND owner_id = ?", id, ownerID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrClientReferenced
		}
		if err := tx.Model(&Invoice{}).
			Where("client_id = ? AND owner_id = ?", id, ownerID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrClientReferenced
		}
		if err := tx.Model(&DeliveryNote{}).
			Where("client_id = ? AND owner_id = ?", id, ownerID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrClientReferenced
		}
		return tx.Where("owner_id = ?", ownerID).Delete(&Client{}, id).Error
	})
}
