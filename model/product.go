package model

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalog entry. Price and tax rate are snapshotted onto
// document lines when the product is used, so later edits do not rewrite
// existing documents.
type Product struct {
	gorm.Model
	OwnerID     uint `gorm:"index"`
	Reference   string
	Name        string
	Description string
	UnitPrice   decimal.Decimal `sql:"type:decimal(20,8);"`
	TaxRate     decimal.Decimal `sql:"type:decimal(20,8);"`
	Stock       decimal.Decimal `sql:"type:decimal(20,8);"`
	Unit        string
}

// SaveProduct creates or updates a product. Ownership is enforced.
func (s *Store) SaveProduct(p *Product, ownerID uint) error {
	if p.OwnerID != ownerID {
		return ErrNotAllowed
	}
	return s.db.Save(p).Error
}

// LoadProduct loads a single product within the owner scope.
func (s *Store) LoadProduct(id any, ownerID uint) (*Product, error) {
	var p Product
	if err := s.db.Where("owner_id = ?", ownerID).First(&p, id).Error; err != nil {
		return nil, fmt.Errorf("load product %v: %w", id, err)
	}
	return &p, nil
}

// ListProducts returns all products of the owner ordered by name.
func (s *Store) ListProducts(ownerID uint) ([]Product, error) {
	var products []Product
	err := s.db.Where("owner_id = ?", ownerID).Order("name asc").Find(&products).Error
	return products, err
}

// DeleteProduct removes a product. Document lines keep their snapshots, so
// no reference check is needed.
func (s *Store) DeleteProduct(id uint, ownerID uint) error {
	return s.db.Where("owner_id = ?", ownerID).Delete(&Product{}, id).Error
}

// AdjustStock adds delta (which may be negative) to the product stock
// within one transaction.
func (s *Store) AdjustStock(id uint, ownerID uint, delta decimal.Decimal) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var p Product
		if err := tx.Where("owner_id = ?", ownerID).First(&p, id).Error; err != nil {
			return err
		}
		p.Stock = p.Stock.Add(delta)
		return tx.Model(&p).Update("stock", p.Stock).Error
	})
}
