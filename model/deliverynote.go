package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeliveryStatus is the lifecycle state of a delivery note.
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusCancelled DeliveryStatus = "cancelled"
)

var ErrDeliveryNotPending = fmt.Errorf("delivery note is no longer pending")

// DeliveryNote (bon de livraison) documents a shipment, optionally tied to
// the final invoice it fulfills. It is independent of payment status.
type DeliveryNote struct {
	gorm.Model
	OwnerID     uint `gorm:"index"`
	ClientID    uint `gorm:"index"`
	InvoiceID   uint // 0 when not tied to an invoice
	Number      string
	Counter     uint
	Date        time.Time
	Notes       string
	Items       []DeliveryItem
	Status      DeliveryStatus `gorm:"type:text;not null;default:pending;check:status IN ('pending','delivered','cancelled');index"`
	DeliveredAt *time.Time
	CancelledAt *time.Time
}

// DeliveryItem is one shipped line.
type DeliveryItem struct {
	ID             uint `gorm:"primarykey"`
	CreatedAt      time.Time
	OwnerID        uint
	DeliveryNoteID uint `gorm:"index"`
	Position       int
	ProductID      uint
	Name           string
	Unit           string
	Quantity       decimal.Decimal `sql:"type:decimal(20,8);"`
}

func (DeliveryItem) TableName() string { return "delivery_items" }

// CreateDeliveryNote assigns a number and stores the note and its items.
func (s *Store) CreateDeliveryNote(dn *DeliveryNote, ownerID uint) error {
	if dn.OwnerID != ownerID {
		return ErrNotAllowed
	}
	dn.Status = DeliveryStatusPending
	return s.db.Transaction(func(tx *gorm.DB) error {
		if dn.Number == "" {
			number, counter, err := nextNumber(tx, ownerID, DocTypeDelivery)
			if err != nil {
				number, counter = FallbackNumber(DocTypeDelivery, time.Now()), 0
			}
			dn.Number = number
			dn.Counter = counter
		}
		return saveDeliveryNoteTx(tx, dn, ownerID)
	})
}

// UpdateDeliveryNote replaces the note fields and items while still pending.
func (s *Store) UpdateDeliveryNote(dn *DeliveryNote, ownerID uint) error {
	if dn.ID == 0 {
		return fmt.Errorf("update delivery note: ID is zero")
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var current DeliveryNote
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND owner_id = ?", dn.ID, ownerID).
			First(&current).Error; err != nil {
			return err
		}
		if current.Status != DeliveryStatusPending {
			return ErrDeliveryNotPending
		}
		dn.Number = current.Number
		dn.Counter = current.Counter
		dn.Status = current.Status
		return saveDeliveryNoteTx(tx, dn, ownerID)
	})
}

func saveDeliveryNoteTx(tx *gorm.DB, dn *DeliveryNote, ownerID uint) error {
	if err := tx.Omit("Items").Save(dn).Error; err != nil {
		return err
	}
	if err := tx.Where("delivery_note_id = ? AND owner_id = ?", dn.ID, ownerID).
		Delete(&DeliveryItem{}).Error; err != nil {
		return err
	}
	if len(dn.Items) > 0 {
		for i := range dn.Items {
			dn.Items[i].ID = 0
			dn.Items[i].DeliveryNoteID = dn.ID
			dn.Items[i].OwnerID = ownerID
		}
		if err := tx.Omit("ID").Create(&dn.Items).Error; err != nil {
			return err
		}
	}
	return nil
}

// LoadDeliveryNote loads a delivery note with its items.
func (s *Store) LoadDeliveryNote(id any, ownerID uint) (*DeliveryNote, error) {
	var dn DeliveryNote
	err := s.db.Where("owner_id = ?", ownerID).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Where("owner_id = ?", ownerID).Order("position asc")
		}).
		First(&dn, id).Error
	if err != nil {
		return nil, fmt.Errorf("load delivery note %v: %w", id, err)
	}
	return &dn, nil
}

// ListDeliveryNotes returns the owner's delivery notes, newest first.
func (s *Store) ListDeliveryNotes(ownerID uint) ([]DeliveryNote, error) {
	var dns []DeliveryNote
	err := s.db.Where("owner_id = ?", ownerID).Order("date desc, id desc").Find(&dns).Error
	return dns, err
}

// DeleteDeliveryNote removes a pending note and releases its number.
func (s *Store) DeleteDeliveryNote(id uint, ownerID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var dn DeliveryNote
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND owner_id = ?", id, ownerID).
			First(&dn).Error; err != nil {
			return err
		}
		if dn.Status != DeliveryStatusPending {
			return ErrDeliveryNotPending
		}
		if err := tx.Where("delivery_note_id = ? AND owner_id = ?", id, ownerID).
			Delete(&DeliveryItem{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&DeliveryNote{}, id).Error; err != nil {
			return err
		}
		return releaseNumber(tx, ownerID, DocTypeDelivery, dn.Number, dn.Counter)
	})
}

// changeDeliveryStatus moves a pending note to delivered or cancelled.
func (s *Store) changeDeliveryStatus(id uint, ownerID uint, to DeliveryStatus, t time.Time) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var dn DeliveryNote
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND owner_id = ?", id, ownerID).
			First(&dn).Error; err != nil {
			return err
		}
		if dn.Status == to {
			return nil
		}
		if dn.Status != DeliveryStatusPending {
			return fmt.Errorf("invalid status transition %q -> %q", dn.Status, to)
		}
		updates := map[string]any{"status": to}
		switch to {
		case DeliveryStatusDelivered:
			updates["delivered_at"] = t
		case DeliveryStatusCancelled:
			updates["cancelled_at"] = t
		}
		return tx.Model(&DeliveryNote{}).
			Where("id = ? AND owner_id = ?", id, ownerID).
			Updates(updates).Error
	})
}

// MarkDelivered marks a pending delivery note as delivered.
func (s *Store) MarkDelivered(id uint, ownerID uint, t time.Time) error {
	return s.changeDeliveryStatus(id, ownerID, DeliveryStatusDelivered, t)
}

// CancelDeliveryNote marks a pending delivery note as cancelled.
func (s *Store) CancelDeliveryNote(id uint, ownerID uint, t time.Time) error {
	return s.changeDeliveryStatus(id, ownerID, DeliveryStatusCancelled, t)
}
