package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvoiceStatus is the state of a final invoice. Only the administrative
// override states cancelled and credited are authoritative when stored; the
// payment-derived states are recomputed from the ledger on every read (see
// ComputedStatus).
type InvoiceStatus string

const (
	InvoiceStatusUnpaid        InvoiceStatus = "unpaid"
	InvoiceStatusPartiallyPaid InvoiceStatus = "partially_paid"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusCancelled     InvoiceStatus = "cancelled"
	InvoiceStatusCredited      InvoiceStatus = "credited"
)

// Sticky reports whether the status is an administrative override that wins
// over the payment-derived status.
func (st InvoiceStatus) Sticky() bool {
	return st == InvoiceStatusCancelled || st == InvoiceStatusCredited
}

var (
	ErrInvoiceNotPayable   = fmt.Errorf("invoice is cancelled or credited")
	ErrInvoiceHasPayments  = fmt.Errorf("invoice has recorded payments")
	ErrInvoiceNotDeletable = fmt.Errorf("invoice can only be deleted while unpaid")
)

// Invoice is a legally issued (final) invoice against which payments are
// tracked. Invariant: whenever the status is not cancelled or credited,
// amount_paid + client_debt = total.
type Invoice struct {
	gorm.Model
	OwnerID       uint `gorm:"index"`
	ClientID      uint `gorm:"index"`
	ProformaID    uint // reverse link; 0 for standalone invoices
	Number        string
	Counter       uint
	Date          time.Time
	DueDate       time.Time
	PaymentMethod string
	BC            string
	Notes         string
	Items         []InvoiceItem
	Subtotal      decimal.Decimal `sql:"type:decimal(20,8);"`
	TaxTotal      decimal.Decimal `sql:"type:decimal(20,8);"`
	StampDuty     decimal.Decimal `sql:"type:decimal(20,8);"`
	Total         decimal.Decimal `sql:"type:decimal(20,8);"`
	AmountPaid    decimal.Decimal `sql:"type:decimal(20,8);"`
	ClientDebt    decimal.Decimal `sql:"type:decimal(20,8);"`
	Status        InvoiceStatus   `gorm:"type:text;not null;default:unpaid;check:status IN ('unpaid','partially_paid','paid','cancelled','credited');index;index:idx_invoice_owner_status"`
	PaidAt        *time.Time
	CancelledAt   *time.Time
	CreditedAt    *time.Time
}

// InvoiceItem is one line of a final invoice.
type InvoiceItem struct {
	ID          uint `gorm:"primarykey"`
	CreatedAt   time.Time
	OwnerID     uint
	InvoiceID   uint `gorm:"index"`
	Position    int
	ProductID   uint
	Name        string
	Unit        string
	Quantity    decimal.Decimal `sql:"type:decimal(20,8);"`
	UnitPrice   decimal.Decimal `sql:"type:decimal(20,8);"`
	TaxRate     decimal.Decimal `sql:"type:decimal(20,8);"`
	DiscountPct decimal.Decimal `sql:"type:decimal(20,8);"`
	TotalExcl   decimal.Decimal `sql:"type:decimal(20,8);"`
	TotalTax    decimal.Decimal `sql:"type:decimal(20,8);"`
	Total       decimal.Decimal `sql:"type:decimal(20,8);"`
}

func (InvoiceItem) TableName() string { return "invoice_items" }

// RecomputeTotals rederives line and document amounts from the raw fields.
func (inv *Invoice) RecomputeTotals() {
	lines := make([]LineAmounts, len(inv.Items))
	for i := range inv.Items {
		it := &inv.Items[i]
		la := LineTotals(it.Quantity, it.UnitPrice, it.TaxRate, it.DiscountPct)
		it.TotalExcl = la.TotalExcl
		it.TotalTax = la.TotalTax
		it.Total = la.Total
		lines[i] = la
	}
	amounts := Totals(lines, inv.PaymentMethod)
	inv.Subtotal = amounts.Subtotal
	inv.TaxTotal = amounts.TaxTotal
	inv.StampDuty = amounts.StampDuty
	inv.Total = amounts.Total
}

// ComputedStatus derives the display status from the payment aggregates.
// The stored status only wins for the sticky override states, so a stale
// stored value can never show an unpaid invoice as paid or vice versa.
func (inv *Invoice) ComputedStatus() InvoiceStatus {
	if inv.Status.Sticky() {
		return inv.Status
	}
	switch {
	case inv.Total.GreaterThan(decimal.Zero) && inv.AmountPaid.GreaterThanOrEqual(inv.Total):
		return InvoiceStatusPaid
	case inv.AmountPaid.GreaterThan(decimal.Zero):
		return InvoiceStatusPartiallyPaid
	}
	return InvoiceStatusUnpaid
}

// CreateInvoice assigns a number and stores the invoice and its items. New
// invoices start unpaid with the full total as client debt.
func (s *Store) CreateInvoice(inv *Invoice, ownerID uint) error {
	if inv.OwnerID != ownerID {
		return ErrNotAllowed
	}
	inv.Status = InvoiceStatusUnpaid
	inv.RecomputeTotals()
	inv.AmountPaid = decimal.Zero
	inv.ClientDebt = inv.Total
	return s.db.Transaction(func(tx *gorm.DB) error {
		if inv.Number == "" {
			number, counter, err := nextNumber(tx, ownerID, DocTypeInvoice)
			if err != nil {
				number, counter = FallbackNumber(DocTypeInvoice, time.Now()), 0
			}
			inv.Number = number
			inv.Counter = counter
		}
		return saveInvoiceTx(tx, inv, ownerID)
	})
}

// UpdateInvoice replaces invoice fields and all items. Editing is only
// possible while no payment has been recorded and no override is set; the
// aggregates are rebased on the new total.
func (s *Store) UpdateInvoice(inv *Invoice, ownerID uint) error {
	if inv.ID == 0 {
		return fmt.Errorf("update invoice: ID is zero")
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var current Invoice
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND owner_id = ?", inv.ID, ownerID).
			First(&current).Error; err != nil {
			return err
		}
		if current.Status.Sticky() {
			return ErrInvoiceNotPayable
		}
		if current.AmountPaid.GreaterThan(decimal.Zero) {
			return ErrInvoiceHasPayments
		}
		inv.Number = current.Number
		inv.Counter = current.Counter
		inv.ProformaID = current.ProformaID
		inv.Status = InvoiceStatusUnpaid
		inv.RecomputeTotals()
		inv.AmountPaid = decimal.Zero
		inv.ClientDebt = inv.Total
		return saveInvoiceTx(tx, inv, ownerID)
	})
}

func saveInvoiceTx(tx *gorm.DB, inv *Invoice, ownerID uint) error {
	if err := tx.Omit("Items").Save(inv).Error; err != nil {
		return err
	}
	if err := tx.Where("invoice_id = ? AND owner_id = ?", inv.ID, ownerID).
		Delete(&InvoiceItem{}).Error; err != nil {
		return err
	}
	if len(inv.Items) > 0 {
		for i := range inv.Items {
			inv.Items[i].ID = 0
			inv.Items[i].InvoiceID = inv.ID
			inv.Items[i].OwnerID = ownerID
		}
		if err := tx.Omit("ID").Create(&inv.Items).Error; err != nil {
			return err
		}
	}
	return nil
}

// LoadInvoice loads an invoice with its items.
func (s *Store) LoadInvoice(id any, ownerID uint) (*Invoice, error) {
	var inv Invoice
	err := s.db.Where("owner_id = ?", ownerID).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Where("owner_id = ?", ownerID).Order("position asc")
		}).
		First(&inv, id).Error
	if err != nil {
		return nil, fmt.Errorf("load invoice %v: %w", id, err)
	}
	return &inv, nil
}

// ListInvoices returns the owner's invoices, newest first.
func (s *Store) ListInvoices(ownerID uint) ([]Invoice, error) {
	var invs []Invoice
	err := s.db.Where("owner_id = ?", ownerID).Order("date desc, id desc").Find(&invs).Error
	return invs, err
}

// ListInvoicesForExport returns the owner's invoices with items preloaded.
func (s *Store) ListInvoicesForExport(ownerID uint) ([]Invoice, error) {
	var invs []Invoice
	err := s.db.Where("owner_id = ?", ownerID).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Where("owner_id = ?", ownerID).Order("position asc")
		}).
		Order("date asc, id asc").Find(&invs).Error
	return invs, err
}

// DeleteInvoice removes an invoice. Only possible while unpaid with no
// recorded payments; the number goes back to the recycling pool.
func (s *Store) DeleteInvoice(id uint, ownerID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var inv Invoice
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND owner_id = ?", id, ownerID).
			First(&inv).Error; err != nil {
			return err
		}
		if inv.ComputedStatus() != InvoiceStatusUnpaid {
			return ErrInvoiceNotDeletable
		}
		var n int64
		if err := tx.Model(&Payment{}).
			Where("invoice_id = ? AND owner_id = ?", id, ownerID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrInvoiceHasPayments
		}
		return deleteInvoiceTx(tx, &inv, ownerID)
	})
}

// deleteInvoiceTx removes the invoice, its items and its proforma link and
// releases the number. Callers hold the row lock.
func deleteInvoiceTx(tx *gorm.DB, inv *Invoice, ownerID uint) error {
	if err := tx.Where("invoice_id = ? AND owner_id = ?", inv.ID, ownerID).
		Delete(&InvoiceItem{}).Error; err != nil {
		return err
	}
	if inv.ProformaID != 0 {
		if err := tx.Model(&Proforma{}).
			Where("id = ? AND owner_id = ?", inv.ProformaID, ownerID).
			Update("final_invoice_id", 0).Error; err != nil {
			return err
		}
	}
	if err := tx.Delete(&Invoice{}, inv.ID).Error; err != nil {
		return err
	}
	return releaseNumber(tx, ownerID, DocTypeInvoice, inv.Number, inv.Counter)
}

// --- Status Transitions ------------------------------------------------------
//
// Explicit transitions on top of the derived status:
//   unpaid                            -> paid       (MarkInvoicePaid)
//   unpaid                            -> cancelled  (CancelInvoice)
//   any non-sticky                    -> credited   (CreditInvoice)
//   paid | partially_paid | cancelled
//       | credited                    -> unpaid     (RevertInvoice)

// MarkInvoicePaid settles the invoice in full: amount_paid = total and
// client_debt = 0. Calling it on an already paid invoice is a no-op, so the
// amount can never be credited twice.
func (s *Store) MarkInvoicePaid(id uint, ownerID uint, t time.Time) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var inv Invoice
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND owner_id = ?", id, ownerID).
			First(&inv).Error; err != nil {
			return err
		}
		if inv.Status.Sticky() {
			return ErrInvoiceNotPayable
		}
		if inv.ComputedStatus() == InvoiceStatusPaid {
			return nil
		}
		return tx.Model(&Invoice{}).
			Where("id = ? AND owner_id = ?", id, ownerID).
			Updates(map[string]any{
				"status":      InvoiceStatusPaid,
				"amount_paid": inv.Total,
				"client_debt": decimal.Zero,
				"paid_at":     t,
			}).Error
	})
}

// CancelInvoice marks an unpaid invoice as cancelled. The override is sticky
// and wins over the payment-derived status.
func (s *Store) CancelInvoice(id uint, ownerID uint, t time.Time) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var inv Invoice
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND owner_id = ?", id, ownerID).
			First(&inv).Error; err != nil {
			return err
		}
		if inv.Status.Sticky() {
			return nil
		}
		if inv.ComputedStatus() != InvoiceStatusUnpaid {
			return fmt.Errorf("invoice %s has payments and cannot be cancelled", inv.Number)
		}
		return tx.Model(&Invoice{}).
			Where("id = ? AND owner_id = ?", id, ownerID).
			Updates(map[string]any{
				"status":       InvoiceStatusCancelled,
				"cancelled_at": t,
			}).Error
	})
}

// CreditInvoice marks an invoice as credited (avoir issued). Sticky, like
// cancelled; recorded payments are kept but no longer drive the status.
func (s *Store) CreditInvoice(id uint, ownerID uint, t time.Time) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var inv Invoice
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND owner_id = ?", id, ownerID).
			First(&inv).Error; err != nil {
			return err
		}
		if inv.Status.Sticky() {
			return nil
		}
		return tx.Model(&Invoice{}).
			Where("id = ? AND owner_id = ?", id, ownerID).
			Updates(map[string]any{
				"status":      InvoiceStatusCredited,
				"credited_at": t,
			}).Error
	})
}

// RevertInvoice returns an invoice to the unpaid track. Recorded payments
// are preserved and the aggregates are rebuilt from the ledger, so
// amount_paid + client_debt = total holds again afterwards.
func (s *Store) RevertInvoice(id uint, ownerID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var inv Invoice
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND owner_id = ?", id, ownerID).
			First(&inv).Error; err != nil {
			return err
		}
		paid, err := sumPayments(tx, id, ownerID)
		if err != nil {
			return err
		}
		debt := inv.Total.Sub(paid)
		if debt.IsNegative() {
			debt = decimal.Zero
		}
		return tx.Model(&Invoice{}).
			Where("id = ? AND owner_id = ?", id, ownerID).
			Updates(map[string]any{
				"status":       InvoiceStatusUnpaid,
				"amount_paid":  paid,
				"client_debt":  debt,
				"paid_at":      nil,
				"cancelled_at": nil,
				"credited_at":  nil,
			}).Error
	})
}
