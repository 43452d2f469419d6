package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrInvoiceSettled = fmt.Errorf("invoice has no remaining debt")

// Payment is one append-only ledger row against a final invoice.
type Payment struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	OwnerID   uint            `gorm:"index"`
	InvoiceID uint            `gorm:"index;not null"`
	Amount    decimal.Decimal `sql:"type:decimal(20,8);"`
	Date      time.Time
	Method    string
	Reference string
	Notes     string
}

// AddPayment appends a ledger row and updates the invoice aggregates in the
// SAME transaction, under a row lock on the invoice. Two concurrent payment
// entries therefore serialize on the lock and cannot jointly overpay.
//
// An amount above the remaining debt is clamped to the debt; the returned
// flag tells the caller to surface a notice. Non-positive amounts and
// payments against cancelled/credited or settled invoices are rejected.
func (s *Store) AddPayment(p *Payment, ownerID uint) (clamped bool, err error) {
	if p.OwnerID != ownerID {
		return false, ErrNotAllowed
	}
	if !p.Amount.GreaterThan(decimal.Zero) {
		return false, fmt.Errorf("payment amount must be positive")
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var inv Invoice
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND owner_id = ?", p.InvoiceID, ownerID).
			First(&inv).Error; err != nil {
			return err
		}
		if inv.Status.Sticky() {
			return ErrInvoiceNotPayable
		}
		remaining := inv.Total.Sub(inv.AmountPaid)
		if !remaining.GreaterThan(decimal.Zero) {
			return ErrInvoiceSettled
		}
		if p.Amount.GreaterThan(remaining) {
			p.Amount = remaining
			clamped = true
		}
		if p.Date.IsZero() {
			p.Date = time.Now()
		}
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		return applyLedgerTx(tx, &inv, ownerID)
	})
	if err != nil {
		return false, err
	}
	return clamped, nil
}

// DeletePayment removes a ledger row and rebuilds the invoice aggregates in
// the same transaction.
func (s *Store) DeletePayment(paymentID uint, invoiceID uint, ownerID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var inv Invoice
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND owner_id = ?", invoiceID, ownerID).
			First(&inv).Error; err != nil {
			return err
		}
		res := tx.Where("invoice_id = ? AND owner_id = ?", invoiceID, ownerID).
			Delete(&Payment{}, paymentID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return applyLedgerTx(tx, &inv, ownerID)
	})
}

// ListPayments returns the ledger of one invoice, ordered by payment date
// then insertion order.
func (s *Store) ListPayments(invoiceID uint, ownerID uint) ([]Payment, error) {
	var payments []Payment
	err := s.db.Where("invoice_id = ? AND owner_id = ?", invoiceID, ownerID).
		Order("date asc, id asc").
		Find(&payments).Error
	return payments, err
}

// sumPayments totals the ledger rows of one invoice inside a transaction.
func sumPayments(tx *gorm.DB, invoiceID uint, ownerID uint) (decimal.Decimal, error) {
	var raw string
	err := tx.Model(&Payment{}).
		Where("invoice_id = ? AND owner_id = ?", invoiceID, ownerID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&raw).Error
	if err != nil {
		return decimal.Zero, err
	}
	sum, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum payments for invoice %d: %w", invoiceID, err)
	}
	return sum, nil
}

// applyLedgerTx rebuilds amount_paid/client_debt from the ledger while the
// invoice row is locked, keeping amount_paid + client_debt = total.
func applyLedgerTx(tx *gorm.DB, inv *Invoice, ownerID uint) error {
	paid, err := sumPayments(tx, inv.ID, ownerID)
	if err != nil {
		return err
	}
	debt := inv.Total.Sub(paid)
	if debt.IsNegative() {
		debt = decimal.Zero
	}
	updates := map[string]any{
		"amount_paid": paid,
		"client_debt": debt,
	}
	if !inv.Status.Sticky() {
		if paid.GreaterThanOrEqual(inv.Total) && inv.Total.GreaterThan(decimal.Zero) {
			updates["status"] = InvoiceStatusPaid
		} else if paid.GreaterThan(decimal.Zero) {
			updates["status"] = InvoiceStatusPartiallyPaid
			updates["paid_at"] = nil
		} else {
			updates["status"] = InvoiceStatusUnpaid
			updates["paid_at"] = nil
		}
	}
	return tx.Model(&Invoice{}).
		Where("id = ? AND owner_id = ?", inv.ID, ownerID).
		Updates(updates).Error
}
