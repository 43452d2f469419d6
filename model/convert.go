package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConvertProforma snapshots an approved proforma into a new final invoice.
// Allowed exactly once per proforma: the check and the link update happen
// under the proforma row lock, so converting twice cannot create two
// invoices. The new invoice starts unpaid with the full total as debt.
func (s *Store) ConvertProforma(proformaID uint, ownerID uint, now time.Time) (*Invoice, error) {
	var inv *Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var p Proforma
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND owner_id = ?", proformaID, ownerID).
			Preload("Items", func(db *gorm.DB) *gorm.DB {
				return db.Where("owner_id = ?", ownerID).Order("position asc")
			}).
			First(&p).Error; err != nil {
			return err
		}
		if p.Status != ProformaStatusApproved {
			return ErrProformaNotApproved
		}
		if p.FinalInvoiceID != 0 {
			return ErrProformaConverted
		}

		inv = &Invoice{
			OwnerID:       ownerID,
			ClientID:      p.ClientID,
			ProformaID:    p.ID,
			Date:          now,
			DueDate:       now.AddDate(0, 1, 0),
			PaymentMethod: p.PaymentMethod,
			BC:            p.BC,
			Notes:         p.Notes,
			Status:        InvoiceStatusUnpaid,
		}
		for _, it := range p.Items {
			inv.Items = append(inv.Items, InvoiceItem{
				OwnerID:     ownerID,
				Position:    it.Position,
				ProductID:   it.ProductID,
				Name:        it.Name,
				Unit:        it.Unit,
				Quantity:    it.Quantity,
				UnitPrice:   it.UnitPrice,
				TaxRate:     it.TaxRate,
				DiscountPct: it.DiscountPct,
			})
		}
		inv.RecomputeTotals()
		inv.AmountPaid = decimal.Zero
		inv.ClientDebt = inv.Total

		number, counter, err := nextNumber(tx, ownerID, DocTypeInvoice)
		if err != nil {
			// Degraded path: the sequence could not be read. The document is
			// still created, with a non-sequential timestamp number.
			number, counter = FallbackNumber(DocTypeInvoice, now), 0
		}
		inv.Number = number
		inv.Counter = counter

		if err := saveInvoiceTx(tx, inv, ownerID); err != nil {
			return err
		}
		return tx.Model(&Proforma{}).
			Where("id = ? AND owner_id = ?", p.ID, ownerID).
			Update("final_invoice_id", inv.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// UndoConversion deletes the final invoice created from a proforma and
// clears the link, returning the proforma to plain approved. Refused once
// payments exist on the invoice; delete the payments first if the undo is
// really wanted.
func (s *Store) UndoConversion(proformaID uint, invoiceID uint, ownerID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var p Proforma
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND owner_id = ?", proformaID, ownerID).
			First(&p).Error; err != nil {
			return err
		}
		if p.FinalInvoiceID == 0 || p.FinalInvoiceID != invoiceID {
			return ErrProformaNotConverted
		}
		var inv Invoice
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND owner_id = ?", invoiceID, ownerID).
			First(&inv).Error; err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&Payment{}).
			Where("invoice_id = ? AND owner_id = ?", invoiceID, ownerID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrInvoiceHasPayments
		}
		return deleteInvoiceTx(tx, &inv, ownerID)
	})
}
