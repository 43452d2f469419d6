package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProformaStatus is the lifecycle state of a proforma invoice.
type ProformaStatus string

const (
	ProformaStatusDraft    ProformaStatus = "draft"
	ProformaStatusSent     ProformaStatus = "sent"
	ProformaStatusApproved ProformaStatus = "approved"
	ProformaStatusRejected ProformaStatus = "rejected"
)

var (
	ErrProformaNotDraft     = fmt.Errorf("proforma can only be deleted while draft")
	ErrProformaConverted    = fmt.Errorf("proforma already has a final invoice")
	ErrProformaNotApproved  = fmt.Errorf("proforma must be approved")
	ErrProformaNotConverted = fmt.Errorf("proforma has no final invoice")
)

// Proforma is a quote-stage invoice. Once approved it may be converted into
// exactly one final invoice.
type Proforma struct {
	gorm.Model
	OwnerID        uint `gorm:"index"`
	ClientID       uint `gorm:"index"`
	Number         string
	Counter        uint
	Date           time.Time
	PaymentMethod  string
	BC             string // bon de commande reference
	Notes          string
	Items          []ProformaItem
	Subtotal       decimal.Decimal `sql:"type:decimal(20,8);"`
	TaxTotal       decimal.Decimal `sql:"type:decimal(20,8);"`
	StampDuty      decimal.Decimal `sql:"type:decimal(20,8);"`
	Total          decimal.Decimal `sql:"type:decimal(20,8);"`
	Status         ProformaStatus  `gorm:"type:text;not null;default:draft;check:status IN ('draft','sent','approved','rejected');index;index:idx_proforma_owner_status"`
	FinalInvoiceID uint            // 0 while unconverted; at most one final invoice
	SentAt         *time.Time
	ApprovedAt     *time.Time
	RejectedAt     *time.Time
}

// ProformaItem is one line of a proforma.
type ProformaItem struct {
	ID          uint `gorm:"primarykey"`
	CreatedAt   time.Time
	OwnerID     uint
	ProformaID  uint `gorm:"index"`
	Position    int
	ProductID   uint // 0 for free-form lines
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

func (ProformaItem) TableName() string { return "proforma_items" }

// RecomputeTotals rederives the line and document amounts from the raw
// fields. Stored amounts are never trusted from the client.
func (p *Proforma) RecomputeTotals() {
	lines := make([]LineAmounts, len(p.Items))
	for i := range p.Items {
		it := &p.Items[i]
		la := LineTotals(it.Quantity, it.UnitPrice, it.TaxRate, it.DiscountPct)
		it.TotalExcl = la.TotalExcl
		it.TotalTax = la.TotalTax
		it.Total = la.Total
		lines[i] = la
	}
	amounts := Totals(lines, p.PaymentMethod)
	p.Subtotal = amounts.Subtotal
	p.TaxTotal = amounts.TaxTotal
	p.StampDuty = amounts.StampDuty
	p.Total = amounts.Total
}

// CreateProforma assigns a number from the pool and stores the proforma and
// its items. When the sequence cannot be read, a timestamp fallback number
// is used so the document can still be created.
func (s *Store) CreateProforma(p *Proforma, ownerID uint) error {
	if p.OwnerID != ownerID {
		return ErrNotAllowed
	}
	p.Status = ProformaStatusDraft
	p.RecomputeTotals()
	return s.db.Transaction(func(tx *gorm.DB) error {
		if p.Number == "" {
			number, counter, err := nextNumber(tx, ownerID, DocTypeProforma)
			if err != nil {
				number, counter = FallbackNumber(DocTypeProforma, time.Now()), 0
			}
			p.Number = number
			p.Counter = counter
		}
		return saveProformaTx(tx, p, ownerID)
	})
}

// UpdateProforma replaces the proforma fields and all items. Only draft and
// sent proformas may still be edited.
func (s *Store) UpdateProforma(p *Proforma, ownerID uint) error {
	if p.ID == 0 {
		return fmt.Errorf("update proforma: ID is zero")
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var current Proforma
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND owner_id = ?", p.ID, ownerID).
			First(&current).Error; err != nil {
			return err
		}
		if current.Status != ProformaStatusDraft && current.Status != ProformaStatusSent {
			return fmt.Errorf("proforma %s is %s and can no longer be edited", current.Number, current.Status)
		}
		p.Number = current.Number
		p.Counter = current.Counter
		p.Status = current.Status
		p.FinalInvoiceID = current.FinalInvoiceID
		p.RecomputeTotals()
		return saveProformaTx(tx, p, ownerID)
	})
}

func saveProformaTx(tx *gorm.DB, p *Proforma, ownerID uint) error {
	if err := tx.Omit("Items").Save(p).Error; err != nil {
		return err
	}
	if err := tx.Where("proforma_id = ? AND owner_id = ?", p.ID, ownerID).
		Delete(&ProformaItem{}).Error; err != nil {
		return err
	}
	if len(p.Items) > 0 {
		for i := range p.Items {
			p.Items[i].ID = 0
			p.Items[i].ProformaID = p.ID
			p.Items[i].OwnerID = ownerID
		}
		if err := tx.Omit("ID").Create(&p.Items).Error; err != nil {
			return err
		}
	}
	return nil
}

// LoadProforma loads a proforma with its items, recomputing totals.
func (s *Store) LoadProforma(id any, ownerID uint) (*Proforma, error) {
	var p Proforma
	err := s.db.Where("owner_id = ?", ownerID).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Where("owner_id = ?", ownerID).Order("position asc")
		}).
		First(&p, id).Error
	if err != nil {
		return nil, fmt.Errorf("load proforma %v: %w", id, err)
	}
	p.RecomputeTotals()
	return &p, nil
}

// ListProformas returns the owner's proformas, newest first.
func (s *Store) ListProformas(ownerID uint) ([]Proforma, error) {
	var ps []Proforma
	err := s.db.Where("owner_id = ?", ownerID).Order("date desc, id desc").Find(&ps).Error
	return ps, err
}

// DeleteProforma removes a draft proforma and returns its number to the pool.
func (s *Store) DeleteProforma(id uint, ownerID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var p Proforma
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND owner_id = ?", id, ownerID).
			First(&p).Error; err != nil {
			return err
		}
		if p.Status != ProformaStatusDraft {
			return ErrProformaNotDraft
		}
		if err := tx.Where("proforma_id = ? AND owner_id = ?", id, ownerID).
			Delete(&ProformaItem{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&Proforma{}, id).Error; err != nil {
			return err
		}
		return releaseNumber(tx, ownerID, DocTypeProforma, p.Number, p.Counter)
	})
}

// --- Status Transitions ------------------------------------------------------
//
// Allowed transitions:
//   draft    -> sent
//   sent     -> approved | rejected   (capability-gated at the edge)
//   approved -> sent                  (unapprove, only while unconverted)
//   rejected -> (final)
//
// Conversion does not change the status; it sets final_invoice_id under the
// same row lock (see convert.go).

func (s *Store) changeProformaStatus(id uint, ownerID uint, to ProformaStatus, t time.Time) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var p Proforma

		// Lock the row (Postgres: FOR UPDATE; SQLite: no-op)
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND owner_id = ?", id, ownerID).
			First(&p).Error; err != nil {
			return err
		}

		from := p.Status
		if from == to {
			return nil
		}

		allowed := map[ProformaStatus]map[ProformaStatus]bool{
			ProformaStatusDraft:    {ProformaStatusSent: true},
			ProformaStatusSent:     {ProformaStatusApproved: true, ProformaStatusRejected: true},
			ProformaStatusApproved: {ProformaStatusSent: true},
		}
		if _, ok := allowed[from][to]; !ok {
			return fmt.Errorf("invalid status transition %q -> %q", from, to)
		}

		updates := map[string]any{
			"status": to,
		}
		switch to {
		case ProformaStatusSent:
			if from == ProformaStatusApproved {
				// Unapprove is only possible while no final invoice exists.
				if p.FinalInvoiceID != 0 {
					return ErrProformaConverted
				}
				updates["approved_at"] = nil
			} else {
				updates["sent_at"] = t
			}
		case ProformaStatusApproved:
			updates["approved_at"] = t
		case ProformaStatusRejected:
			updates["rejected_at"] = t
		}

		return tx.Model(&Proforma{}).
			Where("id = ? AND owner_id = ?", id, ownerID).
			Updates(updates).Error
	})
}

// SendProforma marks a draft proforma as sent to the client.
func (s *Store) SendProforma(id uint, ownerID uint, t time.Time) error {
	return s.changeProformaStatus(id, ownerID, ProformaStatusSent, t)
}

// ApproveProforma marks a sent proforma as approved.
func (s *Store) ApproveProforma(id uint, ownerID uint, t time.Time) error {
	return s.changeProformaStatus(id, ownerID, ProformaStatusApproved, t)
}

// RejectProforma marks a sent proforma as rejected.
func (s *Store) RejectProforma(id uint, ownerID uint, t time.Time) error {
	return s.changeProformaStatus(id, ownerID, ProformaStatusRejected, t)
}

// UnapproveProforma moves an unconverted approved proforma back to sent.
func (s *Store) UnapproveProforma(id uint, ownerID uint, t time.Time) error {
	return s.changeProformaStatus(id, ownerID, ProformaStatusSent, t)
}
