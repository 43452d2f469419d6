package model

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// PDFTemplate is an uploaded letterhead PDF used as the background when
// rendering printable documents. The file is stored under a generated name;
// previews are PNGs rendered from the first pages.
type PDFTemplate struct {
	gorm.Model
	OwnerID         uint   `gorm:"index"`
	Name            string `gorm:"size:200"`
	PDFPath         string // stored filename under the owner's asset dir
	PageWidthCm     float64
	PageHeightCm    float64
	PreviewPage1URL string
	PreviewPage2URL string
}

// SavePDFTemplate creates or updates a template. Ownership is enforced.
func (s *Store) SavePDFTemplate(t *PDFTemplate, ownerID uint) error {
	if t.OwnerID != ownerID {
		return ErrNotAllowed
	}
	return s.db.Save(t).Error
}

// LoadPDFTemplate loads one template within the owner scope.
func (s *Store) LoadPDFTemplate(id any, ownerID uint) (*PDFTemplate, error) {
	var t PDFTemplate
	if err := s.db.Where("owner_id = ?", ownerID).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ListPDFTemplates returns the owner's templates.
func (s *Store) ListPDFTemplates(ownerID uint) ([]PDFTemplate, error) {
	var ts []PDFTemplate
	err := s.db.Where("owner_id = ?", ownerID).Order("name asc").Find(&ts).Error
	return ts, err
}

// DeletePDFTemplate removes a template record. The caller removes the files.
func (s *Store) DeletePDFTemplate(id uint, ownerID uint) error {
	return s.db.Where("owner_id = ?", ownerID).Delete(&PDFTemplate{}, id).Error
}

// DocumentFields is the flat surface consumed by the external placeholder
// substitution engine: scalar fields plus one row map per document line.
type DocumentFields struct {
	Fields map[string]string
	Items  []map[string]string
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

func clientFields(f map[string]string, c *Client) {
	if c == nil {
		return
	}
	f["client_name"] = c.Name
	f["client_address1"] = c.Address1
	f["client_address2"] = c.Address2
	f["client_city"] = c.City
	f["client_nif"] = c.NIF
	f["client_rc"] = c.RC
	f["client_ai"] = c.AI
	f["client_nis"] = c.NIS
}

// InvoiceFields flattens a final invoice for the templating collaborator.
func InvoiceFields(inv *Invoice, c *Client) DocumentFields {
	f := map[string]string{
		"number":         inv.Number,
		"date":           formatDate(inv.Date),
		"due_date":       formatDate(inv.DueDate),
		"payment_method": inv.PaymentMethod,
		"bc":             inv.BC,
		"notes":          inv.Notes,
		"status":         string(inv.ComputedStatus()),
		"subtotal":       inv.Subtotal.Round(2).StringFixed(2),
		"tax_total":      inv.TaxTotal.Round(2).StringFixed(2),
		"stamp_duty":     inv.StampDuty.Round(2).StringFixed(2),
		"total":          inv.Total.Round(2).StringFixed(2),
		"amount_paid":    inv.AmountPaid.Round(2).StringFixed(2),
		"client_debt":    inv.ClientDebt.Round(2).StringFixed(2),
	}
	clientFields(f, c)
	items := make([]map[string]string, 0, len(inv.Items))
	for _, it := range inv.Items {
		items = append(items, map[string]string{
			"name":       it.Name,
			"unit":       it.Unit,
			"quantity":   it.Quantity.String(),
			"unit_price": it.UnitPrice.Round(2).StringFixed(2),
			"tax_rate":   it.TaxRate.String(),
			"discount":   it.DiscountPct.String(),
			"total":      it.TotalExcl.Round(2).StringFixed(2),
		})
	}
	return DocumentFields{Fields: f, Items: items}
}

// ProformaFields flattens a proforma for the templating collaborator.
func ProformaFields(p *Proforma, c *Client) DocumentFields {
	f := map[string]string{
		"number":         p.Number,
		"date":           formatDate(p.Date),
		"payment_method": p.PaymentMethod,
		"bc":             p.BC,
		"notes":          p.Notes,
		"status":         string(p.Status),
		"subtotal":       p.Subtotal.Round(2).StringFixed(2),
		"tax_total":      p.TaxTotal.Round(2).StringFixed(2),
		"stamp_duty":     p.StampDuty.Round(2).StringFixed(2),
		"total":          p.Total.Round(2).StringFixed(2),
	}
	clientFields(f, c)
	items := make([]map[string]string, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, map[string]string{
			"name":       it.Name,
			"unit":       it.Unit,
			"quantity":   it.Quantity.String(),
			"unit_price": it.UnitPrice.Round(2).StringFixed(2),
			"tax_rate":   it.TaxRate.String(),
			"discount":   it.DiscountPct.String(),
			"total":      it.TotalExcl.Round(2).StringFixed(2),
		})
	}
	return DocumentFields{Fields: f, Items: items}
}

// DeliveryNoteFields flattens a delivery note for the templating collaborator.
func DeliveryNoteFields(dn *DeliveryNote, c *Client) DocumentFields {
	f := map[string]string{
		"number": dn.Number,
		"date":   formatDate(dn.Date),
		"notes":  dn.Notes,
		"status": string(dn.Status),
	}
	clientFields(f, c)
	items := make([]map[string]string, 0, len(dn.Items))
	for _, it := range dn.Items {
		items = append(items, map[string]string{
			"name":     it.Name,
			"unit":     it.Unit,
			"quantity": it.Quantity.String(),
		})
	}
	return DocumentFields{Fields: f, Items: items}
}
