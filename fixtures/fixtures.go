// Package fixtures provides shared builders and an in-memory store for the
// model tests.
package fixtures

import (
	"testing"
	"time"

	"github.com/fatoura-app/fatoura/model"

	"github.com/shopspring/decimal"
)

// DefaultOwnerID is the owner all fixture data belongs to.
const DefaultOwnerID uint = 1

// NewTestStore opens a fresh in-memory store with the schema migrated.
func NewTestStore(t *testing.T) *model.Store {
	t.Helper()
	store, err := model.OpenMemoryStore(&model.Config{Mode: "development"})
	if err != nil {
		t.Fatalf("cannot open test store: %v", err)
	}
	return store
}

// TestData is the minimal object graph most tests need.
type TestData struct {
	Client  *model.Client
	Product *model.Product
}

// SeedTestData creates a client and a product for DefaultOwnerID.
func SeedTestData(t *testing.T, store *model.Store) *TestData {
	t.Helper()
	client := &model.Client{
		Name:    "SARL Exemple",
		City:    "Alger",
		Country: "Algeria",
		NIF:     "000016000012345",
		RC:      "16/00-1234567B22",
		OwnerID: DefaultOwnerID,
	}
	if err := store.SaveClient(client, DefaultOwnerID); err != nil {
		t.Fatalf("cannot seed client: %v", err)
	}
	product := &model.Product{
		Reference: "SRV-001",
		Name:      "Prestation de service",
		UnitPrice: decimal.NewFromInt(100),
		TaxRate:   decimal.NewFromInt(19),
		Unit:      "h",
		OwnerID:   DefaultOwnerID,
	}
	if err := store.SaveProduct(product, DefaultOwnerID); err != nil {
		t.Fatalf("cannot seed product: %v", err)
	}
	return &TestData{Client: client, Product: product}
}

// Item builds one invoice line without discount.
func Item(position int, name string, qty, price, taxRate float64) model.InvoiceItem {
	return model.InvoiceItem{
		Position:  position,
		Name:      name,
		Quantity:  decimal.NewFromFloat(qty),
		UnitPrice: decimal.NewFromFloat(price),
		TaxRate:   decimal.NewFromFloat(taxRate),
		OwnerID:   DefaultOwnerID,
	}
}

// SampleItems returns three lines totalling 1660 before tax at 19%.
func SampleItems() []model.InvoiceItem {
	return []model.InvoiceItem{
		Item(1, "Prestation A", 8, 120, 19),
		Item(2, "Prestation B", 2, 100, 19),
		Item(3, "Prestation C", 1, 500, 19),
	}
}

// InvoiceOption mutates an invoice under construction.
type InvoiceOption func(*model.Invoice)

func WithInvoiceClientID(id uint) InvoiceOption {
	return func(inv *model.Invoice) { inv.ClientID = id }
}

func WithInvoiceNumber(n string) InvoiceOption {
	return func(inv *model.Invoice) { inv.Number = n }
}

func WithInvoicePaymentMethod(m string) InvoiceOption {
	return func(inv *model.Invoice) { inv.PaymentMethod = m }
}

func WithInvoiceItems(items ...model.InvoiceItem) InvoiceOption {
	return func(inv *model.Invoice) { inv.Items = items }
}

// Invoice builds an invoice with sane defaults and recomputed totals.
func Invoice(opts ...InvoiceOption) *model.Invoice {
	inv := &model.Invoice{
		OwnerID:       DefaultOwnerID,
		Date:          time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		DueDate:       time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC),
		PaymentMethod: model.PaymentMethodTransfer,
	}
	for _, opt := range opts {
		opt(inv)
	}
	inv.RecomputeTotals()
	return inv
}

// ProformaItem builds one proforma line without discount.
func ProformaItem(position int, name string, qty, price, taxRate float64) model.ProformaItem {
	return model.ProformaItem{
		Position:  position,
		Name:      name,
		Quantity:  decimal.NewFromFloat(qty),
		UnitPrice: decimal.NewFromFloat(price),
		TaxRate:   decimal.NewFromFloat(taxRate),
		OwnerID:   DefaultOwnerID,
	}
}

// ProformaOption mutates a proforma under construction.
type ProformaOption func(*model.Proforma)

func WithProformaClientID(id uint) ProformaOption {
	return func(p *model.Proforma) { p.ClientID = id }
}

func WithProformaPaymentMethod(m string) ProformaOption {
	return func(p *model.Proforma) { p.PaymentMethod = m }
}

func WithProformaItems(items ...model.ProformaItem) ProformaOption {
	return func(p *model.Proforma) { p.Items = items }
}

// Proforma builds a proforma with sane defaults and recomputed totals.
func Proforma(opts ...ProformaOption) *model.Proforma {
	p := &model.Proforma{
		OwnerID:       DefaultOwnerID,
		Date:          time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		PaymentMethod: model.PaymentMethodTransfer,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.RecomputeTotals()
	return p
}

// DeliveryNoteOption mutates a delivery note under construction.
type DeliveryNoteOption func(*model.DeliveryNote)

func WithDeliveryClientID(id uint) DeliveryNoteOption {
	return func(dn *model.DeliveryNote) { dn.ClientID = id }
}

func WithDeliveryItems(items ...model.DeliveryItem) DeliveryNoteOption {
	return func(dn *model.DeliveryNote) { dn.Items = items }
}

// DeliveryNote builds a delivery note with sane defaults.
func DeliveryNote(opts ...DeliveryNoteOption) *model.DeliveryNote {
	dn := &model.DeliveryNote{
		OwnerID: DefaultOwnerID,
		Date:    time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
	}
	for _, opt := range opts {
		opt(dn)
	}
	return dn
}
