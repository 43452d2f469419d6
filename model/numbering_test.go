package model_test

import (
	"testing"
	"time"

	"github.com/fatoura-app/fatoura/fixtures"
	"github.com/fatoura-app/fatoura/model"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		dt      model.DocType
		counter uint
		want    string
	}{
		{model.DocTypeInvoice, 1, "F-0001"},
		{model.DocTypeInvoice, 42, "F-0042"},
		{model.DocTypeProforma, 7, "P-0007"},
		{model.DocTypeDelivery, 12345, "BL-12345"},
	}
	for _, tt := range tests {
		if got := model.FormatNumber(tt.dt, tt.counter); got != tt.want {
			t.Errorf("FormatNumber(%s, %d) = %q, want %q", tt.dt, tt.counter, got, tt.want)
		}
	}
}

func TestFallbackNumber(t *testing.T) {
	ts := time.Date(2026, 3, 10, 14, 30, 5, 0, time.UTC)
	if got := model.FallbackNumber(model.DocTypeInvoice, ts); got != "F-20260310143005" {
		t.Errorf("FallbackNumber = %q, want F-20260310143005", got)
	}
}

func TestNumbering_RecyclesOldestFirst(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)

	first := createTestInvoice(t, store, data)
	second := createTestInvoice(t, store, data)
	third := createTestInvoice(t, store, data)
	if first.Number != "F-0001" || second.Number != "F-0002" || third.Number != "F-0003" {
		t.Fatalf("sequence = %q %q %q, want F-0001 F-0002 F-0003",
			first.Number, second.Number, third.Number)
	}

	// free two numbers, oldest deletion first
	if err := store.DeleteInvoice(second.ID, fixtures.DefaultOwnerID); err != nil {
		t.Fatalf("DeleteInvoice failed: %v", err)
	}
	if err := store.DeleteInvoice(first.ID, fixtures.DefaultOwnerID); err != nil {
		t.Fatalf("DeleteInvoice failed: %v", err)
	}

	reuse1 := createTestInvoice(t, store, data)
	if reuse1.Number != "F-0002" {
		t.Errorf("Number = %q, want recycled F-0002 (freed first)", reuse1.Number)
	}
	reuse2 := createTestInvoice(t, store, data)
	if reuse2.Number != "F-0001" {
		t.Errorf("Number = %q, want recycled F-0001", reuse2.Number)
	}

	// pool exhausted, the sequence continues after the maximum
	fresh := createTestInvoice(t, store, data)
	if fresh.Number != "F-0004" {
		t.Errorf("Number = %q, want F-0004", fresh.Number)
	}
}

func TestNumbering_SequencesAreIndependent(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)

	inv := createTestInvoice(t, store, data)
	p := createTestProforma(t, store, data)
	dn := createTestDeliveryNote(t, store, data)

	if inv.Number != "F-0001" {
		t.Errorf("invoice Number = %q, want F-0001", inv.Number)
	}
	if p.Number != "P-0001" {
		t.Errorf("proforma Number = %q, want P-0001", p.Number)
	}
	if dn.Number != "BL-0001" {
		t.Errorf("delivery Number = %q, want BL-0001", dn.Number)
	}
}

func TestNumbering_PerOwner(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)

	_ = createTestInvoice(t, store, data)

	other := fixtures.Invoice(fixtures.WithInvoiceItems(fixtures.Item(1, "X", 1, 10, 19)))
	other.OwnerID = 2
	if err := store.CreateInvoice(other, 2); err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}
	if other.Number != "F-0001" {
		t.Errorf("Number = %q, want per-owner F-0001", other.Number)
	}
}
