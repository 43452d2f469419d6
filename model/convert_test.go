package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/fatoura-app/fatoura/fixtures"
	"github.com/fatoura-app/fatoura/model"
)

func approvedProforma(t *testing.T, store *model.Store, data *fixtures.TestData) *model.Proforma {
	t.Helper()
	p := createTestProforma(t, store, data)
	now := time.Now()
	if err := store.SendProforma(p.ID, fixtures.DefaultOwnerID, now); err != nil {
		t.Fatalf("SendProforma failed: %v", err)
	}
	if err := store.ApproveProforma(p.ID, fixtures.DefaultOwnerID, now); err != nil {
		t.Fatalf("ApproveProforma failed: %v", err)
	}
	return p
}

func TestConvertProforma(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)
	p := approvedProforma(t, store, data)

	now := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	inv, err := store.ConvertProforma(p.ID, fixtures.DefaultOwnerID, now)
	if err != nil {
		t.Fatalf("ConvertProforma failed: %v", err)
	}
	if inv.Number != "F-0001" {
		t.Errorf("invoice Number = %q, want F-0001", inv.Number)
	}
	if inv.ProformaID != p.ID {
		t.Errorf("ProformaID = %d, want %d", inv.ProformaID, p.ID)
	}
	if !inv.DueDate.Equal(now.AddDate(0, 1, 0)) {
		t.Errorf("DueDate = %v, want one month after conversion", inv.DueDate)
	}

	loadedP, err := store.LoadProforma(p.ID, fixtures.DefaultOwnerID)
	if err != nil {
		t.Fatalf("LoadProforma failed: %v", err)
	}
	if loadedP.FinalInvoiceID != inv.ID {
		t.Errorf("FinalInvoiceID = %d, want %d", loadedP.FinalInvoiceID, inv.ID)
	}

	loadedInv := checkLedgerInvariant(t, store, inv.ID)
	if !loadedInv.Total.Equal(loadedP.Total) {
		t.Errorf("invoice total %s differs from proforma total %s", loadedInv.Total, loadedP.Total)
	}
	if len(loadedInv.Items) != len(loadedP.Items) {
		t.Errorf("item count %d differs from proforma %d", len(loadedInv.Items), len(loadedP.Items))
	}
	if got := loadedInv.ComputedStatus(); got != model.InvoiceStatusUnpaid {
		t.Errorf("invoice status = %q, want unpaid", got)
	}
}

func TestConvertProforma_Guards(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)

	draft := createTestProforma(t, store, data)
	if _, err := store.ConvertProforma(draft.ID, fixtures.DefaultOwnerID, time.Now()); !errors.Is(err, model.ErrProformaNotApproved) {
		t.Errorf("err = %v, want ErrProformaNotApproved", err)
	}

	p := approvedProforma(t, store, data)
	if _, err := store.ConvertProforma(p.ID, fixtures.DefaultOwnerID, time.Now()); err != nil {
		t.Fatalf("ConvertProforma failed: %v", err)
	}
	// a proforma converts exactly once
	if _, err := store.ConvertProforma(p.ID, fixtures.DefaultOwnerID, time.Now()); !errors.Is(err, model.ErrProformaConverted) {
		t.Errorf("err = %v, want ErrProformaConverted", err)
	}
	// and cannot be unapproved while converted
	if err := store.UnapproveProforma(p.ID, fixtures.DefaultOwnerID, time.Now()); !errors.Is(err, model.ErrProformaConverted) {
		t.Errorf("err = %v, want ErrProformaConverted", err)
	}
}

func TestUndoConversion(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)
	p := approvedProforma(t, store, data)

	inv, err := store.ConvertProforma(p.ID, fixtures.DefaultOwnerID, time.Now())
	if err != nil {
		t.Fatalf("ConvertProforma failed: %v", err)
	}

	if err := store.UndoConversion(p.ID, inv.ID, fixtures.DefaultOwnerID); err != nil {
		t.Fatalf("UndoConversion failed: %v", err)
	}
	loadedP, err := store.LoadProforma(p.ID, fixtures.DefaultOwnerID)
	if err != nil {
		t.Fatalf("LoadProforma failed: %v", err)
	}
	if loadedP.FinalInvoiceID != 0 {
		t.Errorf("FinalInvoiceID = %d, want 0 after undo", loadedP.FinalInvoiceID)
	}
	if loadedP.Status != model.ProformaStatusApproved {
		t.Errorf("Status = %q, want approved after undo", loadedP.Status)
	}
	if _, err := store.LoadInvoice(inv.ID, fixtures.DefaultOwnerID); err == nil {
		t.Error("final invoice should be gone after undo")
	}

	// the freed invoice number is reused on the next conversion
	inv2, err := store.ConvertProforma(p.ID, fixtures.DefaultOwnerID, time.Now())
	if err != nil {
		t.Fatalf("second ConvertProforma failed: %v", err)
	}
	if inv2.Number != inv.Number {
		t.Errorf("Number = %q, want recycled %q", inv2.Number, inv.Number)
	}
}

func TestUndoConversion_BlockedByPayments(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)
	p := approvedProforma(t, store, data)

	inv, err := store.ConvertProforma(p.ID, fixtures.DefaultOwnerID, time.Now())
	if err != nil {
		t.Fatalf("ConvertProforma failed: %v", err)
	}
	if _, err := store.AddPayment(newPayment(inv.ID, "100"), fixtures.DefaultOwnerID); err != nil {
		t.Fatalf("AddPayment failed: %v", err)
	}

	if err := store.UndoConversion(p.ID, inv.ID, fixtures.DefaultOwnerID); !errors.Is(err, model.ErrInvoiceHasPayments) {
		t.Errorf("err = %v, want ErrInvoiceHasPayments", err)
	}
	// nothing changed
	loadedP, err := store.LoadProforma(p.ID, fixtures.DefaultOwnerID)
	if err != nil {
		t.Fatalf("LoadProforma failed: %v", err)
	}
	if loadedP.FinalInvoiceID != inv.ID {
		t.Errorf("FinalInvoiceID = %d, want %d", loadedP.FinalInvoiceID, inv.ID)
	}
}

func TestUndoConversion_LinkMismatch(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)
	p := approvedProforma(t, store, data)

	if _, err := store.ConvertProforma(p.ID, fixtures.DefaultOwnerID, time.Now()); err != nil {
		t.Fatalf("ConvertProforma failed: %v", err)
	}
	standalone := createTestInvoice(t, store, data)
	if err := store.UndoConversion(p.ID, standalone.ID, fixtures.DefaultOwnerID); err == nil {
		t.Error("undo with an unrelated invoice should fail")
	}
}
