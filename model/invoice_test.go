package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/fatoura-app/fatoura/fixtures"
	"github.com/fatoura-app/fatoura/model"
)

func TestInvoice_CreateAssignsNumberAndLedger(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)

	inv := createTestInvoice(t, store, data)
	if inv.Number != "F-0001" {
		t.Errorf("Number = %q, want F-0001", inv.Number)
	}

	loaded := checkLedgerInvariant(t, store, inv.ID)
	if !loaded.AmountPaid.IsZero() {
		t.Errorf("AmountPaid = %s, want 0", loaded.AmountPaid)
	}
	if !loaded.ClientDebt.Equal(loaded.Total) {
		t.Errorf("ClientDebt = %s, want total %s", loaded.ClientDebt, loaded.Total)
	}
	if got := loaded.ComputedStatus(); got != model.InvoiceStatusUnpaid {
		t.Errorf("status = %q, want unpaid", got)
	}
	if len(loaded.Items) != 1 {
		t.Errorf("item count = %d, want 1", len(loaded.Items))
	}
}

func TestInvoice_MarkPaidIsIdempotent(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)
	inv := createTestInvoice(t, store, data)

	now := time.Now()
	if err := store.MarkInvoicePaid(inv.ID, fixtures.DefaultOwnerID, now); err != nil {
		t.Fatalf("MarkInvoicePaid failed: %v", err)
	}
	loaded := checkLedgerInvariant(t, store, inv.ID)
	if got := loaded.ComputedStatus(); got != model.InvoiceStatusPaid {
		t.Fatalf("status = %q, want paid", got)
	}
	if loaded.PaidAt == nil {
		t.Error("PaidAt should be set")
	}

	// second call must not change the ledger
	if err := store.MarkInvoicePaid(inv.ID, fixtures.DefaultOwnerID, now.Add(time.Hour)); err != nil {
		t.Fatalf("second MarkInvoicePaid failed: %v", err)
	}
	again := checkLedgerInvariant(t, store, inv.ID)
	if !again.AmountPaid.Equal(loaded.AmountPaid) {
		t.Errorf("AmountPaid changed on repeated MarkInvoicePaid: %s -> %s", loaded.AmountPaid, again.AmountPaid)
	}
}

func TestInvoice_CancelOnlyWhileUnpaid(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)

	inv := createTestInvoice(t, store, data)
	if _, err := store.AddPayment(newPayment(inv.ID, "100"), fixtures.DefaultOwnerID); err != nil {
		t.Fatalf("AddPayment failed: %v", err)
	}
	if err := store.CancelInvoice(inv.ID, fixtures.DefaultOwnerID, time.Now()); err == nil {
		t.Error("cancelling a partially paid invoice should fail")
	}

	other := createTestInvoice(t, store, data)
	if err := store.CancelInvoice(other.ID, fixtures.DefaultOwnerID, time.Now()); err != nil {
		t.Fatalf("CancelInvoice failed: %v", err)
	}
	loaded, err := store.LoadInvoice(other.ID, fixtures.DefaultOwnerID)
	if err != nil {
		t.Fatalf("LoadInvoice failed: %v", err)
	}
	if got := loaded.ComputedStatus(); got != model.InvoiceStatusCancelled {
		t.Errorf("status = %q, want cancelled", got)
	}
	// cancelling again is a no-op
	if err := store.CancelInvoice(other.ID, fixtures.DefaultOwnerID, time.Now()); err != nil {
		t.Errorf("repeated CancelInvoice should be a no-op, got %v", err)
	}
}

func TestInvoice_CreditOverridesDerivedStatus(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)
	inv := createTestInvoice(t, store, data)

	if _, err := store.AddPayment(newPayment(inv.ID, "500"), fixtures.DefaultOwnerID); err != nil {
		t.Fatalf("AddPayment failed: %v", err)
	}
	if err := store.CreditInvoice(inv.ID, fixtures.DefaultOwnerID, time.Now()); err != nil {
		t.Fatalf("CreditInvoice failed: %v", err)
	}
	loaded, err := store.LoadInvoice(inv.ID, fixtures.DefaultOwnerID)
	if err != nil {
		t.Fatalf("LoadInvoice failed: %v", err)
	}
	if got := loaded.ComputedStatus(); got != model.InvoiceStatusCredited {
		t.Errorf("status = %q, want credited", got)
	}
	// payments stay on record
	payments, err := store.ListPayments(inv.ID, fixtures.DefaultOwnerID)
	if err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}
	if len(payments) != 1 {
		t.Errorf("payment count = %d, want 1", len(payments))
	}
}

func TestInvoice_RevertRebuildsFromLedger(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)
	inv := createTestInvoice(t, store, data) // total 1190

	if _, err := store.AddPayment(newPayment(inv.ID, "300"), fixtures.DefaultOwnerID); err != nil {
		t.Fatalf("AddPayment failed: %v", err)
	}
	if err := store.CreditInvoice(inv.ID, fixtures.DefaultOwnerID, time.Now()); err != nil {
		t.Fatalf("CreditInvoice failed: %v", err)
	}
	if err := store.RevertInvoice(inv.ID, fixtures.DefaultOwnerID); err != nil {
		t.Fatalf("RevertInvoice failed: %v", err)
	}
	loaded := checkLedgerInvariant(t, store, inv.ID)
	if got := loaded.ComputedStatus(); got != model.InvoiceStatusPartiallyPaid {
		t.Errorf("status = %q, want partially_paid", got)
	}
	if !loaded.AmountPaid.Equal(d("300")) {
		t.Errorf("AmountPaid = %s, want 300", loaded.AmountPaid)
	}
	if loaded.CreditedAt != nil {
		t.Error("CreditedAt should be cleared after revert")
	}
}

func TestInvoice_UpdateGuards(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)
	inv := createTestInvoice(t, store, data)

	if _, err := store.AddPayment(newPayment(inv.ID, "100"), fixtures.DefaultOwnerID); err != nil {
		t.Fatalf("AddPayment failed: %v", err)
	}
	edit := fixtures.Invoice(
		fixtures.WithInvoiceClientID(data.Client.ID),
		fixtures.WithInvoiceItems(fixtures.Item(1, "Changed", 1, 50, 19)),
	)
	edit.ID = inv.ID
	if err := store.UpdateInvoice(edit, fixtures.DefaultOwnerID); !errors.Is(err, model.ErrInvoiceHasPayments) {
		t.Errorf("err = %v, want ErrInvoiceHasPayments", err)
	}
}

func TestInvoice_DeleteGuards(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)

	paid := createTestInvoice(t, store, data)
	if err := store.MarkInvoicePaid(paid.ID, fixtures.DefaultOwnerID, time.Now()); err != nil {
		t.Fatalf("MarkInvoicePaid failed: %v", err)
	}
	if err := store.DeleteInvoice(paid.ID, fixtures.DefaultOwnerID); !errors.Is(err, model.ErrInvoiceNotDeletable) {
		t.Errorf("err = %v, want ErrInvoiceNotDeletable", err)
	}

	unpaid := createTestInvoice(t, store, data)
	if err := store.DeleteInvoice(unpaid.ID, fixtures.DefaultOwnerID); err != nil {
		t.Fatalf("DeleteInvoice failed: %v", err)
	}
	if _, err := store.LoadInvoice(unpaid.ID, fixtures.DefaultOwnerID); err == nil {
		t.Error("deleted invoice should not load")
	}
}

func TestInvoice_OwnerScoping(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)
	inv := createTestInvoice(t, store, data)

	if _, err := store.LoadInvoice(inv.ID, 99); err == nil {
		t.Error("foreign owner should not load the invoice")
	}
	invs, err := store.ListInvoices(99)
	if err != nil {
		t.Fatalf("ListInvoices failed: %v", err)
	}
	if len(invs) != 0 {
		t.Errorf("foreign owner sees %d invoices, want 0", len(invs))
	}
}
