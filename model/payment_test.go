package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/fatoura-app/fatoura/fixtures"
	"github.com/fatoura-app/fatoura/model"

	"github.com/shopspring/decimal"
)

func newPayment(invoiceID uint, amount string) *model.Payment {
	return &model.Payment{
		OwnerID:   fixtures.DefaultOwnerID,
		InvoiceID: invoiceID,
		Amount:    d(amount),
		Date:      time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Method:    model.PaymentMethodTransfer,
	}
}

// checkLedgerInvariant reloads the invoice and verifies
// amount_paid + client_debt = total.
func checkLedgerInvariant(t *testing.T, store *model.Store, id uint) *model.Invoice {
	t.Helper()
	inv, err := store.LoadInvoice(id, fixtures.DefaultOwnerID)
	if err != nil {
		t.Fatalf("LoadInvoice failed: %v", err)
	}
	if !inv.AmountPaid.Add(inv.ClientDebt).Equal(inv.Total) {
		t.Fatalf("ledger invariant broken: paid %s + debt %s != total %s",
			inv.AmountPaid, inv.ClientDebt, inv.Total)
	}
	return inv
}

func createTestInvoice(t *testing.T, store *model.Store, data *fixtures.TestData) *model.Invoice {
	t.Helper()
	inv := fixtures.Invoice(
		fixtures.WithInvoiceClientID(data.Client.ID),
		fixtures.WithInvoiceItems(fixtures.Item(1, "Prestation", 10, 100, 19)),
	)
	if err := store.CreateInvoice(inv, fixtures.DefaultOwnerID); err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}
	return inv
}

func TestAddPayment_Ladder(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)
	inv := createTestInvoice(t, store, data) // total 1190

	clamped, err := store.AddPayment(newPayment(inv.ID, "400"), fixtures.DefaultOwnerID)
	if err != nil {
		t.Fatalf("AddPayment failed: %v", err)
	}
	if clamped {
		t.Error("payment within debt should not be clamped")
	}
	loaded := checkLedgerInvariant(t, store, inv.ID)
	if got := loaded.ComputedStatus(); got != model.InvoiceStatusPartiallyPaid {
		t.Errorf("status = %q, want partially_paid", got)
	}
	if !loaded.AmountPaid.Equal(d("400")) {
		t.Errorf("AmountPaid = %s, want 400", loaded.AmountPaid)
	}

	if _, err := store.AddPayment(newPayment(inv.ID, "790"), fixtures.DefaultOwnerID); err != nil {
		t.Fatalf("AddPayment failed: %v", err)
	}
	loaded = checkLedgerInvariant(t, store, inv.ID)
	if got := loaded.ComputedStatus(); got != model.InvoiceStatusPaid {
		t.Errorf("status = %q, want paid", got)
	}
	if !loaded.ClientDebt.IsZero() {
		t.Errorf("ClientDebt = %s, want 0", loaded.ClientDebt)
	}

	// settled invoices refuse further payments
	if _, err := store.AddPayment(newPayment(inv.ID, "1"), fixtures.DefaultOwnerID); !errors.Is(err, model.ErrInvoiceSettled) {
		t.Errorf("err = %v, want ErrInvoiceSettled", err)
	}
}

func TestAddPayment_ClampsToRemainingDebt(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)
	inv := createTestInvoice(t, store, data) // total 1190

	if _, err := store.AddPayment(newPayment(inv.ID, "1000"), fixtures.DefaultOwnerID); err != nil {
		t.Fatalf("AddPayment failed: %v", err)
	}

	p := newPayment(inv.ID, "500")
	clamped, err := store.AddPayment(p, fixtures.DefaultOwnerID)
	if err != nil {
		t.Fatalf("AddPayment failed: %v", err)
	}
	if !clamped {
		t.Error("overshooting payment should be clamped")
	}
	if !p.Amount.Equal(d("190")) {
		t.Errorf("clamped amount = %s, want 190", p.Amount)
	}
	loaded := checkLedgerInvariant(t, store, inv.ID)
	if got := loaded.ComputedStatus(); got != model.InvoiceStatusPaid {
		t.Errorf("status = %q, want paid", got)
	}
}

func TestAddPayment_Rejections(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)
	inv := createTestInvoice(t, store, data)

	if _, err := store.AddPayment(newPayment(inv.ID, "0"), fixtures.DefaultOwnerID); err == nil {
		t.Error("zero amount should be rejected")
	}
	if _, err := store.AddPayment(newPayment(inv.ID, "-10"), fixtures.DefaultOwnerID); err == nil {
		t.Error("negative amount should be rejected")
	}

	if err := store.CancelInvoice(inv.ID, fixtures.DefaultOwnerID, time.Now()); err != nil {
		t.Fatalf("CancelInvoice failed: %v", err)
	}
	if _, err := store.AddPayment(newPayment(inv.ID, "100"), fixtures.DefaultOwnerID); !errors.Is(err, model.ErrInvoiceNotPayable) {
		t.Errorf("err = %v, want ErrInvoiceNotPayable", err)
	}

	// foreign owner never sees the invoice
	p := newPayment(inv.ID, "100")
	p.OwnerID = 99
	if _, err := store.AddPayment(p, 99); err == nil {
		t.Error("payment from foreign owner should fail")
	}
}

func TestDeletePayment_RebuildsAggregates(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)
	inv := createTestInvoice(t, store, data) // total 1190

	p1 := newPayment(inv.ID, "700")
	p2 := newPayment(inv.ID, "490")
	if _, err := store.AddPayment(p1, fixtures.DefaultOwnerID); err != nil {
		t.Fatalf("AddPayment failed: %v", err)
	}
	if _, err := store.AddPayment(p2, fixtures.DefaultOwnerID); err != nil {
		t.Fatalf("AddPayment failed: %v", err)
	}
	if got := checkLedgerInvariant(t, store, inv.ID).ComputedStatus(); got != model.InvoiceStatusPaid {
		t.Fatalf("status = %q, want paid", got)
	}

	if err := store.DeletePayment(p2.ID, inv.ID, fixtures.DefaultOwnerID); err != nil {
		t.Fatalf("DeletePayment failed: %v", err)
	}
	loaded := checkLedgerInvariant(t, store, inv.ID)
	if !loaded.AmountPaid.Equal(d("700")) {
		t.Errorf("AmountPaid = %s, want 700", loaded.AmountPaid)
	}
	if got := loaded.ComputedStatus(); got != model.InvoiceStatusPartiallyPaid {
		t.Errorf("status = %q, want partially_paid", got)
	}

	if err := store.DeletePayment(9999, inv.ID, fixtures.DefaultOwnerID); err == nil {
		t.Error("deleting unknown payment should fail")
	}
}

func TestListPayments_Order(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)
	inv := createTestInvoice(t, store, data)

	late := newPayment(inv.ID, "100")
	late.Date = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	early := newPayment(inv.ID, "200")
	early.Date = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if _, err := store.AddPayment(late, fixtures.DefaultOwnerID); err != nil {
		t.Fatalf("AddPayment failed: %v", err)
	}
	if _, err := store.AddPayment(early, fixtures.DefaultOwnerID); err != nil {
		t.Fatalf("AddPayment failed: %v", err)
	}

	payments, err := store.ListPayments(inv.ID, fixtures.DefaultOwnerID)
	if err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}
	if len(payments) != 2 {
		t.Fatalf("payment count = %d, want 2", len(payments))
	}
	if !payments[0].Amount.Equal(decimal.NewFromInt(200)) {
		t.Errorf("first payment = %s, want the earlier one (200)", payments[0].Amount)
	}
}
