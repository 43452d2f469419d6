package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/fatoura-app/fatoura/fixtures"
	"github.com/fatoura-app/fatoura/model"

	"github.com/shopspring/decimal"
)

func createTestDeliveryNote(t *testing.T, store *model.Store, data *fixtures.TestData) *model.DeliveryNote {
	t.Helper()
	dn := fixtures.DeliveryNote(
		fixtures.WithDeliveryClientID(data.Client.ID),
		fixtures.WithDeliveryItems(model.DeliveryItem{
			Position: 1,
			Name:     "Cartons",
			Unit:     "pc",
			Quantity: decimal.NewFromInt(12),
			OwnerID:  fixtures.DefaultOwnerID,
		}),
	)
	if err := store.CreateDeliveryNote(dn, fixtures.DefaultOwnerID); err != nil {
		t.Fatalf("CreateDeliveryNote failed: %v", err)
	}
	return dn
}

func TestDeliveryNote_CreateAndLoad(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)

	dn := createTestDeliveryNote(t, store, data)
	if dn.Number != "BL-0001" {
		t.Errorf("Number = %q, want BL-0001", dn.Number)
	}

	loaded, err := store.LoadDeliveryNote(dn.ID, fixtures.DefaultOwnerID)
	if err != nil {
		t.Fatalf("LoadDeliveryNote failed: %v", err)
	}
	if loaded.Status != model.DeliveryStatusPending {
		t.Errorf("Status = %q, want pending", loaded.Status)
	}
	if len(loaded.Items) != 1 {
		t.Errorf("item count = %d, want 1", len(loaded.Items))
	}
}

func TestDeliveryNote_Transitions(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)
	now := time.Now()

	dn := createTestDeliveryNote(t, store, data)
	if err := store.MarkDelivered(dn.ID, fixtures.DefaultOwnerID, now); err != nil {
		t.Fatalf("MarkDelivered failed: %v", err)
	}
	loaded, err := store.LoadDeliveryNote(dn.ID, fixtures.DefaultOwnerID)
	if err != nil {
		t.Fatalf("LoadDeliveryNote failed: %v", err)
	}
	if loaded.Status != model.DeliveryStatusDelivered {
		t.Errorf("Status = %q, want delivered", loaded.Status)
	}
	if loaded.DeliveredAt == nil {
		t.Error("DeliveredAt should be set")
	}
	// same state is a no-op, a real transition from delivered is not allowed
	if err := store.MarkDelivered(dn.ID, fixtures.DefaultOwnerID, now); err != nil {
		t.Errorf("repeated MarkDelivered should be a no-op, got %v", err)
	}
	if err := store.CancelDeliveryNote(dn.ID, fixtures.DefaultOwnerID, now); err == nil {
		t.Error("cancelling a delivered note should fail")
	}
}

func TestDeliveryNote_EditAndDeleteOnlyPending(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)
	now := time.Now()

	dn := createTestDeliveryNote(t, store, data)
	if err := store.MarkDelivered(dn.ID, fixtures.DefaultOwnerID, now); err != nil {
		t.Fatalf("MarkDelivered failed: %v", err)
	}

	edit := fixtures.DeliveryNote(fixtures.WithDeliveryClientID(data.Client.ID))
	edit.ID = dn.ID
	if err := store.UpdateDeliveryNote(edit, fixtures.DefaultOwnerID); !errors.Is(err, model.ErrDeliveryNotPending) {
		t.Errorf("update err = %v, want ErrDeliveryNotPending", err)
	}
	if err := store.DeleteDeliveryNote(dn.ID, fixtures.DefaultOwnerID); !errors.Is(err, model.ErrDeliveryNotPending) {
		t.Errorf("delete err = %v, want ErrDeliveryNotPending", err)
	}

	pending := createTestDeliveryNote(t, store, data)
	if err := store.DeleteDeliveryNote(pending.ID, fixtures.DefaultOwnerID); err != nil {
		t.Fatalf("DeleteDeliveryNote failed: %v", err)
	}
	if _, err := store.LoadDeliveryNote(pending.ID, fixtures.DefaultOwnerID); err == nil {
		t.Error("deleted delivery note should not load")
	}
}
