package model_test

import (
	"testing"

	"github.com/fatoura-app/fatoura/fixtures"

	"github.com/shopspring/decimal"
)

func TestProduct_AdjustStock(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)

	if err := store.AdjustStock(data.Product.ID, fixtures.DefaultOwnerID, decimal.NewFromInt(50)); err != nil {
		t.Fatalf("AdjustStock failed: %v", err)
	}
	if err := store.AdjustStock(data.Product.ID, fixtures.DefaultOwnerID, decimal.NewFromInt(-20)); err != nil {
		t.Fatalf("AdjustStock failed: %v", err)
	}

	p, err := store.LoadProduct(data.Product.ID, fixtures.DefaultOwnerID)
	if err != nil {
		t.Fatalf("LoadProduct failed: %v", err)
	}
	if !p.Stock.Equal(decimal.NewFromInt(30)) {
		t.Errorf("Stock = %s, want 30", p.Stock)
	}
}

func TestProduct_ListOrder(t *testing.T) {
	store := fixtures.NewTestStore(t)
	_ = fixtures.SeedTestData(t, store)

	products, err := store.ListProducts(fixtures.DefaultOwnerID)
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("product count = %d, want 1", len(products))
	}
	if products[0].Reference != "SRV-001" {
		t.Errorf("Reference = %q, want SRV-001", products[0].Reference)
	}
}
