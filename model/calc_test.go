package model_test

import (
	"testing"

	"github.com/fatoura-app/fatoura/model"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestLineTotals(t *testing.T) {
	tests := []struct {
		name      string
		qty       string
		price     string
		taxRate   string
		discount  string
		wantExcl  string
		wantTax   string
		wantTotal string
	}{
		{"simple line", "10", "100", "19", "0", "1000", "190", "1190"},
		{"ten percent discount", "10", "100", "19", "10", "900", "171", "1071"},
		{"full discount", "4", "250", "19", "100", "0", "0", "0"},
		{"zero tax", "2", "50", "0", "0", "100", "0", "100"},
		{"fractional quantity", "1.5", "100", "9", "0", "150", "13.5", "163.5"},
		{"zero quantity", "0", "100", "19", "0", "0", "0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			la := model.LineTotals(d(tt.qty), d(tt.price), d(tt.taxRate), d(tt.discount))
			if !la.TotalExcl.Equal(d(tt.wantExcl)) {
				t.Errorf("TotalExcl = %s, want %s", la.TotalExcl, tt.wantExcl)
			}
			if !la.TotalTax.Equal(d(tt.wantTax)) {
				t.Errorf("TotalTax = %s, want %s", la.TotalTax, tt.wantTax)
			}
			if !la.Total.Equal(d(tt.wantTotal)) {
				t.Errorf("Total = %s, want %s", la.Total, tt.wantTotal)
			}
			if !la.TotalExcl.Add(la.TotalTax).Equal(la.Total) {
				t.Errorf("TotalExcl + TotalTax = %s, want %s", la.TotalExcl.Add(la.TotalTax), la.Total)
			}
		})
	}
}

func TestStampDuty(t *testing.T) {
	tests := []struct {
		name     string
		subtotal string
		method   string
		want     string
	}{
		{"non-cash pays nothing", "150000", model.PaymentMethodTransfer, "0"},
		{"cheque pays nothing", "150000", model.PaymentMethodCheque, "0"},
		{"below lower bound", "300", model.PaymentMethodCash, "0"},
		{"just above lower bound", "300.01", model.PaymentMethodCash, "3.0001"},
		{"one percent tier", "10000", model.PaymentMethodCash, "100"},
		{"upper edge of one percent", "30000", model.PaymentMethodCash, "300"},
		{"one and a half percent tier", "30000.01", model.PaymentMethodCash, "450.00015"},
		{"upper edge of middle tier", "100000", model.PaymentMethodCash, "1500"},
		{"two percent tier", "100000.01", model.PaymentMethodCash, "2000.0002"},
		{"large cash sale", "150000", model.PaymentMethodCash, "3000"},
		{"zero subtotal", "0", model.PaymentMethodCash, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := model.StampDuty(d(tt.subtotal), tt.method)
			if !got.Equal(d(tt.want)) {
				t.Errorf("StampDuty(%s, %s) = %s, want %s", tt.subtotal, tt.method, got, tt.want)
			}
		})
	}
}

func TestTotals(t *testing.T) {
	lines := []model.LineAmounts{
		model.LineTotals(d("10"), d("100"), d("19"), d("0")),
		model.LineTotals(d("2"), d("330"), d("9"), d("0")),
	}

	t.Run("transfer", func(t *testing.T) {
		got := model.Totals(lines, model.PaymentMethodTransfer)
		if !got.Subtotal.Equal(d("1660")) {
			t.Errorf("Subtotal = %s, want 1660", got.Subtotal)
		}
		if !got.TaxTotal.Equal(d("249.4")) {
			t.Errorf("TaxTotal = %s, want 249.4", got.TaxTotal)
		}
		if !got.StampDuty.IsZero() {
			t.Errorf("StampDuty = %s, want 0", got.StampDuty)
		}
		if !got.Total.Equal(d("1909.4")) {
			t.Errorf("Total = %s, want 1909.4", got.Total)
		}
	})

	t.Run("cash adds stamp duty", func(t *testing.T) {
		got := model.Totals(lines, model.PaymentMethodCash)
		// 1% of 1660
		if !got.StampDuty.Equal(d("16.6")) {
			t.Errorf("StampDuty = %s, want 16.6", got.StampDuty)
		}
		if !got.Total.Equal(got.Subtotal.Add(got.TaxTotal).Add(got.StampDuty)) {
			t.Errorf("Total = %s, want subtotal+tax+stamp", got.Total)
		}
	})

	t.Run("recompute is idempotent", func(t *testing.T) {
		first := model.Totals(lines, model.PaymentMethodCash)
		second := model.Totals(lines, model.PaymentMethodCash)
		if !first.Total.Equal(second.Total) {
			t.Errorf("totals differ between runs: %s vs %s", first.Total, second.Total)
		}
	})

	t.Run("empty document", func(t *testing.T) {
		got := model.Totals(nil, model.PaymentMethodCash)
		if !got.Total.IsZero() || !got.StampDuty.IsZero() {
			t.Errorf("empty document should be all zero, got total %s stamp %s", got.Total, got.StampDuty)
		}
	})
}
