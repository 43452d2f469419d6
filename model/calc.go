package model

import (
	"github.com/shopspring/decimal"
)

// Payment methods accepted on documents. Stamp duty (droit de timbre) only
// applies to cash settlements.
const (
	PaymentMethodCash     = "cash"
	PaymentMethodTransfer = "transfer"
	PaymentMethodCheque   = "cheque"
	PaymentMethodCard     = "card"
)

var hundred = decimal.NewFromInt(100)
var one = decimal.NewFromInt(1)

// Stamp duty thresholds on the pre-tax subtotal. Exclusive lower bounds,
// evaluated highest first.
var (
	stampTier1Limit = decimal.NewFromInt(100000)
	stampTier1Rate  = decimal.NewFromFloat(0.02)
	stampTier2Limit = decimal.NewFromInt(30000)
	stampTier2Rate  = decimal.NewFromFloat(0.015)
	stampTier3Limit = decimal.NewFromInt(300)
	stampTier3Rate  = decimal.NewFromFloat(0.01)
)

// LineAmounts holds the derived amounts of a single document line.
type LineAmounts struct {
	TotalExcl decimal.Decimal
	TotalTax  decimal.Decimal
	Total     decimal.Decimal
}

// DocumentAmounts holds the derived amounts of a whole document.
type DocumentAmounts struct {
	Subtotal  decimal.Decimal
	TaxTotal  decimal.Decimal
	StampDuty decimal.Decimal
	Total     decimal.Decimal
}

// LineTotals computes the amounts of one line. The discount is a percentage
// of the line subtotal (0-100), the tax rate a percentage (0-100).
//
//	totalExcl = quantity * unitPrice * (1 - discount/100)
//	totalTax  = totalExcl * taxRate/100
//	total     = totalExcl + totalTax
func LineTotals(quantity, unitPrice, taxRate, discountPct decimal.Decimal) LineAmounts {
	totalExcl := quantity.Mul(unitPrice).Mul(one.Sub(discountPct.Div(hundred)))
	totalTax := totalExcl.Mul(taxRate).Div(hundred)
	return LineAmounts{
		TotalExcl: totalExcl,
		TotalTax:  totalTax,
		Total:     totalExcl.Add(totalTax),
	}
}

// StampDuty returns the droit de timbre for the given pre-tax subtotal.
// It is zero for every payment method except cash. Thresholds are exclusive
// lower bounds; the highest matching tier wins.
func StampDuty(subtotal decimal.Decimal, paymentMethod string) decimal.Decimal {
	if paymentMethod != PaymentMethodCash {
		return decimal.Zero
	}
	switch {
	case subtotal.GreaterThan(stampTier1Limit):
		return subtotal.Mul(stampTier1Rate)
	case subtotal.GreaterThan(stampTier2Limit):
		return subtotal.Mul(stampTier2Rate)
	case subtotal.GreaterThan(stampTier3Limit):
		return subtotal.Mul(stampTier3Rate)
	}
	return decimal.Zero
}

// Totals aggregates line amounts into document amounts, including stamp duty.
func Totals(lines []LineAmounts, paymentMethod string) DocumentAmounts {
	subtotal := decimal.Zero
	taxTotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.TotalExcl)
		taxTotal = taxTotal.Add(l.TotalTax)
	}
	stamp := StampDuty(subtotal, paymentMethod)
	return DocumentAmounts{
		Subtotal:  subtotal,
		TaxTotal:  taxTotal,
		StampDuty: stamp,
		Total:     subtotal.Add(taxTotal).Add(stamp),
	}
}
