package controller

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

var commaperiod = strings.NewReplacer(",", ".")

func parseUintParam(c echo.Context, name string) (uint, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(n), nil
}

// parseDecimal accepts both comma and period as decimal separator. Empty
// input counts as zero.
func parseDecimal(in string) (decimal.Decimal, error) {
	in = strings.TrimSpace(in)
	if in == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(commaperiod.Replace(in))
}
