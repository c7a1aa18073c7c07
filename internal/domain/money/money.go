// Package money normalizes marketplace-supplied amounts and computes the
// derived tax lines of an order.
package money

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ordersync/meli-sync-backend/internal/infrastructure/config"
	"github.com/ordersync/meli-sync-backend/internal/infrastructure/storage"
)

// ParsePrice converts marketplace price text to a decimal. Every rune except
// digits, '.' and '-' is stripped first ("$ 12,345.00" parses as 12345.00).
// Empty or unparsable input yields zero.
func ParsePrice(s string) decimal.Decimal {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}

	cleaned := b.String()
	if cleaned == "" {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ComputeTaxes derives tax lines as fixed percentages of the order total,
// rounded to 2 decimal places
func ComputeTaxes(orderID int64, total decimal.Decimal, rules []config.TaxRule) []storage.OrderTax {
	taxes := make([]storage.OrderTax, 0, len(rules))
	for _, rule := range rules {
		rate := decimal.NewFromFloat(rule.Rate)
		taxes = append(taxes, storage.OrderTax{
			OrderID: orderID,
			Name:    rule.Name,
			Value:   total.Mul(rate).Round(2),
		})
	}
	return taxes
}
