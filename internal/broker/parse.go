package broker

import (
	"strings"

	"github.com/shopspring/decimal"
)

// parseFloat converts a brokerage numeric string. Blank or malformed values
// read as zero.
func parseFloat(s string) float64 {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0
	}

	return d.InexactFloat64()
}

func parseInt64(s string) int64 {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0
	}

	return d.IntPart()
}

func parseInt(s string) int {
	return int(parseInt64(s))
}

// formatPrice renders an order price as the integer won string ORD_UNPR
// expects. Fractions are truncated.
func formatPrice(price float64) string {
	return decimal.NewFromFloat(price).Truncate(0).String()
}
