package domain

import (
	"fmt"
	"math"
)

// Money is an amount in integer minor units. All arithmetic inside the
// connector happens in cents; the upstream issuer speaks decimal dollars,
// and conversion happens only at the client boundary.
type Money struct {
	CentAmount   int64  `json:"centAmount"`
	CurrencyCode string `json:"currencyCode"`
}

// DollarsToCents converts an upstream decimal-dollar amount to cents.
// Rounding rule: round(dollars * 100).
func DollarsToCents(dollars float64) int64 {
	return int64(math.Round(dollars * 100))
}

// CentsToDollars converts cents to the decimal-dollar representation the
// upstream issuer expects on redeem/refund requests.
func CentsToDollars(cents int64) float64 {
	return float64(cents) / 100
}

func (m Money) IsZero() bool {
	return m.CentAmount == 0
}

func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.CentAmount, m.CurrencyCode)
}
