package ledger

import "math"

// Currency is one of the closed set of currencies the fleet operates
// in. USD is the base accounting unit.
type Currency string

const (
	USD Currency = "USD"
	UZS Currency = "UZS"
	KZT Currency = "KZT"
	RUB Currency = "RUB"
)

// RateTable maps a currency to how many of its units buy one base
// unit. The base currency itself has rate 1.
type RateTable map[Currency]float64

// DefaultRates returns the built-in rate table. Production deployments
// override it from configuration; records additionally carry the rate
// snapshotted at entry time.
func DefaultRates() RateTable {
	return RateTable{
		USD: 1,
		UZS: 12800,
		KZT: 480,
		RUB: 90,
	}
}

// Converter converts between the base currency and the alternates.
// It is stateless given its rate table and safe for concurrent use.
type Converter struct {
	rates RateTable
}

func NewConverter(rates RateTable) Converter {
	if rates == nil {
		rates = DefaultRates()
	}
	return Converter{rates: rates}
}

// Known reports whether the converter has a rate for the currency.
func (c Converter) Known(cur Currency) bool {
	r, ok := c.rates[cur]
	return ok && r > 0
}

// rate resolves the effective rate: an explicit per-record override
// wins over the table; zero means "not convertible here".
func (c Converter) rate(cur Currency, override float64) float64 {
	if override > 0 {
		return override
	}
	if r, ok := c.rates[cur]; ok && r > 0 {
		return r
	}
	return 0
}

// ToBase converts an amount denominated in cur into the base currency,
// rounded to 2 decimals at the point of conversion so downstream sums
// exactly match the sum of already-rounded line items. A zero amount
// yields 0; an unknown currency passes through unchanged.
func (c Converter) ToBase(amount float64, cur Currency, override float64) float64 {
	if amount == 0 {
		return 0
	}
	r := c.rate(cur, override)
	if r == 0 {
		return Round2(amount)
	}
	return Round2(amount / r)
}

// FromBase converts a base-currency amount into cur. An unknown
// currency passes through unchanged.
func (c Converter) FromBase(amount float64, cur Currency, override float64) float64 {
	if amount == 0 {
		return 0
	}
	r := c.rate(cur, override)
	if r == 0 {
		return Round2(amount)
	}
	return Round2(amount * r)
}

// Round2 rounds to 2 decimal places, half away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Round3 rounds to 3 decimal places, half away from zero.
func Round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
