package core

import "github.com/shopspring/decimal"

// -----------------------------------------------------------------------------

// Round rounds v half away from zero to places decimals.
func Round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// Round2 rounds a money amount or percentage to cents.
func Round2(v float64) float64 {
	return Round(v, 2)
}

// -----------------------------------------------------------------------------

// CalculateChangePercent calculates fractional change; zero when previous is zero.
func CalculateChangePercent(current, previous float64) float64 {
	if previous == 0 {
		return 0.0
	}
	return (current - previous) / previous
}

// -----------------------------------------------------------------------------

// SharesFor is the number of shares allocation buys at price.
func SharesFor(allocation, price float64) float64 {
	if price <= 0 {
		return 0
	}
	return allocation / price
}

// -----------------------------------------------------------------------------

// ShortPnl is the profit of a short bet of allocation that opened at start
// and is marked at current. A 50% drop gains half the allocation.
func ShortPnl(allocation, start, current float64) float64 {
	if start <= 0 {
		return 0
	}
	return -CalculateChangePercent(current, start) * allocation
}
