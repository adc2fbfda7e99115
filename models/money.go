package models

import "github.com/shopspring/decimal"

// LineTotal is quantity * price computed in exact decimal arithmetic.
func LineTotal(price float64, quantity int) decimal.Decimal {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(quantity)))
}

// SumLineTotals adds the stored total_price of every item.
func SumLineTotals(items []OrderItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(decimal.NewFromFloat(item.TotalPrice))
	}
	return sum
}
