package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Statistics represents per-field averages over a symbol and date range.
//
// Fields:
//   - AvgOpen, AvgClose: average prices rounded to 2 decimal places.
//   - AvgVolume: average volume rounded to the nearest whole number.
type Statistics struct {
	StartDate time.Time
	EndDate   time.Time
	Symbol    string
	AvgOpen   decimal.Decimal
	AvgClose  decimal.Decimal
	AvgVolume int64
}
