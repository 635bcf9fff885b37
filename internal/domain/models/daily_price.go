package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyPrice represents one row of the daily_prices table.
//
// (Symbol, Date) is the natural key; re-ingesting the same pair overwrites
// the price and volume fields.
//
// swagger:model DailyPrice
type DailyPrice struct {
	Symbol     string
	Date       time.Time
	OpenPrice  decimal.Decimal
	ClosePrice decimal.Decimal
	Volume     int64
}

// RecordFilter narrows record queries. A nil date or empty symbol is absent.
type RecordFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Symbol    string
}

// Complete reports whether every filter field is present.
func (f RecordFilter) Complete() bool {
	return f.StartDate != nil && f.EndDate != nil && f.Symbol != ""
}
