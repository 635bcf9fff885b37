package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/guttosm/stockdaily/internal/domain/models"
	"github.com/shopspring/decimal"
)

// dateLayout is how dates are bound to DATE columns.
const dateLayout = "2006-01-02"

var (
	// ErrNotFound is returned when an aggregate has no rows to work on.
	ErrNotFound = errors.New("data not found")
	// ErrIncompleteFilter is returned when an operation needs every filter field.
	ErrIncompleteFilter = errors.New("start date, end date and symbol are all required")
	// ErrInvalidColumn is returned for a column outside the averageable set.
	ErrInvalidColumn = errors.New("column cannot be averaged")
)

// Column names a numeric column that can be averaged.
type Column string

const (
	ColumnOpenPrice  Column = "open_price"
	ColumnClosePrice Column = "close_price"
	ColumnVolume     Column = "volume"
)

// roundPlaces returns the decimal places an average of c is rounded to.
func (c Column) roundPlaces() (int32, error) {
	switch c {
	case ColumnOpenPrice, ColumnClosePrice:
		return 2, nil
	case ColumnVolume:
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidColumn, string(c))
	}
}

// PricesRepository defines contract for DB operations on daily_prices.
type PricesRepository interface {
	CountRecords(ctx context.Context, filter models.RecordFilter) (int64, error)
	ListRecords(ctx context.Context, filter models.RecordFilter, limit, offset int) ([]models.DailyPrice, error)
	AverageColumn(ctx context.Context, column Column, filter models.RecordFilter) (decimal.Decimal, error)
	UpsertRecords(ctx context.Context, records []models.DailyPrice) (int64, error)
}

type pricesRepository struct {
	db *sql.DB
}

func NewPricesRepository(db *sql.DB) PricesRepository {
	return &pricesRepository{db: db}
}

// CountRecords returns how many rows match the optional filters.
func (r *pricesRepository) CountRecords(ctx context.Context, filter models.RecordFilter) (int64, error) {
	where, args := filterPredicates(filter).where()
	query := "SELECT COUNT(*) FROM daily_prices " + where

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

// ListRecords returns one page of rows matching the optional filters,
// ordered by the natural key so consecutive pages never overlap.
func (r *pricesRepository) ListRecords(ctx context.Context, filter models.RecordFilter, limit, offset int) ([]models.DailyPrice, error) {
	where, args := filterPredicates(filter).where()
	args = append(args, limit, offset)
	query := fmt.Sprintf(
		"SELECT symbol, date, open_price, close_price, volume FROM daily_prices %s ORDER BY date, symbol LIMIT $%d OFFSET $%d",
		where, len(args)-1, len(args),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]models.DailyPrice, 0, limit)
	for rows.Next() {
		var p models.DailyPrice
		if err := rows.Scan(&p.Symbol, &p.Date, &p.OpenPrice, &p.ClosePrice, &p.Volume); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// AverageColumn returns AVG(column) over the symbol and inclusive date range,
// rounded to 2 places for prices and 0 for volume.
//
// Every filter field is required. A NULL aggregate (no matching rows) is ErrNotFound.
func (r *pricesRepository) AverageColumn(ctx context.Context, column Column, filter models.RecordFilter) (decimal.Decimal, error) {
	places, err := column.roundPlaces()
	if err != nil {
		return decimal.Zero, err
	}
	if !filter.Complete() {
		return decimal.Zero, ErrIncompleteFilter
	}

	cond, args := filterPredicates(filter).conjunction()
	query := fmt.Sprintf("SELECT AVG(%s) FROM daily_prices WHERE %s", column, cond)

	var avg decimal.NullDecimal
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&avg); err != nil {
		return decimal.Zero, fmt.Errorf("average %s: %w", column, err)
	}
	if !avg.Valid {
		return decimal.Zero, ErrNotFound
	}
	return avg.Decimal.Round(places), nil
}

const upsertQuery = `
	INSERT INTO daily_prices (symbol, date, open_price, close_price, volume)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (symbol, date) DO UPDATE SET
		open_price = EXCLUDED.open_price,
		close_price = EXCLUDED.close_price,
		volume = EXCLUDED.volume
`

// UpsertRecords writes records in a single transaction; existing
// (symbol, date) rows get the new prices and volume.
func (r *pricesRepository) UpsertRecords(ctx context.Context, records []models.DailyPrice) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertQuery)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	var written int64
	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx,
			rec.Symbol,
			rec.Date.Format(dateLayout),
			rec.OpenPrice,
			rec.ClosePrice,
			rec.Volume,
		); err != nil {
			return 0, fmt.Errorf("upsert %s %s: %w", rec.Symbol, rec.Date.Format(dateLayout), err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}
	return written, nil
}
