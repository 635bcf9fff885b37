package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/guttosm/stockdaily/internal/domain/models"
	"github.com/guttosm/stockdaily/internal/storage"
)

// MaxLimit is the largest page size a caller may request.
const MaxLimit = 1000

// ErrInvalidPagination is returned when page or limit are out of range.
var ErrInvalidPagination = errors.New("invalid pagination")

// RecordsService defines business logic for listing daily prices and computing statistics.
type RecordsService interface {
	ListRecords(ctx context.Context, filter models.RecordFilter, page, limit int) (*models.RecordPage, error)
	Statistics(ctx context.Context, filter models.RecordFilter) (*models.Statistics, error)
}

type recordsService struct {
	repo storage.PricesRepository
}

func NewRecordsService(repo storage.PricesRepository) RecordsService {
	return &recordsService{repo: repo}
}

// Pages returns ceil(count / limit). A non-positive limit yields 0.
func Pages(count int64, limit int) int64 {
	if limit <= 0 || count <= 0 {
		return 0
	}
	l := int64(limit)
	return (count + l - 1) / l
}

// ListRecords returns one page of records and its pagination metadata.
//
// Behavior:
//   - page must be >= 1 and limit within 1..MaxLimit, otherwise ErrInvalidPagination.
//   - The list query is skipped when the page starts past the last row,
//     including pages whose offset does not fit in an int.
func (s *recordsService) ListRecords(ctx context.Context, filter models.RecordFilter, page, limit int) (*models.RecordPage, error) {
	if page < 1 {
		return nil, fmt.Errorf("%w: page must be >= 1, got %d", ErrInvalidPagination, page)
	}
	if limit < 1 || limit > MaxLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d, got %d", ErrInvalidPagination, MaxLimit, limit)
	}

	count, err := s.repo.CountRecords(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := &models.RecordPage{
		Records: []models.DailyPrice{},
		Pagination: models.Pagination{
			Count: count,
			Page:  page,
			Limit: limit,
			Pages: Pages(count, limit),
		},
	}

	// (page-1)*limit would overflow int; no table has that many rows.
	if page-1 > math.MaxInt/limit {
		return out, nil
	}
	offset := (page - 1) * limit
	if int64(offset) >= count {
		return out, nil
	}

	records, err := s.repo.ListRecords(ctx, filter, limit, offset)
	if err != nil {
		return nil, err
	}
	out.Records = records
	return out, nil
}

// Statistics averages open, close and volume over a symbol and date range.
// Every filter field is required; storage.ErrNotFound is returned unchanged.
func (s *recordsService) Statistics(ctx context.Context, filter models.RecordFilter) (*models.Statistics, error) {
	if !filter.Complete() {
		return nil, storage.ErrIncompleteFilter
	}

	open, err := s.repo.AverageColumn(ctx, storage.ColumnOpenPrice, filter)
	if err != nil {
		return nil, err
	}
	closing, err := s.repo.AverageColumn(ctx, storage.ColumnClosePrice, filter)
	if err != nil {
		return nil, err
	}
	volume, err := s.repo.AverageColumn(ctx, storage.ColumnVolume, filter)
	if err != nil {
		return nil, err
	}

	return &models.Statistics{
		StartDate: *filter.StartDate,
		EndDate:   *filter.EndDate,
		Symbol:    filter.Symbol,
		AvgOpen:   open,
		AvgClose:  closing,
		AvgVolume: volume.IntPart(),
	}, nil
}
