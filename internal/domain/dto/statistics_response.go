package dto

import (
	"github.com/guttosm/stockdaily/internal/domain/models"
	"github.com/shopspring/decimal"
)

// StatisticsData holds the averages for one symbol and date range.
type StatisticsData struct {
	StartDate string          `json:"start_date" example:"2024-01-01"`
	EndDate   string          `json:"end_date" example:"2024-01-14"`
	Symbol    string          `json:"symbol" example:"IBM"`
	AvgOpen   decimal.Decimal `json:"avg_open" swaggertype:"string" example:"160.45"`
	AvgClose  decimal.Decimal `json:"avg_close" swaggertype:"string" example:"161.02"`
	AvgVolume int64           `json:"avg_volume" example:"4410233"`
}

// StatisticsResponse represents the JSON structure returned by GET /statistics.
type StatisticsResponse struct {
	Data StatisticsData `json:"data"`
	Info Info           `json:"info"`
}

// NewStatisticsResponse maps service statistics onto the API contract.
func NewStatisticsResponse(s *models.Statistics) StatisticsResponse {
	return StatisticsResponse{
		Data: StatisticsData{
			StartDate: s.StartDate.Format(DateLayout),
			EndDate:   s.EndDate.Format(DateLayout),
			Symbol:    s.Symbol,
			AvgOpen:   s.AvgOpen,
			AvgClose:  s.AvgClose,
			AvgVolume: s.AvgVolume,
		},
	}
}
