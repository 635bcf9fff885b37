package dto

import (
	"github.com/guttosm/stockdaily/internal/domain/models"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format for every date in requests and responses.
const DateLayout = "2006-01-02"

// Info carries the error slot of the success envelope. Error is empty on success.
type Info struct {
	Error string `json:"error" example:""`
}

// RecordResponse is one daily price row on the wire.
type RecordResponse struct {
	Symbol     string          `json:"symbol" example:"IBM"`
	Date       string          `json:"date" example:"2024-01-05"`
	OpenPrice  decimal.Decimal `json:"open_price" swaggertype:"string" example:"160.1200"`
	ClosePrice decimal.Decimal `json:"close_price" swaggertype:"string" example:"161.5000"`
	Volume     int64           `json:"volume" example:"4523100"`
}

// PaginationResponse mirrors models.Pagination.
type PaginationResponse struct {
	Count int64 `json:"count" example:"42"`
	Page  int   `json:"page" example:"1"`
	Limit int   `json:"limit" example:"5"`
	Pages int64 `json:"pages" example:"9"`
}

// RecordsResponse represents the JSON structure returned by GET /records.
type RecordsResponse struct {
	Data       []RecordResponse   `json:"data"`
	Pagination PaginationResponse `json:"pagination"`
	Info       Info               `json:"info"`
}

// NewRecordsResponse maps a service page onto the API contract.
func NewRecordsResponse(page *models.RecordPage) RecordsResponse {
	data := make([]RecordResponse, 0, len(page.Records))
	for _, r := range page.Records {
		data = append(data, RecordResponse{
			Symbol:     r.Symbol,
			Date:       r.Date.Format(DateLayout),
			OpenPrice:  r.OpenPrice,
			ClosePrice: r.ClosePrice,
			Volume:     r.Volume,
		})
	}
	return RecordsResponse{
		Data: data,
		Pagination: PaginationResponse{
			Count: page.Pagination.Count,
			Page:  page.Pagination.Page,
			Limit: page.Pagination.Limit,
			Pages: page.Pagination.Pages,
		},
	}
}
