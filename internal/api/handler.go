package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/stockdaily/internal/domain/dto"
	"github.com/guttosm/stockdaily/internal/domain/models"
	"github.com/guttosm/stockdaily/internal/middleware"
	"github.com/guttosm/stockdaily/internal/service"
	"github.com/guttosm/stockdaily/internal/storage"
)

const (
	defaultLimit = 5
	defaultPage  = 1
)

// Handler provides HTTP handlers for the daily price endpoints.
//
// Responsibilities:
//   - Validate incoming HTTP query parameters
//   - Interact with the service layer
//   - Translate service results into response DTOs
//   - Return structured JSON responses with appropriate HTTP status codes
type Handler struct {
	svc service.RecordsService
}

// NewHandler constructs a new Handler instance.
//
// Parameters:
//   - svc (service.RecordsService): business logic used by every endpoint.
//
// Returns:
//   - *Handler: A handler ready to be registered with the router.
func NewHandler(svc service.RecordsService) *Handler {
	return &Handler{svc: svc}
}

// GetRecords handles GET /records requests.
//
// Query Parameters:
//   - start_date (string, optional): inclusive lower bound, YYYY-MM-DD.
//   - end_date (string, optional): inclusive upper bound, YYYY-MM-DD.
//   - symbol (string, optional): ticker symbol.
//   - limit (int, optional, default 5): page size, 1..1000.
//   - page (int, optional, default 1): 1-based page number.
//
// Responses:
//   - 200 OK: RecordsResponse with data, pagination and an empty info.error.
//   - 400 Bad Request: invalid date, limit or page.
//   - 500 Internal Server Error: failure in service or database layer.
//
// GetRecords godoc
// @Summary      List daily price records
// @Description  Returns a page of daily price records filtered by optional date range and symbol
// @Tags         records
// @Accept       json
// @Produce      json
// @Param        start_date  query     string  false  "Start date in YYYY-MM-DD" example(2024-01-01)
// @Param        end_date    query     string  false  "End date in YYYY-MM-DD"   example(2024-01-14)
// @Param        symbol      query     string  false  "Ticker symbol"            example(IBM)
// @Param        limit       query     int     false  "Page size"                default(5)
// @Param        page        query     int     false  "Page number"              default(1)
// @Success      200         {object}  dto.RecordsResponse  "Success"
// @Failure      400         {object}  dto.ErrorResponse    "Bad Request"
// @Failure      500         {object}  dto.ErrorResponse    "Internal Error"
// @Router       /records [get]
func (h *Handler) GetRecords(c *gin.Context) {
	// ─── Parse filters ────────────────────────────────────────
	filter, err := parseFilter(c)
	if err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "invalid query parameters", err)
		return
	}

	// ─── Parse pagination ─────────────────────────────────────
	limit, err := intQuery(c, "limit", defaultLimit)
	if err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "invalid limit", err)
		return
	}
	page, err := intQuery(c, "page", defaultPage)
	if err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "invalid page", err)
		return
	}

	// ─── Query service (with request context) ─────────────────
	out, err := h.svc.ListRecords(c.Request.Context(), filter, page, limit)
	switch {
	case errors.Is(err, service.ErrInvalidPagination):
		middleware.AbortWithError(c, http.StatusBadRequest, "invalid pagination", err)
		return
	case err != nil:
		middleware.AbortWithError(c, http.StatusInternalServerError, "failed to fetch records", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewRecordsResponse(out))
}

// GetStatistics handles GET /statistics requests.
//
// Query Parameters (all required):
//   - start_date, end_date (YYYY-MM-DD), symbol.
//
// Responses:
//   - 200 OK: StatisticsResponse with averaged open, close and volume.
//   - 400 Bad Request: missing or invalid parameter.
//   - 404 Not Found: no rows for the symbol within the range.
//   - 500 Internal Server Error: failure in service or database layer.
//
// GetStatistics godoc
// @Summary      Average prices and volume
// @Description  Returns average open, close and volume for a symbol over an inclusive date range
// @Tags         statistics
// @Accept       json
// @Produce      json
// @Param        start_date  query     string  true  "Start date in YYYY-MM-DD" example(2024-01-01)
// @Param        end_date    query     string  true  "End date in YYYY-MM-DD"   example(2024-01-14)
// @Param        symbol      query     string  true  "Ticker symbol"            example(IBM)
// @Success      200         {object}  dto.StatisticsResponse  "Success"
// @Failure      400         {object}  dto.ErrorResponse       "Bad Request"
// @Failure      404         {object}  dto.ErrorResponse       "Not Found"
// @Failure      500         {object}  dto.ErrorResponse       "Internal Error"
// @Router       /statistics [get]
func (h *Handler) GetStatistics(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "invalid query parameters", err)
		return
	}
	if !filter.Complete() {
		middleware.AbortWithError(c, http.StatusBadRequest, "start_date, end_date and symbol are required", nil)
		return
	}

	stats, err := h.svc.Statistics(c.Request.Context(), filter)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		middleware.AbortWithError(c, http.StatusNotFound, "no data found", err)
		return
	case errors.Is(err, storage.ErrIncompleteFilter):
		middleware.AbortWithError(c, http.StatusBadRequest, "start_date, end_date and symbol are required", err)
		return
	case err != nil:
		middleware.AbortWithError(c, http.StatusInternalServerError, "failed to compute statistics", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewStatisticsResponse(stats))
}

// parseFilter reads start_date, end_date and symbol. Absent values stay absent.
func parseFilter(c *gin.Context) (models.RecordFilter, error) {
	var f models.RecordFilter

	start, err := dateQuery(c, "start_date")
	if err != nil {
		return f, err
	}
	end, err := dateQuery(c, "end_date")
	if err != nil {
		return f, err
	}

	f.StartDate = start
	f.EndDate = end
	f.Symbol = strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	return f, nil
}

func dateQuery(c *gin.Context, key string) (*time.Time, error) {
	s := strings.TrimSpace(c.Query(key))
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(dto.DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("%s must be YYYY-MM-DD: %w", key, err)
	}
	return &d, nil
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	s := strings.TrimSpace(c.Query(key))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
