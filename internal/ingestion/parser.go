package ingestion

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/guttosm/stockdaily/internal/domain/models"
	"github.com/shopspring/decimal"
)

// Field names of one entry in the "Time Series (Daily)" object.
const (
	seriesKey         = "Time Series (Daily)"
	openKey           = "1. open"
	closeKey          = "4. close"
	adjustedVolumeKey = "6. volume"
	volumeKey         = "5. volume"
	seriesDateLayout  = "2006-01-02"
)

// ErrProviderMessage is returned when a 200 response carries an API message
// (invalid call, rate limit note, premium notice) instead of a time series.
var ErrProviderMessage = errors.New("provider returned a message instead of data")

type dailyPayload struct {
	Series       map[string]map[string]string `json:"Time Series (Daily)"`
	ErrorMessage string                       `json:"Error Message"`
	Note         string                       `json:"Note"`
	Information  string                       `json:"Information"`
}

func (p dailyPayload) message() string {
	for _, m := range []string{p.ErrorMessage, p.Note, p.Information} {
		if m != "" {
			return m
		}
	}
	return ""
}

// ParseDailySeries decodes an Alpha Vantage daily time series into records
// for symbol, newest first.
//
// Volume is read from "6. volume" (adjusted function) and falls back to
// "5. volume". Any malformed entry fails the whole payload.
func ParseDailySeries(symbol string, body []byte) ([]models.DailyPrice, error) {
	return parseSeries(symbol, body, nil)
}

// ParseDailySeriesWithin is ParseDailySeries restricted to entries dated inside w.
// Prices and volume of entries outside w are not validated; an unparseable
// date still fails the payload.
func ParseDailySeriesWithin(symbol string, body []byte, w Window) ([]models.DailyPrice, error) {
	return parseSeries(symbol, body, w.Contains)
}

// parseSeries decodes the payload; keep, when non-nil, selects entries by date
// before their fields are parsed.
func parseSeries(symbol string, body []byte, keep func(time.Time) bool) ([]models.DailyPrice, error) {
	var p dailyPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", symbol, err)
	}
	if p.Series == nil {
		if msg := p.message(); msg != "" {
			return nil, fmt.Errorf("%w: %s: %s", ErrProviderMessage, symbol, msg)
		}
		return nil, fmt.Errorf("%s payload has no %q", symbol, seriesKey)
	}

	out := make([]models.DailyPrice, 0, len(p.Series))
	for day, fields := range p.Series {
		d, err := time.Parse(seriesDateLayout, day)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid date %q: %w", symbol, day, err)
		}
		if keep != nil && !keep(d) {
			continue
		}
		rec, err := parseEntry(symbol, day, d, fields)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func parseEntry(symbol, day string, d time.Time, fields map[string]string) (models.DailyPrice, error) {
	open, err := decimal.NewFromString(strings.TrimSpace(fields[openKey]))
	if err != nil {
		return models.DailyPrice{}, fmt.Errorf("%s %s: invalid %q: %w", symbol, day, openKey, err)
	}
	closing, err := decimal.NewFromString(strings.TrimSpace(fields[closeKey]))
	if err != nil {
		return models.DailyPrice{}, fmt.Errorf("%s %s: invalid %q: %w", symbol, day, closeKey, err)
	}

	rawVolume, ok := fields[adjustedVolumeKey]
	if !ok {
		rawVolume = fields[volumeKey]
	}
	volume, err := strconv.ParseInt(strings.TrimSpace(rawVolume), 10, 64)
	if err != nil || volume < 0 {
		return models.DailyPrice{}, fmt.Errorf("%s %s: invalid volume %q", symbol, day, rawVolume)
	}

	return models.DailyPrice{
		Symbol:     symbol,
		Date:       d,
		OpenPrice:  open,
		ClosePrice: closing,
		Volume:     volume,
	}, nil
}
