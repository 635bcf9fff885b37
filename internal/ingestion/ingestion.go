package ingestion

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/guttosm/stockdaily/internal/domain/models"
	"github.com/guttosm/stockdaily/internal/logger"
	"github.com/guttosm/stockdaily/internal/storage"
)

// DefaultWindowDays is how many calendar days back from today are ingested.
const DefaultWindowDays = 14

// repoCtor is an indirection for creating the repository; tests can override this.
var repoCtor = func(db *sql.DB) storage.PricesRepository {
	return storage.NewPricesRepository(db)
}

// Options controls one ingestion run.
type Options struct {
	Symbols    []string
	WindowDays int              // <= 0 uses DefaultWindowDays
	Parallel   int              // symbols fetched concurrently; <= 1 is sequential
	Now        func() time.Time // clock used for the window; nil uses time.Now
}

// SymbolOutcome is the result for one symbol. Err is a provider failure
// (status, transport or payload); Records counts rows upserted.
// Canceled marks a symbol left unfinished because the run was stopped,
// either by a storage failure on another symbol or by the caller; Err stays nil.
type SymbolOutcome struct {
	Symbol   string
	Records  int64
	Err      error
	Canceled bool
}

// Report collects one outcome per symbol, in the configured order.
type Report struct {
	Window   Window
	Outcomes []SymbolOutcome
	Elapsed  time.Duration
}

// Records sums the rows upserted across symbols.
func (r Report) Records() int64 {
	var n int64
	for _, o := range r.Outcomes {
		n += o.Records
	}
	return n
}

// Failed returns the outcomes that carry a provider error.
func (r Report) Failed() []SymbolOutcome {
	var out []SymbolOutcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// Canceled returns the outcomes left unfinished by a stopped run.
func (r Report) Canceled() []SymbolOutcome {
	var out []SymbolOutcome
	for _, o := range r.Outcomes {
		if o.Canceled {
			out = append(out, o)
		}
	}
	return out
}

// AllFailed reports whether at least one symbol ran and every one failed.
func (r Report) AllFailed() bool {
	return len(r.Outcomes) > 0 && len(r.Failed()) == len(r.Outcomes)
}

// RunWithDB is Run over a repository built on db.
func RunWithDB(ctx context.Context, db *sql.DB, fetcher Fetcher, opts Options) (Report, error) {
	// use indirection to allow tests to swap repository constructor
	return Run(ctx, repoCtor(db), fetcher, opts)
}

// Run fetches the trailing window for every symbol and upserts what falls in it.
//
// Behavior:
//   - Each entry of the payload is checked against the window on its own; the
//     provider's ordering is not relied upon.
//   - Provider failures are recorded in the symbol's outcome and logged at warn.
//     They never stop other symbols.
//   - A storage failure cancels the remaining symbols and is returned. Symbols
//     cut short that way (or by ctx) are marked Canceled, not failed.
//   - Up to opts.Parallel symbols are processed at once.
//
// Returns:
//   - Report: one outcome per symbol, even when an error is returned.
//   - error: the first storage failure, or ctx's error when it stopped the run.
func Run(ctx context.Context, repo storage.PricesRepository, fetcher Fetcher, opts Options) (Report, error) {
	log := logger.With("ingestion")

	days := opts.WindowDays
	if days <= 0 {
		days = DefaultWindowDays
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	parallel := opts.Parallel
	if parallel < 1 {
		parallel = 1
	}

	start := time.Now()
	report := Report{
		Window:   TrailingWindow(days, now()),
		Outcomes: make([]SymbolOutcome, len(opts.Symbols)),
	}

	log.Info().
		Strs("symbols", opts.Symbols).
		Str("from", report.Window.Start.Format(seriesDateLayout)).
		Str("to", report.Window.End.Format(seriesDateLayout)).
		Int("parallel", parallel).
		Msg("ingestion start")

	// errgroup cancels siblings on the first storage error.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for i, symbol := range opts.Symbols {
		idx, sym := i, symbol
		report.Outcomes[idx].Symbol = sym

		g.Go(func() error {
			began := time.Now()
			if gctx.Err() != nil {
				report.Outcomes[idx].Canceled = true
				return nil
			}

			records, err := fetchWindow(gctx, fetcher, sym, report.Window)
			if err != nil && gctx.Err() != nil {
				report.Outcomes[idx].Canceled = true
				log.Debug().Str("symbol", sym).Err(err).Msg("symbol canceled")
				return nil
			}
			if err != nil {
				report.Outcomes[idx].Err = err
				log.Warn().Str("symbol", sym).Dur("elapsed", time.Since(began)).Err(err).Msg("symbol skipped")
				return nil
			}

			n, err := repo.UpsertRecords(gctx, records)
			if err != nil {
				log.Error().Str("symbol", sym).Err(err).Msg("upsert failed")
				return fmt.Errorf("symbol %s: %w", sym, err)
			}
			report.Outcomes[idx].Records = n

			log.Info().Str("symbol", sym).Int64("records", n).Dur("elapsed", time.Since(began)).Msg("symbol done")
			return nil
		})
	}

	err := g.Wait()
	if err == nil && len(report.Canceled()) > 0 {
		err = ctx.Err()
	}
	report.Elapsed = time.Since(start)

	log.Info().
		Int64("records", report.Records()).
		Int("failed", len(report.Failed())).
		Int("canceled", len(report.Canceled())).
		Dur("elapsed", report.Elapsed).
		Bool("aborted", err != nil).
		Msg("ingestion finished")

	return report, err
}

// fetchWindow downloads one symbol's series and parses the entries inside w.
func fetchWindow(ctx context.Context, fetcher Fetcher, symbol string, w Window) ([]models.DailyPrice, error) {
	body, err := fetcher.FetchDaily(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return ParseDailySeriesWithin(symbol, body, w)
}
