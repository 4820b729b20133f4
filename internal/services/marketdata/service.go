// Package marketdata fetches statements, daily quotes and the listed
// company master from J-Quants, caching each as CSV keyed on the
// analysis date so repeat runs on the same day never re-fetch.
package marketdata

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/kabu/internal/common"
	"github.com/ternarybob/kabu/internal/jquants"
	"github.com/ternarybob/kabu/internal/models"
	"github.com/ternarybob/kabu/internal/storage"
)

// Service coordinates API fetches and the CSV cache.
type Service struct {
	client *jquants.Client
	store  *storage.Store
	years  int
	logger arbor.ILogger
}

// NewService creates a market data service. years bounds the quote
// history window ending at the store's analysis date.
func NewService(client *jquants.Client, store *storage.Store, years int, logger arbor.ILogger) *Service {
	return &Service{
		client: client,
		store:  store,
		years:  years,
		logger: logger,
	}
}

// FetchStatements returns the financial statements for a code, sorted by
// disclosure date with gaps in numeric fields filled forward then
// backward. Cached data for the analysis date is used when present.
func (s *Service) FetchStatements(ctx context.Context, code string) ([]models.Statement, error) {
	if s.store.HasStatements(code) {
		s.logger.Info().Str("code", code).Msg("Statement cache hit, skipping fetch")
		return s.store.ReadStatements(code)
	}

	statements, err := s.client.GetStatements(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch statements for %s: %w", code, err)
	}
	if len(statements) == 0 {
		return nil, fmt.Errorf("no statements returned for %s", code)
	}

	sort.SliceStable(statements, func(i, j int) bool {
		return statements[i].DisclosedDate < statements[j].DisclosedDate
	})
	fillStatementGaps(statements)

	if err := s.store.WriteStatements(code, statements); err != nil {
		return nil, err
	}
	s.logger.Info().Str("code", code).Int("rows", len(statements)).Msg("Fetched statements")
	return statements, nil
}

// FetchQuotes returns the daily quotes for a code over the configured
// history window. Cached data for the analysis date is used when present.
func (s *Service) FetchQuotes(ctx context.Context, code string) ([]models.DailyQuote, error) {
	if s.store.HasQuotes(code) {
		s.logger.Info().Str("code", code).Msg("Quote cache hit, skipping fetch")
		return s.store.ReadQuotes(code)
	}

	to := s.store.Date()
	from := common.YearsAgo(to, s.years)
	quotes, err := s.client.GetDailyQuotes(ctx, code, jquants.WithDateRange(from, to))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quotes for %s: %w", code, err)
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("no quotes returned for %s", code)
	}

	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].Date < quotes[j].Date
	})

	if err := s.store.WriteQuotes(code, quotes); err != nil {
		return nil, err
	}
	s.logger.Info().Str("code", code).Int("rows", len(quotes)).Msg("Fetched quotes")
	return quotes, nil
}

// FetchListedInfo returns the listed company master, cached per analysis
// date.
func (s *Service) FetchListedInfo(ctx context.Context) ([]models.ListedCompany, error) {
	if s.store.HasListedInfo() {
		s.logger.Info().Msg("Listed info cache hit, skipping fetch")
		return s.store.ReadListedInfo()
	}

	companies, err := s.client.GetListedInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listed info: %w", err)
	}
	if len(companies) == 0 {
		return nil, fmt.Errorf("listed info endpoint returned no companies")
	}

	if err := s.store.WriteListedInfo(companies); err != nil {
		return nil, err
	}
	s.logger.Info().Int("companies", len(companies)).Msg("Fetched listed company info")
	return companies, nil
}

// FetchAll fetches statements and quotes for every code, consolidating
// all statements into a single file. A failing code is logged and
// skipped so one delisted or typoed entry does not sink a batch run.
func (s *Service) FetchAll(ctx context.Context, codes []string) (map[string][]models.Statement, map[string][]models.DailyQuote, error) {
	statementsByCode := make(map[string][]models.Statement, len(codes))
	quotesByCode := make(map[string][]models.DailyQuote, len(codes))
	var consolidated []models.Statement

	for _, code := range codes {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		statements, err := s.FetchStatements(ctx, code)
		if err != nil {
			s.logger.Warn().Err(err).Str("code", code).Msg("Skipping code, statement fetch failed")
			continue
		}
		quotes, err := s.FetchQuotes(ctx, code)
		if err != nil {
			s.logger.Warn().Err(err).Str("code", code).Msg("Skipping code, quote fetch failed")
			continue
		}

		statementsByCode[code] = statements
		quotesByCode[code] = quotes
		consolidated = append(consolidated, statements...)
	}

	if len(statementsByCode) == 0 {
		return nil, nil, fmt.Errorf("no data fetched for any of %d codes", len(codes))
	}

	if err := s.store.WriteConsolidated(consolidated); err != nil {
		return nil, nil, err
	}
	s.logger.Info().
		Int("requested", len(codes)).
		Int("fetched", len(statementsByCode)).
		Msg("Market data fetch complete")
	return statementsByCode, quotesByCode, nil
}

// fillStatementGaps forward-fills then backward-fills missing numeric
// values across the date-ordered statement slice, so ratios computed
// from older disclosures still have a full row to work with.
func fillStatementGaps(statements []models.Statement) {
	if len(statements) == 0 {
		return
	}
	width := len(statements[0].NumericFields())
	for col := 0; col < width; col++ {
		last := models.OptFloat{}
		for i := range statements {
			field := statements[i].NumericFields()[col]
			if field.Valid {
				last = *field
			} else if last.Valid {
				*field = last
			}
		}
		next := models.OptFloat{}
		for i := len(statements) - 1; i >= 0; i-- {
			field := statements[i].NumericFields()[col]
			if field.Valid {
				next = *field
			} else if next.Valid {
				*field = next
			}
		}
	}
}

// HistoryWindow reports the quote date range for the analysis date.
func (s *Service) HistoryWindow() (from, to time.Time) {
	to = s.store.Date()
	return common.YearsAgo(to, s.years), to
}
