package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/kabu/internal/common"
	"github.com/ternarybob/kabu/internal/jquants"
	"github.com/ternarybob/kabu/internal/models"
	"github.com/ternarybob/kabu/internal/services/analysis"
	"github.com/ternarybob/kabu/internal/services/chart"
	"github.com/ternarybob/kabu/internal/services/marketdata"
	"github.com/ternarybob/kabu/internal/services/report"
	"github.com/ternarybob/kabu/internal/services/scheduler"
	"github.com/ternarybob/kabu/internal/storage"
)

// App wires the pipeline together for a single analysis date.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	Client     *jquants.Client
	Store      *storage.Store
	MarketData *marketdata.Service
	Analysis   *analysis.Service
	Charts     *chart.Service
	Report     *report.Service
	Scheduler  *scheduler.Service
}

// New builds the application for the given analysis date.
func New(config *common.Config, logger arbor.ILogger, date time.Time) (*App, error) {
	if !config.JQuants.HasCredentials() {
		return nil, fmt.Errorf("no J-Quants credentials configured: set a refresh token or mail address and password")
	}

	client := jquants.NewClient(
		jquants.Credentials{
			RefreshToken: config.JQuants.RefreshToken,
			MailAddress:  config.JQuants.MailAddress,
			Password:     config.JQuants.Password,
		},
		jquants.WithBaseURL(config.JQuants.BaseURL),
		jquants.WithHTTPClient(&http.Client{Timeout: config.JQuants.HTTPTimeout()}),
		jquants.WithRateLimit(config.JQuants.RateLimit),
		jquants.WithLogger(logger),
	)

	store := storage.NewStore(config.Data.Dir, config.Report.OutputDir, date, logger)
	charts := chart.NewService(logger)

	return &App{
		Config:     config,
		Logger:     logger,
		Client:     client,
		Store:      store,
		MarketData: marketdata.NewService(client, store, config.Data.Years, logger),
		Analysis:   analysis.NewService(logger),
		Charts:     charts,
		Report:     report.NewService(charts, logger),
		Scheduler:  scheduler.NewService(logger),
	}, nil
}

// RunSingle produces a one-company report for the given raw code.
func (a *App) RunSingle(ctx context.Context, rawCode string) (string, error) {
	runID := common.NewRunID()
	logger := a.Logger.WithCorrelationId(runID)

	code, err := common.NormalizeCode(rawCode)
	if err != nil {
		return "", err
	}
	logger.Info().Str("code", code).Msg("Starting single-company run")

	names, err := a.companyNames(ctx)
	if err != nil {
		return "", err
	}

	metrics, err := a.analyzeCode(ctx, code, names)
	if err != nil {
		return "", err
	}

	content, err := a.Report.BuildSingle(metrics)
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("%s_%s_report.pdf", code, common.FormatDateShort(a.Store.Date()))
	path, err := a.saveAndValidate(filename, content)
	if err != nil {
		return "", err
	}
	logger.Info().Str("path", path).Msg("Report complete")
	return path, nil
}

// RunWatchlist produces the multi-company report for the configured
// watchlist. A code that fails to fetch or analyze is skipped; the run
// only fails when nothing at all could be analyzed.
func (a *App) RunWatchlist(ctx context.Context) (string, error) {
	runID := common.NewRunID()
	logger := a.Logger.WithCorrelationId(runID)

	codes, err := common.NormalizeCodes(a.Config.Report.Watchlist)
	if err != nil {
		return "", err
	}
	logger.Info().Int("codes", len(codes)).Msg("Starting watchlist run")

	names, err := a.companyNames(ctx)
	if err != nil {
		return "", err
	}

	statementsByCode, quotesByCode, err := a.MarketData.FetchAll(ctx, codes)
	if err != nil {
		return "", err
	}

	var results []*models.Metrics
	for _, code := range codes {
		statements, ok := statementsByCode[code]
		if !ok {
			continue
		}
		metrics, err := a.Analysis.Analyze(code, nameFor(names, code), quotesByCode[code], statements, a.Store.Date())
		if err != nil {
			logger.Warn().Err(err).Str("code", code).Msg("Skipping code, analysis failed")
			continue
		}
		results = append(results, metrics)
	}
	if len(results) == 0 {
		return "", fmt.Errorf("no companies could be analyzed")
	}

	content, err := a.Report.BuildMulti(results)
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("%s_multi_report.pdf", common.FormatDateShort(a.Store.Date()))
	path, err := a.saveAndValidate(filename, content)
	if err != nil {
		return "", err
	}
	logger.Info().Str("path", path).Int("companies", len(results)).Msg("Watchlist report complete")
	return path, nil
}

func (a *App) analyzeCode(ctx context.Context, code string, names map[string]string) (*models.Metrics, error) {
	statements, err := a.MarketData.FetchStatements(ctx, code)
	if err != nil {
		return nil, err
	}
	quotes, err := a.MarketData.FetchQuotes(ctx, code)
	if err != nil {
		return nil, err
	}
	return a.Analysis.Analyze(code, nameFor(names, code), quotes, statements, a.Store.Date())
}

func (a *App) companyNames(ctx context.Context) (map[string]string, error) {
	companies, err := a.MarketData.FetchListedInfo(ctx)
	if err != nil {
		return nil, err
	}
	return models.CompanyNames(companies), nil
}

func (a *App) saveAndValidate(filename string, content []byte) (string, error) {
	path, err := a.Store.SaveReport(filename, content)
	if err != nil {
		return "", err
	}
	if err := a.Report.Validate(path); err != nil {
		return "", err
	}
	return path, nil
}

func nameFor(names map[string]string, code string) string {
	if name, ok := names[code]; ok && name != "" {
		return name
	}
	return code
}
