// Package analysis merges quote and statement histories and computes the
// valuation indicators and the theoretical price model.
package analysis

import (
	"fmt"
	"math"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/kabu/internal/models"
)

// Service computes per-company metrics from cached market data.
type Service struct {
	logger arbor.ILogger
}

// NewService creates an analysis service.
func NewService(logger arbor.ILogger) *Service {
	return &Service{logger: logger}
}

// Analyze merges a company's daily quotes with its statements and fills
// in every indicator column. Quotes and statements must already be
// date-ordered.
func (s *Service) Analyze(code, companyName string, quotes []models.DailyQuote, statements []models.Statement, analysisDate time.Time) (*models.Metrics, error) {
	if len(quotes) == 0 {
		return nil, fmt.Errorf("no quotes to analyze for %s", code)
	}
	if len(statements) == 0 {
		return nil, fmt.Errorf("no statements to analyze for %s", code)
	}

	rows, err := mergeRows(quotes, statements)
	if err != nil {
		return nil, fmt.Errorf("failed to merge data for %s: %w", code, err)
	}

	latestShares := statements[len(statements)-1].IssuedShares.Or(models.NaN())

	for i := range rows {
		computeIndicators(&rows[i], latestShares)
	}
	computeMovingAverages(rows)
	for i := range rows {
		computeTheoreticalPrice(&rows[i])
	}

	s.logger.Debug().
		Str("code", code).
		Int("rows", len(rows)).
		Msg("Analysis complete")

	return &models.Metrics{
		Code:         code,
		CompanyName:  companyName,
		AnalysisDate: analysisDate,
		Rows:         rows,
	}, nil
}

// mergeRows left-joins quotes with statements on Date = DisclosedDate,
// carrying the last matched statement forward across the quote rows
// that follow it.
func mergeRows(quotes []models.DailyQuote, statements []models.Statement) ([]models.MetricRow, error) {
	byDate := make(map[string]models.Statement, len(statements))
	for _, st := range statements {
		byDate[st.DisclosedDate] = st
	}

	rows := make([]models.MetricRow, 0, len(quotes))
	var current *models.Statement
	for _, q := range quotes {
		date, err := time.Parse("2006-01-02", q.Date)
		if err != nil {
			return nil, fmt.Errorf("bad quote date %q: %w", q.Date, err)
		}
		if st, ok := byDate[q.Date]; ok {
			current = &st
		}

		row := models.MetricRow{
			Date:   date,
			Close:  q.AdjustmentClose.Or(models.NaN()),
			Volume: q.Volume.Or(models.NaN()),
		}
		if current != nil {
			row.NetSales = current.NetSales.Or(models.NaN())
			row.OperatingProfit = current.OperatingProfit.Or(models.NaN())
			row.Profit = current.Profit.Or(models.NaN())
			row.ForecastNetSales = current.ForecastNetSales.Or(models.NaN())
			row.ForecastOperatingProfit = current.ForecastOperatingProfit.Or(models.NaN())
			row.ForecastProfit = current.ForecastProfit.Or(models.NaN())
			row.TotalAssets = current.TotalAssets.Or(models.NaN())
			row.Equity = current.Equity.Or(models.NaN())
			row.EquityToAssetRatio = current.EquityToAssetRatio.Or(models.NaN())
			row.AverageShares = current.AverageShares.Or(models.NaN())
		} else {
			row.NetSales = models.NaN()
			row.OperatingProfit = models.NaN()
			row.Profit = models.NaN()
			row.ForecastNetSales = models.NaN()
			row.ForecastOperatingProfit = models.NaN()
			row.ForecastProfit = models.NaN()
			row.TotalAssets = models.NaN()
			row.Equity = models.NaN()
			row.EquityToAssetRatio = models.NaN()
			row.AverageShares = models.NaN()
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// computeIndicators fills the per-row valuation and profitability
// columns. latestShares is the issued share count from the newest
// statement, used as a constant denominator across the whole history.
func computeIndicators(row *models.MetricRow, latestShares float64) {
	row.EPS = safeDiv(row.ForecastProfit, latestShares)
	row.BPS = safeDiv(row.Equity, latestShares)
	row.PER = safeDiv(row.Close, row.EPS)
	row.PBR = safeDiv(row.Close, row.BPS)
	row.ROE = safeDiv(row.ForecastProfit, row.Equity)
	row.ROA = safeDiv(row.ForecastProfit, row.TotalAssets)
	row.MarketCap = row.Close * row.AverageShares

	row.PSR = safeDiv(row.MarketCap, row.ForecastNetSales)

	row.OperatingMargin = safeDiv(row.OperatingProfit, row.NetSales) * 100
	row.ForecastOperatingMargin = safeDiv(row.ForecastOperatingProfit, row.ForecastNetSales) * 100
	row.NetMargin = safeDiv(row.Profit, row.NetSales) * 100
	row.ForecastNetMargin = safeDiv(row.ForecastProfit, row.ForecastNetSales) * 100

	// PEG divides PER by the forecast operating profit growth rate in
	// percent. Zero or negative growth leaves it undefined.
	growth := safeDiv(row.ForecastOperatingProfit-row.OperatingProfit, row.OperatingProfit) * 100
	if growth > 0 {
		row.PEG = safeDiv(row.PER, growth)
	} else {
		row.PEG = models.NaN()
	}
}

// computeMovingAverages fills SMA200 and the volume moving averages.
// SMA200 and VolumeMA20 need a full window; the 25 and 75 day volume
// averages shrink their window at the start of the history.
func computeMovingAverages(rows []models.MetricRow) {
	for i := range rows {
		rows[i].SMA200 = windowMean(rows, i, 200, false, func(r models.MetricRow) float64 { return r.Close })
		rows[i].VolumeMA20 = windowMean(rows, i, 20, false, func(r models.MetricRow) float64 { return r.Volume })
		rows[i].VolumeMA25 = windowMean(rows, i, 25, true, func(r models.MetricRow) float64 { return r.Volume })
		rows[i].VolumeMA75 = windowMean(rows, i, 75, true, func(r models.MetricRow) float64 { return r.Volume })
	}
}

// windowMean averages value over the window ending at index i. With
// partial false the result is NaN until a full window is available.
func windowMean(rows []models.MetricRow, i, window int, partial bool, value func(models.MetricRow) float64) float64 {
	start := i - window + 1
	if start < 0 {
		if !partial {
			return models.NaN()
		}
		start = 0
	}
	sum := 0.0
	for j := start; j <= i; j++ {
		sum += value(rows[j])
	}
	return sum / float64(i-start+1)
}

// computeTheoreticalPrice fills the theoretical price model columns:
// asset value from book value discounted by financial soundness,
// business value from earning power adjusted for leverage, the sum
// scaled by a risk rate read off the PBR.
func computeTheoreticalPrice(row *models.MetricRow) {
	row.DiscountRate = discountRate(row.EquityToAssetRatio)
	row.RiskRate = riskRate(row.PBR)
	row.LeverageAdj = leverageAdjustment(row.EquityToAssetRatio)

	cappedROA := row.ROA
	if cappedROA > 0.3 {
		cappedROA = 0.3
	}

	row.AssetValue = row.BPS * row.DiscountRate
	row.BusinessValue = row.EPS * cappedROA * 150 * row.LeverageAdj
	row.TheoreticalPrice = (row.AssetValue + row.BusinessValue) * row.RiskRate
	row.TheoreticalUpper = row.TheoreticalPrice * 2
}

// discountRate maps the equity-to-asset ratio to the asset value
// discount band.
func discountRate(equityToAssetRatio float64) float64 {
	switch {
	case math.IsNaN(equityToAssetRatio):
		return models.NaN()
	case equityToAssetRatio >= 0.8:
		return 0.8
	case equityToAssetRatio >= 0.67:
		return 0.75
	case equityToAssetRatio >= 0.5:
		return 0.7
	case equityToAssetRatio >= 0.33:
		return 0.65
	case equityToAssetRatio >= 0.1:
		return 0.6
	default:
		return 0.5
	}
}

// riskRate maps the PBR to the risk assessment band. The band edges
// are deliberately non-contiguous below 0.5; a PBR falling in a gap
// has no defined rate.
func riskRate(pbr float64) float64 {
	switch {
	case math.IsNaN(pbr):
		return models.NaN()
	case pbr >= 0.5:
		return 1
	case pbr >= 0.41 && pbr < 0.49:
		return 0.8
	case pbr >= 0.34 && pbr < 0.40:
		return 0.66
	case pbr >= 0.25 && pbr < 0.33:
		return 0.50
	case pbr >= 0.21 && pbr < 0.25:
		return 0.33
	case pbr >= 0.04 && pbr < 0.20:
		return 0.15
	case pbr < 0.04:
		return 0.02
	default:
		return models.NaN()
	}
}

// leverageAdjustment derives the financial leverage correction from
// the equity-to-asset ratio, clamped so the multiplier stays within
// [1.0, 1/0.66].
func leverageAdjustment(equityToAssetRatio float64) float64 {
	if math.IsNaN(equityToAssetRatio) {
		return models.NaN()
	}
	v := equityToAssetRatio + 0.33
	if v <= 0.66 {
		v = 0.66
	} else if v >= 1.00 {
		v = 1.00
	}
	return 1 / v
}

// safeDiv divides with NaN instead of Inf on a zero denominator.
func safeDiv(numerator, denominator float64) float64 {
	if denominator == 0 || math.IsNaN(denominator) || math.IsNaN(numerator) {
		return models.NaN()
	}
	return numerator / denominator
}
