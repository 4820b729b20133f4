package models

import (
	"math"
	"time"
)

// MetricRow is one trading day of merged quote and statement data together
// with the computed indicators. Missing or incomputable values are NaN so
// chart rendering can gap them without nil checks.
type MetricRow struct {
	Date time.Time

	// From daily quotes (split-adjusted)
	Close  float64
	Volume float64

	// From the active statement disclosure
	NetSales                float64
	OperatingProfit         float64
	Profit                  float64
	ForecastNetSales        float64
	ForecastOperatingProfit float64
	ForecastProfit          float64
	TotalAssets             float64
	Equity                  float64
	EquityToAssetRatio      float64
	AverageShares           float64

	// Valuation and profitability indicators
	EPS       float64
	BPS       float64
	PER       float64
	PBR       float64
	PSR       float64
	PEG       float64
	ROE       float64
	ROA       float64
	MarketCap float64

	// Margins (percent)
	OperatingMargin         float64
	ForecastOperatingMargin float64
	NetMargin               float64
	ForecastNetMargin       float64

	// Moving averages
	SMA200     float64
	VolumeMA20 float64
	VolumeMA25 float64
	VolumeMA75 float64

	// Theoretical price model
	DiscountRate     float64
	RiskRate         float64
	LeverageAdj      float64
	AssetValue       float64
	BusinessValue    float64
	TheoreticalPrice float64
	TheoreticalUpper float64
}

// Metrics is the full analysis result for one company.
type Metrics struct {
	Code         string
	CompanyName  string
	AnalysisDate time.Time
	Rows         []MetricRow
}

// Latest returns the most recent row, or a zero row when empty.
func (m *Metrics) Latest() MetricRow {
	if len(m.Rows) == 0 {
		return MetricRow{}
	}
	return m.Rows[len(m.Rows)-1]
}

// NaN is the canonical missing-value marker for MetricRow fields.
func NaN() float64 {
	return math.NaN()
}
