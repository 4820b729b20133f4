// Package chart renders the per-company analysis charts as PNG images
// using go-chart. Indicator series carry NaN for missing values; every
// renderer splits those into contiguous valid segments so lines gap
// instead of spiking.
package chart

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/ternarybob/kabu/internal/models"
)

const (
	chartWidth  = 640
	chartHeight = 320
)

// Image is one rendered chart, named for logging and layout.
type Image struct {
	Title string
	PNG   []byte
}

// Service renders analysis metrics into chart images.
type Service struct {
	logger arbor.ILogger
}

// NewService creates a chart service.
func NewService(logger arbor.ILogger) *Service {
	return &Service{logger: logger}
}

// RenderAll renders the full report chart set in page layout order.
func (s *Service) RenderAll(m *models.Metrics) ([]Image, error) {
	renderers := []struct {
		title  string
		render func(*models.Metrics) ([]byte, error)
	}{
		{"Stock Price Trend", s.PriceChart},
		{"Volume Trend", s.VolumeChart},
		{"Financial Indicators (PER, ROE, ROA)", s.PerRoeRoaChart},
		{"Financial Indicators (PBR, PSR, PEG)", s.PbrPsrPegChart},
		{"Net Sales Trend", s.SalesChart},
		{"Operating Profit Trend", s.OperatingProfitChart},
		{"Net Profit Trend", s.ProfitChart},
		{"Operating & Net Margin Trend", s.MarginChart},
	}

	images := make([]Image, 0, len(renderers))
	for _, r := range renderers {
		png, err := r.render(m)
		if err != nil {
			return nil, fmt.Errorf("failed to render %q for %s: %w", r.title, m.Code, err)
		}
		images = append(images, Image{Title: r.title, PNG: png})
	}
	s.logger.Debug().Str("code", m.Code).Int("charts", len(images)).Msg("Charts rendered")
	return images, nil
}

// PriceChart plots adjusted close, the theoretical price with its upper
// limit, and the 200 day moving average.
func (s *Service) PriceChart(m *models.Metrics) ([]byte, error) {
	var series []chart.Series
	series = appendLineSeries(series, "Stock Price", m.Rows, func(r models.MetricRow) float64 { return r.Close }, solidStyle(chart.ColorBlue))
	series = appendLineSeries(series, "Theoretical Price", m.Rows, func(r models.MetricRow) float64 { return r.TheoreticalPrice }, dashedStyle(chart.ColorOrange))
	series = appendLineSeries(series, "Theoretical Upper", m.Rows, func(r models.MetricRow) float64 { return r.TheoreticalUpper }, dottedStyle(chart.ColorRed))
	series = appendLineSeries(series, "200-day MA", m.Rows, func(r models.MetricRow) float64 { return r.SMA200 }, solidStyle(drawing.Color{R: 0x80, G: 0x00, B: 0x80, A: 0xff}))
	return s.render("Stock Price Trend", "Price (JPY)", series)
}

// VolumeChart plots daily volume in 10k share units as a filled area
// with the 25 and 75 day moving averages over it.
func (s *Service) VolumeChart(m *models.Metrics) ([]byte, error) {
	areaStyle := chart.Style{
		StrokeColor: chart.ColorGreen,
		StrokeWidth: 1.0,
		FillColor:   chart.ColorGreen.WithAlpha(80),
	}
	var series []chart.Series
	series = appendLineSeries(series, "Volume", m.Rows, func(r models.MetricRow) float64 { return r.Volume / 10000 }, areaStyle)
	series = appendLineSeries(series, "25-day MA", m.Rows, func(r models.MetricRow) float64 { return r.VolumeMA25 / 10000 }, solidStyle(chart.ColorGreen))
	series = appendLineSeries(series, "75-day MA", m.Rows, func(r models.MetricRow) float64 { return r.VolumeMA75 / 10000 }, dashedStyle(chart.ColorGreen))
	return s.render("Volume Trend", "Volume (10K)", series)
}

// PerRoeRoaChart plots PER with ROE and ROA in percent.
func (s *Service) PerRoeRoaChart(m *models.Metrics) ([]byte, error) {
	var series []chart.Series
	series = appendLineSeries(series, "PER", m.Rows, func(r models.MetricRow) float64 { return r.PER }, solidStyle(chart.ColorBlue))
	series = appendLineSeries(series, "ROE(%)", m.Rows, func(r models.MetricRow) float64 { return r.ROE * 100 }, solidStyle(chart.ColorOrange))
	series = appendLineSeries(series, "ROA(%)", m.Rows, func(r models.MetricRow) float64 { return r.ROA * 100 }, dashedStyle(chart.ColorOrange))
	return s.render("Financial Indicators (PER, ROE, ROA)", "Ratio", series)
}

// PbrPsrPegChart plots PBR, PSR and the PEG ratio.
func (s *Service) PbrPsrPegChart(m *models.Metrics) ([]byte, error) {
	var series []chart.Series
	series = appendLineSeries(series, "PBR", m.Rows, func(r models.MetricRow) float64 { return r.PBR }, solidStyle(chart.ColorGreen))
	series = appendLineSeries(series, "PSR", m.Rows, func(r models.MetricRow) float64 { return r.PSR }, solidStyle(drawing.Color{R: 0x80, G: 0x00, B: 0x80, A: 0xff}))
	series = appendLineSeries(series, "PEG Ratio", m.Rows, func(r models.MetricRow) float64 { return r.PEG }, solidStyle(chart.ColorRed))
	return s.render("Financial Indicators (PBR, PSR, PEG)", "Ratio", series)
}

// SalesChart plots actual and forecast net sales in 100M yen units as
// step lines.
func (s *Service) SalesChart(m *models.Metrics) ([]byte, error) {
	var series []chart.Series
	series = appendStepSeries(series, "Net Sales (Actual)", m.Rows, func(r models.MetricRow) float64 { return r.NetSales / 1e8 }, solidStyle(drawing.Color{R: 0x80, G: 0x00, B: 0x80, A: 0xff}))
	series = appendStepSeries(series, "Net Sales (Forecast)", m.Rows, func(r models.MetricRow) float64 { return r.ForecastNetSales / 1e8 }, dashedStyle(chart.ColorRed))
	return s.render("Net Sales Trend", "Net Sales (100M JPY)", series)
}

// OperatingProfitChart plots actual and forecast operating profit in
// 100M yen units as step lines.
func (s *Service) OperatingProfitChart(m *models.Metrics) ([]byte, error) {
	var series []chart.Series
	series = appendStepSeries(series, "Operating Profit (Actual)", m.Rows, func(r models.MetricRow) float64 { return r.OperatingProfit / 1e8 }, solidStyle(chart.ColorGreen))
	series = appendStepSeries(series, "Operating Profit (Forecast)", m.Rows, func(r models.MetricRow) float64 { return r.ForecastOperatingProfit / 1e8 }, dashedStyle(chart.ColorRed))
	return s.render("Operating Profit Trend", "Operating Profit (100M JPY)", series)
}

// ProfitChart plots actual and forecast net profit in 100M yen units
// as step lines.
func (s *Service) ProfitChart(m *models.Metrics) ([]byte, error) {
	var series []chart.Series
	series = appendStepSeries(series, "Net Profit (Actual)", m.Rows, func(r models.MetricRow) float64 { return r.Profit / 1e8 }, solidStyle(chart.ColorBlue))
	series = appendStepSeries(series, "Net Profit (Forecast)", m.Rows, func(r models.MetricRow) float64 { return r.ForecastProfit / 1e8 }, dashedStyle(chart.ColorRed))
	return s.render("Net Profit Trend", "Net Profit (100M JPY)", series)
}

// MarginChart plots actual and forecast operating and net margins in
// percent.
func (s *Service) MarginChart(m *models.Metrics) ([]byte, error) {
	darkGreen := drawing.Color{R: 0x00, G: 0x64, B: 0x00, A: 0xff}
	darkBlue := drawing.Color{R: 0x00, G: 0x00, B: 0x8b, A: 0xff}
	var series []chart.Series
	series = appendLineSeries(series, "Operating Margin (Actual)", m.Rows, func(r models.MetricRow) float64 { return r.OperatingMargin }, solidStyle(darkGreen))
	series = appendLineSeries(series, "Operating Margin (Forecast)", m.Rows, func(r models.MetricRow) float64 { return r.ForecastOperatingMargin }, dashedStyle(chart.ColorRed))
	series = appendLineSeries(series, "Net Margin (Actual)", m.Rows, func(r models.MetricRow) float64 { return r.NetMargin }, solidStyle(darkBlue))
	series = appendLineSeries(series, "Net Margin (Forecast)", m.Rows, func(r models.MetricRow) float64 { return r.ForecastNetMargin }, dottedStyle(chart.ColorRed))
	return s.render("Operating & Net Margin Trend", "Margin (%)", series)
}

func (s *Service) render(title, yLabel string, series []chart.Series) ([]byte, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("no drawable data for %q", title)
	}
	ch := chart.Chart{
		Title:      title,
		Width:      chartWidth,
		Height:     chartHeight,
		Background: chart.Style{Padding: chart.Box{Top: 28, Left: 12, Right: 12, Bottom: 12}},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("2006-01"),
		},
		YAxis:  chart.YAxis{Name: yLabel},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed for %q: %w", title, err)
	}
	return buf.Bytes(), nil
}

// appendLineSeries extracts the value column and appends it as one or
// more TimeSeries segments.
func appendLineSeries(series []chart.Series, name string, rows []models.MetricRow, value func(models.MetricRow) float64, style chart.Style) []chart.Series {
	xs := make([]time.Time, len(rows))
	ys := make([]float64, len(rows))
	for i, r := range rows {
		xs[i] = r.Date
		ys[i] = value(r)
	}
	return appendSegments(series, name, xs, ys, style)
}

// appendStepSeries renders a post-step line by repeating the previous
// value at each change point, matching how statement figures hold
// until the next disclosure.
func appendStepSeries(series []chart.Series, name string, rows []models.MetricRow, value func(models.MetricRow) float64, style chart.Style) []chart.Series {
	xs := make([]time.Time, 0, len(rows)*2)
	ys := make([]float64, 0, len(rows)*2)
	prev := models.NaN()
	for _, r := range rows {
		v := value(r)
		if !math.IsNaN(prev) && !math.IsNaN(v) && v != prev {
			xs = append(xs, r.Date)
			ys = append(ys, prev)
		}
		xs = append(xs, r.Date)
		ys = append(ys, v)
		if !math.IsNaN(v) {
			prev = v
		}
	}
	return appendSegments(series, name, xs, ys, style)
}

// appendSegments splits parallel x/y slices into contiguous non-NaN
// segments and appends a TimeSeries per segment. Only the first segment
// carries the legend name.
func appendSegments(series []chart.Series, name string, xs []time.Time, ys []float64, style chart.Style) []chart.Series {
	var segX []time.Time
	var segY []float64
	first := true

	flush := func() {
		if len(segX) == 0 {
			return
		}
		segName := ""
		if first {
			segName = name
			first = false
		}
		series = append(series, padSeries(segName, segX, segY, style))
		segX, segY = nil, nil
	}

	for i := range xs {
		if math.IsNaN(ys[i]) {
			flush()
			continue
		}
		segX = append(segX, xs[i])
		segY = append(segY, ys[i])
	}
	flush()
	return series
}

// padSeries builds a TimeSeries, duplicating a lone point one day out
// so go-chart always has an X range to draw.
func padSeries(name string, xs []time.Time, ys []float64, style chart.Style) chart.TimeSeries {
	if len(xs) == 1 {
		xs = append(xs, xs[0].Add(24*time.Hour))
		ys = append(ys, ys[0])
	}
	return chart.TimeSeries{Name: name, XValues: xs, YValues: ys, Style: style}
}

func solidStyle(col drawing.Color) chart.Style {
	return chart.Style{StrokeColor: col, StrokeWidth: 1.5}
}

func dashedStyle(col drawing.Color) chart.Style {
	return chart.Style{StrokeColor: col, StrokeWidth: 1.2, StrokeDashArray: []float64{5.0, 3.0}}
}

func dottedStyle(col drawing.Color) chart.Style {
	return chart.Style{StrokeColor: col, StrokeWidth: 1.2, StrokeDashArray: []float64{2.0, 2.0}}
}
