package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/kabu/internal/models"
	"github.com/ternarybob/kabu/internal/services/chart"
)

func testMetrics(code, name string) *models.Metrics {
	start := time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)
	rows := make([]models.MetricRow, 0, 40)
	for i := 0; i < 40; i++ {
		price := 2500.0 + float64(i)
		rows = append(rows, models.MetricRow{
			Date:             start.AddDate(0, 0, i),
			Close:            price,
			Volume:           2e7,
			NetSales:         45e12,
			OperatingProfit:  4.5e12,
			Profit:           3.6e12,
			ForecastNetSales: 47e12,
			PER:              12.5,
			PBR:              1.1,
			PSR:              0.9,
			PEG:              1.4,
			ROE:              0.11,
			ROA:              0.05,
			MarketCap:        4e13,
			SMA200:           price - 50,
			VolumeMA25:       2e7,
			VolumeMA75:       1.9e7,
			TheoreticalPrice: price * 1.1,
			TheoreticalUpper: price * 2.2,
		})
	}
	return &models.Metrics{
		Code:         code,
		CompanyName:  name,
		AnalysisDate: rows[len(rows)-1].Date,
		Rows:         rows,
	}
}

func testService() *Service {
	logger := arbor.NewLogger()
	return NewService(chart.NewService(logger), logger)
}

func TestBuildSingle(t *testing.T) {
	svc := testService()

	pdfBytes, err := svc.BuildSingle(testMetrics("72030", "Toyota Motor"))
	require.NoError(t, err)
	require.Greater(t, len(pdfBytes), 1000)
	assert.Equal(t, "%PDF", string(pdfBytes[:4]))
}

func TestBuildSingleWithNaNIndicators(t *testing.T) {
	m := testMetrics("72030", "Toyota Motor")
	for i := range m.Rows {
		m.Rows[i].PEG = models.NaN()
		m.Rows[i].TheoreticalPrice = models.NaN()
		m.Rows[i].TheoreticalUpper = models.NaN()
	}

	svc := testService()
	pdfBytes, err := svc.BuildSingle(m)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdfBytes[:4]))
}

func TestBuildMulti(t *testing.T) {
	svc := testService()
	metrics := []*models.Metrics{
		testMetrics("72030", "Toyota Motor"),
		testMetrics("67580", "Sony Group"),
	}

	multi, err := svc.BuildMulti(metrics)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(multi[:4]))

	// Index page plus one page per company makes the multi report larger
	// than a single-company one.
	single, err := svc.BuildSingle(metrics[0])
	require.NoError(t, err)
	assert.Greater(t, len(multi), len(single))
}

func TestBuildMultiEmpty(t *testing.T) {
	svc := testService()
	_, err := svc.BuildMulti(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no companies")
}

func TestValidate(t *testing.T) {
	svc := testService()
	pdfBytes, err := svc.BuildSingle(testMetrics("72030", "Toyota Motor"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(path, pdfBytes, 0644))
	assert.NoError(t, svc.Validate(path))
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := testService()
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0644))
	assert.Error(t, svc.Validate(path))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "12.50", formatValue(12.5, 2))
	assert.Equal(t, "2701.0", formatValue(2701, 1))
	assert.Equal(t, "-", formatValue(models.NaN(), 2))
}
