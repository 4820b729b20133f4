package chart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/kabu/internal/models"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G'}

func testMetrics(days int) *models.Metrics {
	start := time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)
	rows := make([]models.MetricRow, 0, days)
	for i := 0; i < days; i++ {
		price := 2500.0 + float64(i)
		rows = append(rows, models.MetricRow{
			Date:                    start.AddDate(0, 0, i),
			Close:                   price,
			Volume:                  2.0e7 + float64(i)*1e5,
			NetSales:                45e12,
			OperatingProfit:         4.5e12,
			Profit:                  3.6e12,
			ForecastNetSales:        47e12,
			ForecastOperatingProfit: 4.8e12,
			ForecastProfit:          3.8e12,
			PER:                     12.5,
			PBR:                     1.1,
			PSR:                     0.9,
			PEG:                     1.4,
			ROE:                     0.11,
			ROA:                     0.05,
			OperatingMargin:         10,
			ForecastOperatingMargin: 10.2,
			NetMargin:               8,
			ForecastNetMargin:       8.1,
			SMA200:                  price - 50,
			VolumeMA25:              2.0e7,
			VolumeMA75:              1.9e7,
			TheoreticalPrice:        price * 1.1,
			TheoreticalUpper:        price * 2.2,
		})
	}
	return &models.Metrics{
		Code:         "72030",
		CompanyName:  "Toyota Motor",
		AnalysisDate: rows[len(rows)-1].Date,
		Rows:         rows,
	}
}

func TestRenderAll(t *testing.T) {
	svc := NewService(arbor.NewLogger())
	images, err := svc.RenderAll(testMetrics(60))
	require.NoError(t, err)
	require.Len(t, images, 8)

	for _, img := range images {
		assert.NotEmpty(t, img.Title)
		require.Greater(t, len(img.PNG), len(pngSignature), img.Title)
		assert.Equal(t, pngSignature, img.PNG[:4], img.Title)
	}
}

func TestPriceChartWithNaNGaps(t *testing.T) {
	m := testMetrics(30)
	// Punch a hole in the middle and blank the model columns entirely for
	// the first third, as happens before the first disclosure.
	for i := 0; i < 10; i++ {
		m.Rows[i].TheoreticalPrice = models.NaN()
		m.Rows[i].TheoreticalUpper = models.NaN()
		m.Rows[i].SMA200 = models.NaN()
	}
	m.Rows[15].Close = models.NaN()

	svc := NewService(arbor.NewLogger())
	png, err := svc.PriceChart(m)
	require.NoError(t, err)
	assert.Equal(t, pngSignature, png[:4])
}

func TestChartsWithAllNaNSeries(t *testing.T) {
	m := testMetrics(30)
	for i := range m.Rows {
		m.Rows[i].PER = models.NaN()
		m.Rows[i].PEG = models.NaN()
	}

	svc := NewService(arbor.NewLogger())
	for name, render := range map[string]func(*models.Metrics) ([]byte, error){
		"per": svc.PerRoeRoaChart,
		"pbr": svc.PbrPsrPegChart,
	} {
		png, err := render(m)
		require.NoError(t, err, name)
		assert.Equal(t, pngSignature, png[:4], name)
	}
}

func TestStepChartSinglePoint(t *testing.T) {
	m := testMetrics(1)

	svc := NewService(arbor.NewLogger())
	png, err := svc.SalesChart(m)
	require.NoError(t, err)
	assert.Equal(t, pngSignature, png[:4])
}

func TestVolumeChart(t *testing.T) {
	svc := NewService(arbor.NewLogger())
	png, err := svc.VolumeChart(testMetrics(90))
	require.NoError(t, err)
	assert.Equal(t, pngSignature, png[:4])
}
