// Package report assembles company analysis pages into PDF documents.
// A single-company report is one page; the multi-company report opens
// with an index page whose rows link to each company's page.
package report

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/kabu/internal/common"
	"github.com/ternarybob/kabu/internal/models"
	"github.com/ternarybob/kabu/internal/services/chart"
)

const (
	pageMargin  = 10.0
	colWidth    = 95.0
	imageWidth  = 92.0
	imageHeight = 46.0
)

// Service renders analysis results into PDF bytes.
type Service struct {
	charts *chart.Service
	logger arbor.ILogger
}

// NewService creates a report service.
func NewService(charts *chart.Service, logger arbor.ILogger) *Service {
	return &Service{
		charts: charts,
		logger: logger,
	}
}

// BuildSingle renders a one-company report.
func (s *Service) BuildSingle(m *models.Metrics) ([]byte, error) {
	pdf := newDocument()
	if err := s.addCompanyPage(pdf, m); err != nil {
		return nil, err
	}
	return output(pdf)
}

// BuildMulti renders an index page followed by one page per company.
// Each index row links to the matching company page.
func (s *Service) BuildMulti(metrics []*models.Metrics) ([]byte, error) {
	if len(metrics) == 0 {
		return nil, fmt.Errorf("no companies to report on")
	}

	pdf := newDocument()
	links := s.addIndexPage(pdf, metrics)
	for i, m := range metrics {
		if err := s.addCompanyPage(pdf, m); err != nil {
			return nil, err
		}
		// -1 targets the page just added
		pdf.SetLink(links[i], 0, -1)
	}

	s.logger.Info().Int("companies", len(metrics)).Msg("Multi-company report assembled")
	return output(pdf)
}

// Validate runs a structural check over a written PDF file.
func (s *Service) Validate(path string) error {
	if err := api.ValidateFile(path, nil); err != nil {
		return fmt.Errorf("pdf validation failed for %s: %w", path, err)
	}
	return nil
}

func newDocument() *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, pageMargin)
	return pdf
}

func output(pdf *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF output: %w", err)
	}
	return buf.Bytes(), nil
}

// addIndexPage writes the company list and returns one link id per
// company, in input order. The link targets are bound later, when the
// company pages exist.
func (s *Service) addIndexPage(pdf *fpdf.Fpdf, metrics []*models.Metrics) []int {
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Multi-Company Analysis Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 8, "Analysis Date: "+common.FormatDateISO(metrics[0].AnalysisDate), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	widths := []float64{15, 30, 120}
	headers := []string{"No.", "Code", "Company"}

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(68, 114, 196)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(0, 0, 0)
	links := make([]int, len(metrics))
	for i, m := range metrics {
		links[i] = pdf.AddLink()
		pdf.CellFormat(widths[0], 8, strconv.Itoa(i+1), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 8, m.Code, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 8, m.CompanyName, "1", 0, "L", false, links[i], "")
		pdf.Ln(-1)
	}
	return links
}

// addCompanyPage renders one company: header, the chart grid, and the
// latest indicator summary.
func (s *Service) addCompanyPage(pdf *fpdf.Fpdf, m *models.Metrics) error {
	images, err := s.charts.RenderAll(m)
	if err != nil {
		return err
	}

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, fmt.Sprintf("%s  %s", m.Code, m.CompanyName), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, "Analysis Date: "+common.FormatDateISO(m.AnalysisDate), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	gridTop := pdf.GetY()
	for i, img := range images {
		name := fmt.Sprintf("%s_chart_%d", m.Code, i)
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.PNG))

		x := pageMargin + float64(i%2)*colWidth
		y := gridTop + float64(i/2)*(imageHeight+2)
		pdf.ImageOptions(name, x, y, imageWidth, imageHeight, false, opts, 0, "")
	}
	pdf.SetY(gridTop + 4*(imageHeight+2) + 2)

	s.addSummaryTable(pdf, m.Latest())

	if pdf.Err() {
		return fmt.Errorf("failed to render page for %s: %v", m.Code, pdf.Error())
	}
	return nil
}

// addSummaryTable writes the latest indicator values as a compact
// table under the chart grid, three label/value pairs per row.
func (s *Service) addSummaryTable(pdf *fpdf.Fpdf, latest models.MetricRow) {
	entries := []struct {
		label string
		value string
	}{
		{"Close", formatValue(latest.Close, 1)},
		{"Theoretical Price", formatValue(latest.TheoreticalPrice, 1)},
		{"Theoretical Upper", formatValue(latest.TheoreticalUpper, 1)},
		{"Market Cap (100M)", formatValue(latest.MarketCap/1e8, 1)},
		{"PER", formatValue(latest.PER, 2)},
		{"PBR", formatValue(latest.PBR, 2)},
		{"PSR", formatValue(latest.PSR, 2)},
		{"PEG", formatValue(latest.PEG, 2)},
		{"ROE (%)", formatValue(latest.ROE*100, 2)},
		{"ROA (%)", formatValue(latest.ROA*100, 2)},
	}

	labelWidth := 40.0
	valueWidth := 24.0
	perRow := 3

	pdf.SetFont("Arial", "", 8)
	for i, e := range entries {
		pdf.SetFont("Arial", "B", 8)
		pdf.CellFormat(labelWidth, 6, e.label, "1", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 8)
		pdf.CellFormat(valueWidth, 6, e.value, "1", 0, "R", false, 0, "")
		if (i+1)%perRow == 0 {
			pdf.Ln(-1)
		}
	}
	pdf.Ln(-1)
}

func formatValue(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}
