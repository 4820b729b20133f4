// Package storage implements the date-keyed CSV cache and report output
// layout:
//
//	data/
//	├── outputs/<YYMMDD>/          report PDFs (long-lived)
//	└── temp/<YYMMDD>/
//	    ├── <code>/<code>_<YYMMDD>_fins.csv
//	    ├── <code>/<code>_<YYMMDD>_quotes.csv
//	    ├── fins_targets.csv       consolidated statements for the run
//	    └── listed_info.csv
//
// Fetchers check Has* before hitting the API, so a file that exists for
// today's date is authoritative for the whole day.
package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/kabu/internal/common"
	"github.com/ternarybob/kabu/internal/models"
)

const (
	tempDir    = "temp"
	reportsDir = "outputs"

	consolidatedFile = "fins_targets.csv"
	listedInfoFile   = "listed_info.csv"
)

// Store manages the on-disk cache for a single analysis date.
type Store struct {
	baseDir    string
	outputsDir string
	date       time.Time
	logger     arbor.ILogger
}

// NewStore creates a store rooted at baseDir for the given analysis
// date. outputsDir overrides where reports land; empty keeps them under
// baseDir.
func NewStore(baseDir, outputsDir string, date time.Time, logger arbor.ILogger) *Store {
	if outputsDir == "" {
		outputsDir = filepath.Join(baseDir, reportsDir)
	}
	return &Store{
		baseDir:    baseDir,
		outputsDir: outputsDir,
		date:       date,
		logger:     logger,
	}
}

// Date returns the analysis date the store is keyed on.
func (s *Store) Date() time.Time {
	return s.date
}

func (s *Store) dateShort() string {
	return common.FormatDateShort(s.date)
}

// StatementsPath returns the cache path for a code's statement file.
func (s *Store) StatementsPath(code string) string {
	d := s.dateShort()
	return filepath.Join(s.baseDir, tempDir, d, code, fmt.Sprintf("%s_%s_fins.csv", code, d))
}

// QuotesPath returns the cache path for a code's daily quote file.
func (s *Store) QuotesPath(code string) string {
	d := s.dateShort()
	return filepath.Join(s.baseDir, tempDir, d, code, fmt.Sprintf("%s_%s_quotes.csv", code, d))
}

// ConsolidatedPath returns the path of the consolidated statements file.
func (s *Store) ConsolidatedPath() string {
	return filepath.Join(s.baseDir, tempDir, s.dateShort(), consolidatedFile)
}

// ListedInfoPath returns the path of the listed company master file.
func (s *Store) ListedInfoPath() string {
	return filepath.Join(s.baseDir, tempDir, s.dateShort(), listedInfoFile)
}

// HasStatements reports whether today's statement cache exists for a code.
func (s *Store) HasStatements(code string) bool {
	return fileExists(s.StatementsPath(code))
}

// HasQuotes reports whether today's quote cache exists for a code.
func (s *Store) HasQuotes(code string) bool {
	return fileExists(s.QuotesPath(code))
}

// HasListedInfo reports whether today's listed info cache exists.
func (s *Store) HasListedInfo() bool {
	return fileExists(s.ListedInfoPath())
}

// WriteStatements writes a code's statement cache file.
func (s *Store) WriteStatements(code string, statements []models.Statement) error {
	records := make([][]string, 0, len(statements))
	for _, st := range statements {
		records = append(records, st.CSVRecord())
	}
	path := s.StatementsPath(code)
	if err := writeCSV(path, models.StatementCSVHeader(), records); err != nil {
		return err
	}
	s.logger.Info().Str("path", path).Str("code", code).Msg("Saved statement data")
	return nil
}

// ReadStatements reads a code's statement cache file.
func (s *Store) ReadStatements(code string) ([]models.Statement, error) {
	records, err := readCSV(s.StatementsPath(code))
	if err != nil {
		return nil, err
	}
	statements := make([]models.Statement, 0, len(records))
	for _, r := range records {
		statements = append(statements, models.StatementFromCSVRecord(r))
	}
	return statements, nil
}

// WriteQuotes writes a code's daily quote cache file.
func (s *Store) WriteQuotes(code string, quotes []models.DailyQuote) error {
	records := make([][]string, 0, len(quotes))
	for _, q := range quotes {
		records = append(records, q.CSVRecord())
	}
	path := s.QuotesPath(code)
	if err := writeCSV(path, models.QuoteCSVHeader(), records); err != nil {
		return err
	}
	s.logger.Info().Str("path", path).Str("code", code).Msg("Saved quote data")
	return nil
}

// ReadQuotes reads a code's daily quote cache file.
func (s *Store) ReadQuotes(code string) ([]models.DailyQuote, error) {
	records, err := readCSV(s.QuotesPath(code))
	if err != nil {
		return nil, err
	}
	quotes := make([]models.DailyQuote, 0, len(records))
	for _, r := range records {
		quotes = append(quotes, models.QuoteFromCSVRecord(r))
	}
	return quotes, nil
}

// WriteListedInfo writes the listed company master file.
func (s *Store) WriteListedInfo(companies []models.ListedCompany) error {
	records := make([][]string, 0, len(companies))
	for _, c := range companies {
		records = append(records, c.CSVRecord())
	}
	path := s.ListedInfoPath()
	if err := writeCSV(path, models.ListedCSVHeader(), records); err != nil {
		return err
	}
	s.logger.Info().Str("path", path).Int("companies", len(companies)).Msg("Saved listed company info")
	return nil
}

// ReadListedInfo reads the listed company master file.
func (s *Store) ReadListedInfo() ([]models.ListedCompany, error) {
	records, err := readCSV(s.ListedInfoPath())
	if err != nil {
		return nil, err
	}
	companies := make([]models.ListedCompany, 0, len(records))
	for _, r := range records {
		companies = append(companies, models.ListedFromCSVRecord(r))
	}
	return companies, nil
}

// WriteConsolidated writes the consolidated statements file for the run.
func (s *Store) WriteConsolidated(statements []models.Statement) error {
	records := make([][]string, 0, len(statements))
	for _, st := range statements {
		records = append(records, st.CSVRecord())
	}
	path := s.ConsolidatedPath()
	if err := writeCSV(path, models.StatementCSVHeader(), records); err != nil {
		return err
	}
	s.logger.Info().Str("path", path).Int("rows", len(statements)).Msg("Saved consolidated statements")
	return nil
}

// ReadConsolidated reads the consolidated statements file.
func (s *Store) ReadConsolidated() ([]models.Statement, error) {
	records, err := readCSV(s.ConsolidatedPath())
	if err != nil {
		return nil, err
	}
	statements := make([]models.Statement, 0, len(records))
	for _, r := range records {
		statements = append(statements, models.StatementFromCSVRecord(r))
	}
	return statements, nil
}

// SaveReport writes report bytes under outputs/<YYMMDD>/ and returns the
// full path.
func (s *Store) SaveReport(filename string, content []byte) (string, error) {
	path := filepath.Join(s.outputsDir, s.dateShort(), filename)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func writeCSV(path string, header []string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, record := range records {
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// readCSV reads a CSV file and returns its data records (header skipped).
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}
	return rows[1:], nil
}
