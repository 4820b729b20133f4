package models

// Statement is one financial statement disclosure from the J-Quants
// /fins/statements endpoint, reduced to the columns the analysis needs.
type Statement struct {
	DisclosedDate  string `json:"DisclosedDate"`
	LocalCode      string `json:"LocalCode"`
	TypeOfDocument string `json:"TypeOfDocument"`

	// Actuals
	NetSales         OptFloat `json:"NetSales"`
	OperatingProfit  OptFloat `json:"OperatingProfit"`
	OrdinaryProfit   OptFloat `json:"OrdinaryProfit"`
	Profit           OptFloat `json:"Profit"`
	EarningsPerShare OptFloat `json:"EarningsPerShare"`

	// Current fiscal year forecasts
	ForecastNetSales         OptFloat `json:"ForecastNetSales"`
	ForecastOperatingProfit  OptFloat `json:"ForecastOperatingProfit"`
	ForecastOrdinaryProfit   OptFloat `json:"ForecastOrdinaryProfit"`
	ForecastProfit           OptFloat `json:"ForecastProfit"`
	ForecastEarningsPerShare OptFloat `json:"ForecastEarningsPerShare"`

	// Next fiscal year forecasts
	NextYearForecastNetSales         OptFloat `json:"NextYearForecastNetSales"`
	NextYearForecastOperatingProfit  OptFloat `json:"NextYearForecastOperatingProfit"`
	NextYearForecastOrdinaryProfit   OptFloat `json:"NextYearForecastOrdinaryProfit"`
	NextYearForecastProfit           OptFloat `json:"NextYearForecastProfit"`
	NextYearForecastEarningsPerShare OptFloat `json:"NextYearForecastEarningsPerShare"`

	// Balance sheet
	TotalAssets        OptFloat `json:"TotalAssets"`
	Equity             OptFloat `json:"Equity"`
	EquityToAssetRatio OptFloat `json:"EquityToAssetRatio"`
	BookValuePerShare  OptFloat `json:"BookValuePerShare"`

	// Share counts
	IssuedShares  OptFloat `json:"NumberOfIssuedAndOutstandingSharesAtTheEndOfFiscalYearIncludingTreasuryStock"`
	AverageShares OptFloat `json:"AverageNumberOfShares"`
}

// StatementCSVHeader is the column order for cached statement files.
func StatementCSVHeader() []string {
	return []string{
		"DisclosedDate", "LocalCode", "TypeOfDocument",
		"NetSales", "OperatingProfit", "OrdinaryProfit", "Profit", "EarningsPerShare",
		"ForecastNetSales", "ForecastOperatingProfit", "ForecastOrdinaryProfit",
		"ForecastProfit", "ForecastEarningsPerShare",
		"NextYearForecastNetSales", "NextYearForecastOperatingProfit",
		"NextYearForecastOrdinaryProfit", "NextYearForecastProfit",
		"NextYearForecastEarningsPerShare",
		"TotalAssets", "Equity", "EquityToAssetRatio", "BookValuePerShare",
		"NumberOfIssuedAndOutstandingSharesAtTheEndOfFiscalYearIncludingTreasuryStock",
		"AverageNumberOfShares",
	}
}

// CSVRecord renders the statement in StatementCSVHeader order.
func (s Statement) CSVRecord() []string {
	return []string{
		s.DisclosedDate, s.LocalCode, s.TypeOfDocument,
		s.NetSales.String(), s.OperatingProfit.String(), s.OrdinaryProfit.String(),
		s.Profit.String(), s.EarningsPerShare.String(),
		s.ForecastNetSales.String(), s.ForecastOperatingProfit.String(),
		s.ForecastOrdinaryProfit.String(), s.ForecastProfit.String(),
		s.ForecastEarningsPerShare.String(),
		s.NextYearForecastNetSales.String(), s.NextYearForecastOperatingProfit.String(),
		s.NextYearForecastOrdinaryProfit.String(), s.NextYearForecastProfit.String(),
		s.NextYearForecastEarningsPerShare.String(),
		s.TotalAssets.String(), s.Equity.String(), s.EquityToAssetRatio.String(),
		s.BookValuePerShare.String(),
		s.IssuedShares.String(), s.AverageShares.String(),
	}
}

// StatementFromCSVRecord parses a record written by CSVRecord.
func StatementFromCSVRecord(record []string) Statement {
	get := func(i int) string {
		if i < len(record) {
			return record[i]
		}
		return ""
	}
	return Statement{
		DisclosedDate:  get(0),
		LocalCode:      get(1),
		TypeOfDocument: get(2),

		NetSales:         ParseOptFloat(get(3)),
		OperatingProfit:  ParseOptFloat(get(4)),
		OrdinaryProfit:   ParseOptFloat(get(5)),
		Profit:           ParseOptFloat(get(6)),
		EarningsPerShare: ParseOptFloat(get(7)),

		ForecastNetSales:         ParseOptFloat(get(8)),
		ForecastOperatingProfit:  ParseOptFloat(get(9)),
		ForecastOrdinaryProfit:   ParseOptFloat(get(10)),
		ForecastProfit:           ParseOptFloat(get(11)),
		ForecastEarningsPerShare: ParseOptFloat(get(12)),

		NextYearForecastNetSales:         ParseOptFloat(get(13)),
		NextYearForecastOperatingProfit:  ParseOptFloat(get(14)),
		NextYearForecastOrdinaryProfit:   ParseOptFloat(get(15)),
		NextYearForecastProfit:           ParseOptFloat(get(16)),
		NextYearForecastEarningsPerShare: ParseOptFloat(get(17)),

		TotalAssets:        ParseOptFloat(get(18)),
		Equity:             ParseOptFloat(get(19)),
		EquityToAssetRatio: ParseOptFloat(get(20)),
		BookValuePerShare:  ParseOptFloat(get(21)),

		IssuedShares:  ParseOptFloat(get(22)),
		AverageShares: ParseOptFloat(get(23)),
	}
}

// NumericFields returns pointers to every numeric field, in CSV column
// order. Used by the fetcher's forward/backward fill of missing values.
func (s *Statement) NumericFields() []*OptFloat {
	return []*OptFloat{
		&s.NetSales, &s.OperatingProfit, &s.OrdinaryProfit, &s.Profit,
		&s.EarningsPerShare,
		&s.ForecastNetSales, &s.ForecastOperatingProfit, &s.ForecastOrdinaryProfit,
		&s.ForecastProfit, &s.ForecastEarningsPerShare,
		&s.NextYearForecastNetSales, &s.NextYearForecastOperatingProfit,
		&s.NextYearForecastOrdinaryProfit, &s.NextYearForecastProfit,
		&s.NextYearForecastEarningsPerShare,
		&s.TotalAssets, &s.Equity, &s.EquityToAssetRatio, &s.BookValuePerShare,
		&s.IssuedShares, &s.AverageShares,
	}
}
