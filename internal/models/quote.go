package models

// DailyQuote is one row from the J-Quants /prices/daily_quotes endpoint.
// Adjustment* columns carry split-adjusted values and are the ones the
// analysis reads.
type DailyQuote struct {
	Date string `json:"Date"`
	Code string `json:"Code"`

	Open          OptFloat `json:"Open"`
	High          OptFloat `json:"High"`
	Low           OptFloat `json:"Low"`
	Close         OptFloat `json:"Close"`
	Volume        OptFloat `json:"Volume"`
	TurnoverValue OptFloat `json:"TurnoverValue"`

	AdjustmentFactor OptFloat `json:"AdjustmentFactor"`
	AdjustmentOpen   OptFloat `json:"AdjustmentOpen"`
	AdjustmentHigh   OptFloat `json:"AdjustmentHigh"`
	AdjustmentLow    OptFloat `json:"AdjustmentLow"`
	AdjustmentClose  OptFloat `json:"AdjustmentClose"`
	AdjustmentVolume OptFloat `json:"AdjustmentVolume"`
}

// QuoteCSVHeader is the column order for cached quote files.
func QuoteCSVHeader() []string {
	return []string{
		"Date", "Code",
		"Open", "High", "Low", "Close", "Volume", "TurnoverValue",
		"AdjustmentFactor", "AdjustmentOpen", "AdjustmentHigh",
		"AdjustmentLow", "AdjustmentClose", "AdjustmentVolume",
	}
}

// CSVRecord renders the quote in QuoteCSVHeader order.
func (q DailyQuote) CSVRecord() []string {
	return []string{
		q.Date, q.Code,
		q.Open.String(), q.High.String(), q.Low.String(), q.Close.String(),
		q.Volume.String(), q.TurnoverValue.String(),
		q.AdjustmentFactor.String(), q.AdjustmentOpen.String(),
		q.AdjustmentHigh.String(), q.AdjustmentLow.String(),
		q.AdjustmentClose.String(), q.AdjustmentVolume.String(),
	}
}

// QuoteFromCSVRecord parses a record written by CSVRecord.
func QuoteFromCSVRecord(record []string) DailyQuote {
	get := func(i int) string {
		if i < len(record) {
			return record[i]
		}
		return ""
	}
	return DailyQuote{
		Date: get(0),
		Code: get(1),

		Open:          ParseOptFloat(get(2)),
		High:          ParseOptFloat(get(3)),
		Low:           ParseOptFloat(get(4)),
		Close:         ParseOptFloat(get(5)),
		Volume:        ParseOptFloat(get(6)),
		TurnoverValue: ParseOptFloat(get(7)),

		AdjustmentFactor: ParseOptFloat(get(8)),
		AdjustmentOpen:   ParseOptFloat(get(9)),
		AdjustmentHigh:   ParseOptFloat(get(10)),
		AdjustmentLow:    ParseOptFloat(get(11)),
		AdjustmentClose:  ParseOptFloat(get(12)),
		AdjustmentVolume: ParseOptFloat(get(13)),
	}
}
