package models

// ListedCompany is one row from the J-Quants /listed/info endpoint.
type ListedCompany struct {
	Code               string `json:"Code"`
	CompanyName        string `json:"CompanyName"`
	CompanyNameEnglish string `json:"CompanyNameEnglish"`
	Sector17CodeName   string `json:"Sector17CodeName"`
	Sector33CodeName   string `json:"Sector33CodeName"`
	MarketCodeName     string `json:"MarketCodeName"`
}

// ListedCSVHeader is the column order for the cached listed-info file.
func ListedCSVHeader() []string {
	return []string{
		"Code", "CompanyName", "CompanyNameEnglish",
		"Sector17CodeName", "Sector33CodeName", "MarketCodeName",
	}
}

// CSVRecord renders the company in ListedCSVHeader order.
func (l ListedCompany) CSVRecord() []string {
	return []string{
		l.Code, l.CompanyName, l.CompanyNameEnglish,
		l.Sector17CodeName, l.Sector33CodeName, l.MarketCodeName,
	}
}

// ListedFromCSVRecord parses a record written by CSVRecord.
func ListedFromCSVRecord(record []string) ListedCompany {
	get := func(i int) string {
		if i < len(record) {
			return record[i]
		}
		return ""
	}
	return ListedCompany{
		Code:               get(0),
		CompanyName:        get(1),
		CompanyNameEnglish: get(2),
		Sector17CodeName:   get(3),
		Sector33CodeName:   get(4),
		MarketCodeName:     get(5),
	}
}

// CompanyNames builds a code -> company name lookup from listed info
// rows. The English name is preferred because report rendering uses
// core PDF fonts, which cannot encode Japanese text.
func CompanyNames(companies []ListedCompany) map[string]string {
	names := make(map[string]string, len(companies))
	for _, c := range companies {
		if c.CompanyNameEnglish != "" {
			names[c.Code] = c.CompanyNameEnglish
		} else {
			names[c.Code] = c.CompanyName
		}
	}
	return names
}
