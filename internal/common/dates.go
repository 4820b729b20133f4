package common

import (
	"time"
)

// JST is the Tokyo Stock Exchange timezone. A fixed offset is used so the
// binary does not depend on the host zoneinfo database.
var JST = time.FixedZone("JST", 9*60*60)

// TodayJST returns the current date in Japan Standard Time, truncated to
// midnight JST.
func TodayJST() time.Time {
	now := time.Now().In(JST)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, JST)
}

// FormatDateISO formats a date as YYYY-MM-DD.
func FormatDateISO(date time.Time) string {
	return date.Format("2006-01-02")
}

// FormatDateCompact formats a date as YYYYMMDD, the form the J-Quants API
// takes for date range parameters.
func FormatDateCompact(date time.Time) string {
	return date.Format("20060102")
}

// FormatDateShort formats a date as YYMMDD, used for cache directory and
// file names.
func FormatDateShort(date time.Time) string {
	return date.Format("060102")
}

// YearsAgo returns the date n years before the given date.
func YearsAgo(date time.Time, n int) time.Time {
	return date.AddDate(-n, 0, 0)
}

// IsTradingDay reports whether the given date is a TSE trading day:
// a weekday that is not one of the supplied holidays. Holidays are compared
// by calendar date.
func IsTradingDay(date time.Time, holidays []time.Time) bool {
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	for _, h := range holidays {
		if h.Year() == date.Year() && h.YearDay() == date.YearDay() {
			return false
		}
	}
	return true
}

// LastTradingDay returns the most recent trading day on or before the given
// date. Walks backwards at most two weeks; beyond that the holiday list is
// assumed wrong and the date itself is returned.
func LastTradingDay(date time.Time, holidays []time.Time) time.Time {
	d := date
	for i := 0; i < 14; i++ {
		if IsTradingDay(d, holidays) {
			return d
		}
		d = d.AddDate(0, 0, -1)
	}
	return date
}
