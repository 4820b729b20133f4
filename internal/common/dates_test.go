package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, JST)
}

func TestIsTradingDay(t *testing.T) {
	holidays := []time.Time{date(2026, time.January, 1)}

	tests := []struct {
		name string
		day  time.Time
		want bool
	}{
		{"weekday", date(2026, time.August, 28), true}, // Friday
		{"saturday", date(2026, time.August, 29), false},
		{"sunday", date(2026, time.August, 30), false},
		{"holiday", date(2026, time.January, 1), false}, // Thursday, but a holiday
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTradingDay(tt.day, holidays))
		})
	}
}

func TestLastTradingDay(t *testing.T) {
	// Sunday resolves back to Friday
	got := LastTradingDay(date(2026, time.August, 30), nil)
	assert.Equal(t, date(2026, time.August, 28), got)

	// A trading day resolves to itself
	friday := date(2026, time.August, 28)
	assert.Equal(t, friday, LastTradingDay(friday, nil))

	// Holiday Friday walks back one more day
	holidays := []time.Time{date(2026, time.August, 28)}
	got = LastTradingDay(date(2026, time.August, 29), holidays)
	assert.Equal(t, date(2026, time.August, 27), got)
}

func TestDateFormats(t *testing.T) {
	d := date(2026, time.August, 29)
	assert.Equal(t, "2026-08-29", FormatDateISO(d))
	assert.Equal(t, "20260829", FormatDateCompact(d))
	assert.Equal(t, "260829", FormatDateShort(d))
}

func TestYearsAgo(t *testing.T) {
	d := date(2026, time.August, 29)
	assert.Equal(t, date(2023, time.August, 29), YearsAgo(d, 3))
}
