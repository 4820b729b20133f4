// Package models defines the market data and analysis types shared across
// the application.
package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// OptFloat is a float64 that may be absent. The J-Quants API encodes most
// numeric fields as JSON strings and missing values as "" or null, so a
// plain float64 cannot represent the wire format.
type OptFloat struct {
	Value float64
	Valid bool
}

// Float returns an OptFloat holding the given value.
func Float(v float64) OptFloat {
	return OptFloat{Value: v, Valid: true}
}

// UnmarshalJSON accepts a JSON number, a numeric string, "" or null.
func (f *OptFloat) UnmarshalJSON(data []byte) error {
	f.Value, f.Valid = 0, false

	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" || s == "-" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			// Non-numeric strings (e.g. stray annotations) are treated as absent
			return nil
		}
		f.Value, f.Valid = v, true
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	f.Value, f.Valid = v, true
	return nil
}

// MarshalJSON emits the numeric value, or null when absent.
func (f OptFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// String renders the value for CSV output; absent values are empty strings.
func (f OptFloat) String() string {
	if !f.Valid {
		return ""
	}
	return strconv.FormatFloat(f.Value, 'f', -1, 64)
}

// ParseOptFloat parses a CSV field back into an OptFloat.
func ParseOptFloat(s string) OptFloat {
	if s == "" {
		return OptFloat{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return OptFloat{}
	}
	return OptFloat{Value: v, Valid: true}
}

// Or returns the value when present, otherwise the fallback.
func (f OptFloat) Or(fallback float64) float64 {
	if f.Valid {
		return f.Value
	}
	return fallback
}
