// Package common provides shared utilities across the application.
package common

import (
	"fmt"
	"strings"
)

// NormalizeCode normalizes a JPX security code to the 5-digit form the
// J-Quants API expects.
//
//	"1301"  -> "13010"   (4 digits: append market digit 0)
//	"13010" -> "13010"   (already 5 digits)
//	"215a"  -> "215A0"   (alphanumeric codes are uppercased)
func NormalizeCode(input string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(input))

	switch len(code) {
	case 4:
		return code + "0", nil
	case 5:
		return code, nil
	default:
		return "", fmt.Errorf("invalid security code %q (length %d)", code, len(code))
	}
}

// NormalizeCodes normalizes a list of security codes, dropping invalid
// entries. Returns an error only when no valid code remains. Duplicates
// after normalization are removed, preserving first occurrence order.
func NormalizeCodes(inputs []string) ([]string, error) {
	seen := make(map[string]bool, len(inputs))
	normalized := make([]string, 0, len(inputs))

	for _, input := range inputs {
		code, err := NormalizeCode(input)
		if err != nil {
			GetLogger().Warn().Str("code", input).Err(err).Msg("Skipping invalid security code")
			continue
		}
		if seen[code] {
			continue
		}
		seen[code] = true
		normalized = append(normalized, code)
	}

	if len(normalized) == 0 {
		return nil, fmt.Errorf("no valid security codes in %v", inputs)
	}
	return normalized, nil
}
