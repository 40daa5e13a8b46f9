// Package testutil provides common utility functions for testing.
package testutil

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// EnrichedHeader is the column order used by generated enriched fixtures.
var EnrichedHeader = []string{
	"record_type", "pillar", "indicator_code", "value_numeric",
	"observation_date", "source_name", "source_url", "confidence",
}

// ForecastHeader is the column order used by generated forecast fixtures.
var ForecastHeader = []string{
	"year_int",
	"baseline_access", "optimistic_access", "pessimistic_access",
	"baseline_usage", "optimistic_usage", "pessimistic_usage",
}

// CSV encodes rows as CSV text.
func CSV(rows ...[]string) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.WriteAll(rows)
	return buf.String()
}

// WriteFile writes content to name under dir, creating parent directories,
// and returns the full path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// Observation builds an enriched observation row.
func Observation(code, value, date, confidence string) []string {
	return []string{"observation", "ACCESS", code, value, date, "Test source", "https://example.org", confidence}
}

// Event builds an enriched event row.
func Event(code, date string) []string {
	return []string{"event", "ACCESS", code, "", date, "Test source", "https://example.org", "high"}
}

// ValidEnrichedRows returns n observation rows plus two events that together
// pass every schema check. n below 2 is raised to 2.
func ValidEnrichedRows(n int) [][]string {
	if n < 2 {
		n = 2
	}
	rows := [][]string{
		Observation("ACC_OWNERSHIP", "49", "2024-12-31", "high"),
		Observation("USG_DIGITAL_PAYMENT", "21", "2024-12-31", "high"),
	}
	for i := 2; i < n; i++ {
		year := 2011 + i%13
		rows = append(rows, Observation("ACC_OWNERSHIP", fmt.Sprintf("%d", 10+i%35), fmt.Sprintf("%d-12-31", year), "medium"))
	}
	rows = append(rows, Event("EVT_TELEBIRR", "2021-05-01"), Event("EVT_MPESA", "2023-08-01"))
	return rows
}

// ValidEnrichedCSV returns an enriched table that passes every schema check.
func ValidEnrichedCSV() string {
	return CSV(append([][]string{EnrichedHeader}, ValidEnrichedRows(32)...)...)
}

// ForecastCSV returns a three-year forecast table.
func ForecastCSV() string {
	return CSV(
		ForecastHeader,
		[]string{"2025", "51", "54", "49", "22", "25", "21"},
		[]string{"2026", "55", "60", "51", "26", "32", "24"},
		[]string{"2027", "58", "66", "53", "30", "39", "26"},
	)
}
