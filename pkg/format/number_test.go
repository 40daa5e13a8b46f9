package format

import (
	"math"
	"testing"
)

func TestPercent(t *testing.T) {
	tests := map[float64]string{
		49:         "49.0%",
		21.04:      "21.0%",
		0:          "0.0%",
		100:        "100.0%",
		math.NaN(): "n/a",
	}
	for input, expected := range tests {
		if got := Percent(input); got != expected {
			t.Errorf("Percent(%v) = %q, expected %q", input, got, expected)
		}
	}
}

func TestMillions(t *testing.T) {
	if got := Millions(139.5); got != "139.5 million" {
		t.Errorf("Millions(139.5) = %q", got)
	}
	if got := Millions(1234.56); got != "1,234.6 million" {
		t.Errorf("Millions(1234.56) = %q", got)
	}
}

func TestNumber(t *testing.T) {
	tests := []struct {
		value     float64
		precision int
		expected  string
	}{
		{139500000, 0, "139,500,000"},
		{-1234.5, 2, "-1,234.50"},
		{999, 0, "999"},
		{12.345, -1, "12"},
	}
	for _, tt := range tests {
		if got := Number(tt.value, tt.precision); got != tt.expected {
			t.Errorf("Number(%v, %d) = %q, expected %q", tt.value, tt.precision, got, tt.expected)
		}
	}
}
