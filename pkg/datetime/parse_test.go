package datetime

import (
	"testing"
)

func TestMustParseTime(t *testing.T) {
	tests := []struct {
		name     string
		layout   string
		dateStr  string
		expected string
	}{
		{
			name:     "Valid date",
			layout:   DateLayout,
			dateStr:  "2021-05-01",
			expected: "2021-05-01",
		},
		{
			name:     "Another valid date",
			layout:   DateLayout,
			dateStr:  "2025-12-01",
			expected: "2025-12-01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MustParseTime(tt.layout, tt.dateStr)
			if result.Format(tt.layout) != tt.expected {
				t.Errorf("MustParseTime() = %s, expected %s", result.Format(tt.layout), tt.expected)
			}
		})
	}
}

func TestMustParseTimePanic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected MustParseTime to panic with invalid date")
		}
	}()

	MustParseTime(DateLayout, "invalid-date")
}

func TestParseObservationDate(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected string
		ok       bool
		wantErr  bool
	}{
		{name: "ISO date", value: "2024-11-29", expected: "2024-11-29", ok: true},
		{name: "Timestamp", value: "2024-11-29 00:00:00", expected: "2024-11-29", ok: true},
		{name: "RFC3339", value: "2021-05-01T00:00:00Z", expected: "2021-05-01", ok: true},
		{name: "Year and month", value: "2023-08", expected: "2023-08-01", ok: true},
		{name: "Year only", value: "2017", expected: "2017-01-01", ok: true},
		{name: "Surrounding whitespace", value: "  2022-01-15 ", expected: "2022-01-15", ok: true},
		{name: "Blank", value: "   ", ok: false},
		{name: "Pandas NaT", value: "NaT", ok: false},
		{name: "Garbage", value: "next tuesday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := ParseObservationDate(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseObservationDate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if ok != tt.ok {
				t.Fatalf("ParseObservationDate() ok = %v, expected %v", ok, tt.ok)
			}
			if tt.ok && got.Format(DateLayout) != tt.expected {
				t.Errorf("ParseObservationDate() = %s, expected %s", got.Format(DateLayout), tt.expected)
			}
		})
	}
}

func TestParseISODate(t *testing.T) {
	if _, err := ParseISODate("2025-12-01"); err != nil {
		t.Fatalf("ParseISODate() unexpected error: %v", err)
	}
	if _, err := ParseISODate("2025-12"); err == nil {
		t.Fatal("expected error for month-only date")
	}
}

func TestDateBeforeDate(t *testing.T) {
	tests := []struct {
		name       string
		firstDate  string
		secondDate string
		expected   bool
		wantErr    bool
	}{
		{
			name:       "First date before second",
			firstDate:  "2021-05-01",
			secondDate: "2023-08-01",
			expected:   true,
		},
		{
			name:       "Same date",
			firstDate:  "2023-08-01",
			secondDate: "2023-08-01",
			expected:   false,
		},
		{
			name:       "Invalid first date",
			firstDate:  "invalid",
			secondDate: "2023-08-01",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := DateBeforeDate(tt.firstDate, tt.secondDate)
			if (err != nil) != tt.wantErr {
				t.Errorf("DateBeforeDate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && result != tt.expected {
				t.Errorf("DateBeforeDate() = %v, expected %v", result, tt.expected)
			}
		})
	}
}
