package dataset

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/iwvelando/fi-dashboard/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readValidationFixture(t *testing.T, rows ...[]string) *Enriched {
	t.Helper()
	all := append([][]string{testutil.EnrichedHeader}, rows...)
	e, err := ReadEnriched(strings.NewReader(testutil.CSV(all...)))
	require.NoError(t, err)
	return e
}

func TestValidateFixturePasses(t *testing.T) {
	e, err := LoadEnriched(filepath.Join("testdata", "enriched.csv"))
	require.NoError(t, err)

	report := Validate(e, DefaultValidationOptions())
	assert.True(t, report.OK(), "unexpected issues: %v", report.Issues)
	assert.NoError(t, report.Err())
	assert.Equal(t, AllChecks, report.Checks)
}

func TestValidateGeneratedFixturePasses(t *testing.T) {
	e := readValidationFixture(t, testutil.ValidEnrichedRows(32)...)

	report := Validate(e, DefaultValidationOptions())
	assert.True(t, report.OK(), "unexpected issues: %v", report.Issues)
}

func TestValidateChecks(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func([][]string) [][]string
		check       string
		errContains string
	}{
		{
			name: "Too few rows",
			mutate: func(rows [][]string) [][]string {
				return rows[:10]
			},
			check:       CheckRowCount,
			errContains: "more than 30 rows",
		},
		{
			name: "Observation without date",
			mutate: func(rows [][]string) [][]string {
				return append(rows, testutil.Observation("ACC_OWNERSHIP", "40", "", "high"))
			},
			check:       CheckObservationDateType,
			errContains: "1 observations have no observation_date",
		},
		{
			name: "No events",
			mutate: func(rows [][]string) [][]string {
				var kept [][]string
				for _, row := range rows {
					if row[0] != "event" {
						kept = append(kept, row)
					}
				}
				return kept
			},
			check:       CheckRecordTypes,
			errContains: "no event rows",
		},
		{
			name: "Blank record type",
			mutate: func(rows [][]string) [][]string {
				row := testutil.Observation("ACC_OWNERSHIP", "40", "2020-01-01", "high")
				row[0] = ""
				return append(rows, row)
			},
			check:       CheckRecordTypes,
			errContains: "1 rows have an empty record_type",
		},
		{
			name: "Unknown confidence",
			mutate: func(rows [][]string) [][]string {
				return append(rows,
					testutil.Observation("ACC_OWNERSHIP", "40", "2020-01-01", "Certain"),
					testutil.Observation("ACC_OWNERSHIP", "41", "2020-06-01", "guess"))
			},
			check:       CheckConfidenceLevels,
			errContains: "certain, guess",
		},
		{
			name: "Negative percentage",
			mutate: func(rows [][]string) [][]string {
				return append(rows, testutil.Observation("ACC_OWNERSHIP", "-1", "2020-01-01", "high"))
			},
			check:       CheckValueRanges,
			errContains: "negative percentage values",
		},
		{
			name: "Percentage above 100",
			mutate: func(rows [][]string) [][]string {
				return append(rows, testutil.Observation("USG_DIGITAL_PAYMENT", "120", "2020-01-01", "high"))
			},
			check:       CheckValueRanges,
			errContains: "percentage values > 100",
		},
		{
			name: "Zero total accounts",
			mutate: func(rows [][]string) [][]string {
				return append(rows, testutil.Observation("MOBILE_MONEY_ACCOUNTS_TOTAL", "0", "2020-01-01", "high"))
			},
			check:       CheckValueRanges,
			errContains: "negative or zero total accounts",
		},
		{
			name: "No recent data",
			mutate: func(rows [][]string) [][]string {
				var kept [][]string
				for _, row := range rows {
					if !strings.HasPrefix(row[4], "2024") {
						kept = append(kept, row)
					}
				}
				for len(kept) < 33 {
					kept = append(kept, testutil.Observation("ACC_OWNERSHIP", "30", "2018-12-31", "low"))
				}
				return kept
			},
			check:       CheckRecentData,
			errContains: "no observations from 2024",
		},
		{
			name: "Recent data without key indicators",
			mutate: func(rows [][]string) [][]string {
				var kept [][]string
				for _, row := range rows {
					if !strings.HasPrefix(row[4], "2024") {
						kept = append(kept, row)
					}
				}
				kept = append(kept, testutil.Observation("ACC_4G_COVERAGE", "70", "2024-12-31", "medium"))
				for len(kept) < 33 {
					kept = append(kept, testutil.Observation("ACC_OWNERSHIP", "30", "2018-12-31", "low"))
				}
				return kept
			},
			check:       CheckRecentData,
			errContains: "no recent data for key indicators",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := readValidationFixture(t, tt.mutate(testutil.ValidEnrichedRows(32))...)

			report := Validate(e, DefaultValidationOptions())
			require.False(t, report.OK())
			assert.False(t, report.Passed(tt.check), "expected %s to fail", tt.check)

			messages := report.ByCheck()[tt.check]
			require.NotEmpty(t, messages)
			assert.Contains(t, strings.Join(messages, "\n"), tt.errContains)
			assert.Contains(t, report.Err().Error(), tt.check+": ")
		})
	}
}

func TestValidateCountIndicatorsSkipPercentageRange(t *testing.T) {
	rows := append(testutil.ValidEnrichedRows(32),
		testutil.Observation("MOBILE_MONEY_ACCOUNTS_TOTAL", "139500000", "2025-06-30", "medium"))
	e := readValidationFixture(t, rows...)

	report := Validate(e, DefaultValidationOptions())
	assert.True(t, report.Passed(CheckValueRanges), "unexpected issues: %v", report.ByCheck()[CheckValueRanges])
}

func TestValidateMissingColumns(t *testing.T) {
	content := "record_type,indicator_code,value_numeric\nobservation,ACC_OWNERSHIP,49\n"
	e, err := ReadEnriched(strings.NewReader(content), WithoutColumnCheck())
	require.NoError(t, err)

	report := Validate(e, DefaultValidationOptions())
	assert.False(t, report.Passed(CheckRequiredColumns))
	assert.False(t, report.Passed(CheckObservationDateType))

	messages := strings.Join(report.ByCheck()[CheckRequiredColumns], "")
	assert.Contains(t, messages, "pillar")
	assert.Contains(t, messages, "observation_date")
	assert.NotContains(t, messages, "record_type")
}

func TestValidateCustomOptions(t *testing.T) {
	e := readValidationFixture(t, testutil.ValidEnrichedRows(2)...)

	report := Validate(e, ValidationOptions{MinRows: 3, RecentYear: 2030})
	assert.True(t, report.Passed(CheckRowCount))
	assert.False(t, report.Passed(CheckRecentData))
}

func TestIsConfidenceLevel(t *testing.T) {
	for _, value := range []string{"high", "Medium", " LOW ", ""} {
		assert.True(t, isConfidenceLevel(value), value)
	}
	for _, value := range []string{"unknown", "very high"} {
		assert.False(t, isConfidenceLevel(value), value)
	}
}
