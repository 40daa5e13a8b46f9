package dataset

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/iwvelando/fi-dashboard/pkg/constants"
	"github.com/iwvelando/fi-dashboard/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnrichedFixture(t *testing.T) {
	e, err := LoadEnriched(filepath.Join("testdata", "enriched.csv"))
	require.NoError(t, err)

	assert.Equal(t, 33, e.Len())
	assert.Equal(t, filepath.Join("testdata", "enriched.csv"), e.Path())
	assert.True(t, e.HasColumn(ColumnConfidence))
	assert.True(t, e.HasColumn("notes"))
	assert.False(t, e.HasColumn("unknown"))

	observations := e.Observations()
	assert.Len(t, observations, 24)

	ownership := observations.ByIndicator(constants.IndicatorAccountOwnership)
	require.Len(t, ownership, 6)
	maxValue, ok := ownership.MaxValue()
	require.True(t, ok)
	assert.Equal(t, 49.0, maxValue)

	for i := 1; i < len(ownership); i++ {
		assert.False(t, ownership[i].ObservationDate.Before(ownership[i-1].ObservationDate),
			"observations should be sorted by date")
	}
}

func TestLoadEnrichedMissingFile(t *testing.T) {
	given := filepath.Join(t.TempDir(), "missing.csv")
	_, err := LoadEnriched(given)
	require.Error(t, err)

	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Contains(t, err.Error(), given)
	assert.Contains(t, err.Error(), constants.DefaultEnrichedDataPath)
}

func TestReadEnrichedParsesCells(t *testing.T) {
	content := "\ufeff" + testutil.CSV(
		append(append([]string(nil), testutil.EnrichedHeader...), "notes"),
		[]string{"observation", "ACCESS", "ACC_OWNERSHIP", "1,234.5", "2024-12-31", "Findex", "https://x", "High", "first"},
		[]string{"observation", "USAGE", "USG_DIGITAL_PAYMENT", "nan", "", "Findex", "", "", ""},
		[]string{"event", "ACCESS", "EVT_TELEBIRR", "", "2021-05-01 00:00:00", "Ethio Telecom", "", "high"},
	)

	e, err := ReadEnriched(strings.NewReader(content))
	require.NoError(t, err)
	require.Equal(t, 3, e.Len())
	assert.Equal(t, ColumnRecordType, e.Columns()[0], "byte order mark should be stripped")

	records := e.Records()

	v, ok := records[0].Value()
	require.True(t, ok)
	assert.Equal(t, 1234.5, v)
	assert.True(t, records[0].HasDate)
	assert.Equal(t, "2024-12-31", records[0].ObservationDate.Format(constants.DateLayout))
	assert.Equal(t, map[string]string{"notes": "first"}, records[0].Extra)
	assert.Equal(t, 2, records[0].Line)

	_, ok = records[1].Value()
	assert.False(t, ok, "nan should be treated as missing")
	assert.False(t, records[1].HasDate)

	assert.True(t, records[2].HasDate)
	assert.Nil(t, records[2].Extra, "short rows carry no extra cells")
}

func TestReadEnrichedErrors(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		opts        []LoadOption
		errContains string
		errIs       error
	}{
		{
			name:        "Empty file",
			content:     "",
			errContains: "empty file",
		},
		{
			name:    "Missing columns",
			content: "record_type,indicator_code\nobservation,ACC_OWNERSHIP\n",
			errIs:   ErrMissingColumns,
		},
		{
			name: "Bad number",
			content: testutil.CSV(testutil.EnrichedHeader,
				testutil.Observation("ACC_OWNERSHIP", "lots", "2024-12-31", "high")),
			errContains: "line 2: value_numeric",
		},
		{
			name: "Bad date",
			content: testutil.CSV(testutil.EnrichedHeader,
				testutil.Observation("ACC_OWNERSHIP", "49", "someday", "high")),
			errContains: "observation_date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadEnriched(strings.NewReader(tt.content), tt.opts...)
			require.Error(t, err)
			if tt.errIs != nil {
				assert.ErrorIs(t, err, tt.errIs)
			}
			if tt.errContains != "" {
				assert.Contains(t, err.Error(), tt.errContains)
			}
		})
	}
}

func TestReadEnrichedWithoutColumnCheck(t *testing.T) {
	content := "record_type,indicator_code,value_numeric\nobservation,ACC_OWNERSHIP,49\n"

	e, err := ReadEnriched(strings.NewReader(content), WithoutColumnCheck())
	require.NoError(t, err)
	require.Equal(t, 1, e.Len())

	record := e.Records()[0]
	assert.Equal(t, "ACC_OWNERSHIP", record.IndicatorCode)
	assert.False(t, record.HasDate)
	assert.Empty(t, record.Confidence)
}

func TestRecordsHelpers(t *testing.T) {
	v := func(f float64) *float64 { return &f }
	records := Records{
		{RecordType: "observation", IndicatorCode: "A", ValueNumeric: v(3)},
		{RecordType: "event", IndicatorCode: "EVT"},
		{RecordType: "observation", IndicatorCode: "A"},
		{RecordType: "observation", IndicatorCode: "B", ValueNumeric: v(7)},
	}

	codes := func(rs Records) []string {
		var out []string
		for _, r := range rs {
			out = append(out, r.IndicatorCode)
		}
		return out
	}

	if diff := cmp.Diff([]string{"A", "A", "B"}, codes(records.OfType("observation"))); diff != "" {
		t.Errorf("OfType() mismatch (-want +got):\n%s", diff)
	}

	maxValue, ok := records.ByIndicator("A").MaxValue()
	assert.True(t, ok)
	assert.Equal(t, 3.0, maxValue)

	_, ok = records.ByIndicator("EVT").MaxValue()
	assert.False(t, ok, "rows without values have no maximum")

	assert.True(t, records.Any(func(r Record) bool { return r.IndicatorCode == "B" }))
	assert.False(t, records.Any(func(r Record) bool { return r.IndicatorCode == "C" }))
	assert.Empty(t, records.ByIndicator("C"))
}

func TestNewEnrichedCopiesInput(t *testing.T) {
	columns := []string{ColumnRecordType}
	records := Records{{RecordType: "observation"}}

	e := NewEnriched(columns, records)
	columns[0] = "changed"
	records[0].RecordType = "changed"

	assert.Equal(t, []string{ColumnRecordType}, e.Columns())
	assert.Equal(t, "observation", e.Records()[0].RecordType)
}
