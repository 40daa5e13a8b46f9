// Package dataset loads the enriched observation table and the scenario
// forecast table, and validates the enriched table's schema.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/fi-dashboard/pkg/constants"
	"github.com/iwvelando/fi-dashboard/pkg/datetime"
)

// Column names of the enriched dataset.
const (
	ColumnRecordType      = "record_type"
	ColumnPillar          = "pillar"
	ColumnIndicatorCode   = "indicator_code"
	ColumnValueNumeric    = "value_numeric"
	ColumnObservationDate = "observation_date"
	ColumnSourceName      = "source_name"
	ColumnSourceURL       = "source_url"
	ColumnConfidence      = "confidence"
)

// RequiredColumns must all be present in the enriched dataset header.
var RequiredColumns = []string{
	ColumnRecordType,
	ColumnPillar,
	ColumnIndicatorCode,
	ColumnValueNumeric,
	ColumnObservationDate,
	ColumnSourceName,
	ColumnSourceURL,
	ColumnConfidence,
}

// ErrMissingColumns is returned when a table lacks required columns.
var ErrMissingColumns = errors.New("missing required columns")

// Record is one row of the enriched dataset.
type Record struct {
	Line            int
	RecordType      string `validate:"required"`
	Pillar          string
	IndicatorCode   string
	ValueNumeric    *float64
	ObservationDate time.Time
	HasDate         bool
	SourceName      string
	SourceURL       string
	Confidence      string `validate:"omitempty,confidence"`
	// Extra holds the cells of columns outside the known schema.
	Extra map[string]string
}

// Value returns the numeric value and whether one is present.
func (r Record) Value() (float64, bool) {
	if r.ValueNumeric == nil {
		return math.NaN(), false
	}
	return *r.ValueNumeric, true
}

// Records is an ordered set of enriched rows.
type Records []Record

// Enriched is the loaded enriched dataset.
type Enriched struct {
	path    string
	columns []string
	records Records
}

type loadOptions struct {
	checkColumns bool
}

// LoadOption adjusts LoadEnriched behaviour.
type LoadOption func(*loadOptions)

// WithoutColumnCheck loads a table even when required columns are missing,
// leaving the absent fields empty. The schema suite reports them instead.
func WithoutColumnCheck() LoadOption {
	return func(o *loadOptions) {
		o.checkColumns = false
	}
}

// LoadEnriched loads the enriched unified dataset. An empty path selects
// the default location. The file must exist.
func LoadEnriched(path string, opts ...LoadOption) (*Enriched, error) {
	if path == "" {
		path = constants.DefaultEnrichedDataPath
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("cannot find enriched data file (expected %s, given %s; check that the file exists in data/processed/): %w",
				constants.DefaultEnrichedDataPath, path, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to stat enriched data file %s: %w", path, err)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open enriched data file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	enriched, err := ReadEnriched(file, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	enriched.path = path
	return enriched, nil
}

// ReadEnriched parses an enriched dataset from CSV.
func ReadEnriched(r io.Reader, opts ...LoadOption) (*Enriched, error) {
	options := loadOptions{checkColumns: true}
	for _, opt := range opts {
		opt(&options)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty file")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	header = normalizeHeader(header)

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}

	if options.checkColumns {
		if missing := missingColumns(index, RequiredColumns); len(missing) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
		}
	}

	known := make(map[string]struct{}, len(RequiredColumns))
	for _, name := range RequiredColumns {
		known[name] = struct{}{}
	}

	var records Records
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		cell := func(name string) string {
			if i, ok := index[name]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}

		record := Record{
			Line:          line,
			RecordType:    cell(ColumnRecordType),
			Pillar:        cell(ColumnPillar),
			IndicatorCode: cell(ColumnIndicatorCode),
			SourceName:    cell(ColumnSourceName),
			SourceURL:     cell(ColumnSourceURL),
			Confidence:    cell(ColumnConfidence),
		}

		value, err := parseOptionalFloat(cell(ColumnValueNumeric))
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, ColumnValueNumeric, err)
		}
		record.ValueNumeric = value

		date, ok, err := datetime.ParseObservationDate(cell(ColumnObservationDate))
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, ColumnObservationDate, err)
		}
		record.ObservationDate = date
		record.HasDate = ok

		for i, name := range header {
			if _, isKnown := known[name]; isKnown || i >= len(row) {
				continue
			}
			if record.Extra == nil {
				record.Extra = make(map[string]string)
			}
			record.Extra[name] = row[i]
		}

		records = append(records, record)
	}

	return &Enriched{columns: header, records: records}, nil
}

// NewEnriched builds a dataset from in-memory records.
func NewEnriched(columns []string, records Records) *Enriched {
	return &Enriched{
		columns: append([]string(nil), columns...),
		records: append(Records(nil), records...),
	}
}

// Path is the file the dataset was loaded from, if any.
func (e *Enriched) Path() string { return e.path }

// Columns returns the header in file order.
func (e *Enriched) Columns() []string {
	return append([]string(nil), e.columns...)
}

// HasColumn reports whether the header contains name.
func (e *Enriched) HasColumn(name string) bool {
	for _, c := range e.columns {
		if c == name {
			return true
		}
	}
	return false
}

// Len is the number of data rows.
func (e *Enriched) Len() int { return len(e.records) }

// Records returns all rows in file order.
func (e *Enriched) Records() Records {
	return append(Records(nil), e.records...)
}

// Observations returns the rows whose record type is "observation".
func (e *Enriched) Observations() Records {
	return e.records.OfType(constants.RecordTypeObservation)
}

// Filter returns the rows for which keep returns true.
func (rs Records) Filter(keep func(Record) bool) Records {
	var out Records
	for _, r := range rs {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// OfType returns the rows with the given record type.
func (rs Records) OfType(recordType string) Records {
	return rs.Filter(func(r Record) bool { return r.RecordType == recordType })
}

// ByIndicator returns the rows for one indicator code, sorted by
// observation date. Rows without a date sort first.
func (rs Records) ByIndicator(code string) Records {
	out := rs.Filter(func(r Record) bool { return r.IndicatorCode == code })
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].HasDate != out[j].HasDate {
			return !out[i].HasDate
		}
		return out[i].ObservationDate.Before(out[j].ObservationDate)
	})
	return out
}

// MaxValue returns the largest numeric value, skipping rows without one.
func (rs Records) MaxValue() (float64, bool) {
	best := math.Inf(-1)
	found := false
	for _, r := range rs {
		if v, ok := r.Value(); ok && !math.IsNaN(v) {
			if v > best {
				best = v
			}
			found = true
		}
	}
	if !found {
		return math.NaN(), false
	}
	return best, true
}

// Any reports whether at least one row satisfies match.
func (rs Records) Any(match func(Record) bool) bool {
	for _, r := range rs {
		if match(r) {
			return true
		}
	}
	return false
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		out[i] = name
	}
	return out
}

func missingColumns(index map[string]int, required []string) []string {
	var missing []string
	for _, name := range required {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func parseOptionalFloat(value string) (*float64, error) {
	if value == "" || strings.EqualFold(value, "nan") {
		return nil, nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", ""), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", value)
	}
	return &f, nil
}
