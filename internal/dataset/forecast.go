package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/iwvelando/fi-dashboard/pkg/constants"
	"go.uber.org/zap"
)

// Scenario selects one forecast variant.
type Scenario string

// Forecast scenarios.
const (
	Baseline    Scenario = "baseline"
	Optimistic  Scenario = "optimistic"
	Pessimistic Scenario = "pessimistic"
)

// Scenarios lists the scenarios in display order. The first is the default.
var Scenarios = []Scenario{Baseline, Optimistic, Pessimistic}

// ErrUnknownScenario is returned for scenario names outside Scenarios.
var ErrUnknownScenario = errors.New("unknown scenario")

// ParseScenario resolves a scenario name case-insensitively. An empty name
// selects Baseline.
func ParseScenario(name string) (Scenario, error) {
	trimmed := strings.ToLower(strings.TrimSpace(name))
	if trimmed == "" {
		return Baseline, nil
	}
	for _, s := range Scenarios {
		if string(s) == trimmed {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownScenario, name)
}

// Title is the display name, e.g. "Optimistic".
func (s Scenario) Title() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// AccessColumn is the forecast column holding account ownership values.
func (s Scenario) AccessColumn() string { return string(s) + "_access" }

// UsageColumn is the forecast column holding digital payment usage values.
func (s Scenario) UsageColumn() string { return string(s) + "_usage" }

// Forecast is the annual scenario forecast table. Header order and raw cell
// text are kept so the table can be written back out unchanged.
type Forecast struct {
	header   []string
	rows     [][]string
	years    []int
	numeric  map[string][]float64
	fallback bool
}

// LoadForecast loads the forecast table. When the file does not exist the
// illustrative fallback table is returned instead.
func LoadForecast(path string, logger *zap.Logger) (*Forecast, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		path = constants.DefaultForecastDataPath
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("forecast file not found, using illustrative fallback forecast",
				zap.String("op", "dataset.LoadForecast"),
				zap.String("path", path),
			)
			return FallbackForecast(), nil
		}
		return nil, fmt.Errorf("failed to open forecast file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	forecast, err := ReadForecast(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return forecast, nil
}

// ReadForecast parses a forecast table from CSV. The year column is
// required; every other column that parses fully as numbers is available
// through Series.
func ReadForecast(r io.Reader) (*Forecast, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("empty file")
	}
	return newForecast(normalizeHeader(records[0]), records[1:])
}

// FallbackForecast is the illustrative table shown when no forecast file is
// available.
func FallbackForecast() *Forecast {
	header := []string{
		constants.ForecastYearColumn,
		"baseline_access", "optimistic_access", "pessimistic_access",
		"baseline_usage", "optimistic_usage", "pessimistic_usage",
	}
	rows := [][]string{
		{"2025", "50", "53", "49", "22", "25", "21"},
		{"2026", "54", "60", "51", "26", "32", "24"},
		{"2027", "57", "65", "53", "30", "40", "27"},
	}
	f, err := newForecast(header, rows)
	if err != nil {
		panic(fmt.Sprintf("invalid fallback forecast: %v", err))
	}
	f.fallback = true
	return f
}

func newForecast(header []string, rows [][]string) (*Forecast, error) {
	yearIdx := -1
	for i, name := range header {
		if name == constants.ForecastYearColumn {
			yearIdx = i
		}
	}
	if yearIdx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, constants.ForecastYearColumn)
	}

	f := &Forecast{
		header:  header,
		rows:    make([][]string, 0, len(rows)),
		years:   make([]int, 0, len(rows)),
		numeric: make(map[string][]float64),
	}

	for n, row := range rows {
		if yearIdx >= len(row) {
			return nil, fmt.Errorf("line %d: missing %s", n+2, constants.ForecastYearColumn)
		}
		year, err := parseYear(row[yearIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", n+2, constants.ForecastYearColumn, err)
		}
		f.years = append(f.years, year)
		f.rows = append(f.rows, append([]string(nil), row...))
	}

	for i, name := range header {
		if i == yearIdx {
			continue
		}
		values := make([]float64, len(f.rows))
		numeric := true
		for n, row := range f.rows {
			cell := ""
			if i < len(row) {
				cell = strings.TrimSpace(row[i])
			}
			v, err := parseOptionalFloat(cell)
			if err != nil {
				numeric = false
				break
			}
			if v == nil {
				values[n] = math.NaN()
			} else {
				values[n] = *v
			}
		}
		if numeric {
			f.numeric[name] = values
		}
	}

	return f, nil
}

func parseYear(value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if year, err := strconv.Atoi(trimmed); err == nil {
		return year, nil
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid year %q", value)
	}
	return int(f), nil
}

// IsFallback reports whether the table is the built-in illustrative one.
func (f *Forecast) IsFallback() bool { return f.fallback }

// Header returns the column names in file order.
func (f *Forecast) Header() []string {
	return append([]string(nil), f.header...)
}

// Rows returns the raw cells of every row.
func (f *Forecast) Rows() [][]string {
	out := make([][]string, len(f.rows))
	for i, row := range f.rows {
		out[i] = append([]string(nil), row...)
	}
	return out
}

// Len is the number of forecast rows.
func (f *Forecast) Len() int { return len(f.rows) }

// Years returns the forecast year of every row.
func (f *Forecast) Years() []int {
	return append([]int(nil), f.years...)
}

// IsNumeric reports whether a column parsed fully as numbers.
func (f *Forecast) IsNumeric(column string) bool {
	_, ok := f.numeric[column]
	return ok
}

// Series returns the values of a numeric column, one per row.
func (f *Forecast) Series(column string) ([]float64, error) {
	values, ok := f.numeric[column]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, column)
	}
	return append([]float64(nil), values...), nil
}

// ScenarioSeries returns the access and usage series of a scenario.
func (f *Forecast) ScenarioSeries(s Scenario) (access, usage []float64, err error) {
	access, err = f.Series(s.AccessColumn())
	if err != nil {
		return nil, nil, err
	}
	usage, err = f.Series(s.UsageColumn())
	if err != nil {
		return nil, nil, err
	}
	return access, usage, nil
}
