// Package output provides utilities for formatting and exporting dashboard
// data: forecast downloads and terminal tables.
package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/iwvelando/fi-dashboard/internal/config"
	"github.com/iwvelando/fi-dashboard/internal/dataset"
	"github.com/iwvelando/fi-dashboard/pkg/constants"
	"github.com/iwvelando/fi-dashboard/pkg/format"
	"github.com/xuri/excelize/v2"
)

// ForecastSheet is the worksheet name of spreadsheet exports.
const ForecastSheet = "Forecast"

// ForecastFileName builds the download name for the forecast table, e.g.
// "ethiopia_fi_forecast_2025_2027.csv".
func ForecastFileName(country string, cfg config.ForecastConfig, ext string) string {
	slug := strings.ToLower(strings.Join(strings.Fields(country), "_"))
	if slug == "" {
		slug = "forecast"
	}
	return fmt.Sprintf("%s_fi_forecast_%d_%d.%s", slug, cfg.FirstForecastYear(), cfg.LastForecastYear(), strings.TrimPrefix(ext, "."))
}

// ForecastCSV encodes the forecast table as CSV with its original header
// and cells.
func ForecastCSV(f *dataset.Forecast) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(f.Header()); err != nil {
		return nil, err
	}
	if err := w.WriteAll(f.Rows()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ForecastXLSX encodes the forecast table as a spreadsheet with one sheet.
// Years and numeric columns are stored as numbers.
func ForecastXLSX(f *dataset.Forecast) ([]byte, error) {
	xlsx := excelize.NewFile()
	defer func() {
		_ = xlsx.Close()
	}()

	if err := xlsx.SetSheetName("Sheet1", ForecastSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := f.Header()
	for col, name := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := xlsx.SetCellValue(ForecastSheet, cell, name); err != nil {
			return nil, err
		}
	}

	series := make(map[string][]float64, len(header))
	for _, name := range header {
		if f.IsNumeric(name) {
			values, err := f.Series(name)
			if err != nil {
				return nil, err
			}
			series[name] = values
		}
	}

	years := f.Years()
	for row, cells := range f.Rows() {
		for col, name := range header {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}

			var value interface{}
			switch {
			case name == constants.ForecastYearColumn:
				value = years[row]
			case series[name] != nil:
				v := series[name][row]
				if math.IsNaN(v) {
					continue
				}
				value = v
			case col < len(cells):
				value = cells[col]
			default:
				continue
			}
			if err := xlsx.SetCellValue(ForecastSheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	buf, err := xlsx.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode spreadsheet: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteForecast writes the forecast table in one of the output formats.
// The pretty format shows only the scenario columns.
func WriteForecast(w io.Writer, f *dataset.Forecast, format string) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case constants.OutputFormatCSV:
		data, err = ForecastCSV(f)
	case constants.OutputFormatXLSX:
		data, err = ForecastXLSX(f)
	case constants.OutputFormatPretty, "":
		_, err = io.WriteString(w, PrettyForecast(f))
		return err
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// PrettyForecast renders the access and usage forecast of every scenario.
func PrettyForecast(f *dataset.Forecast) string {
	headers := []string{"Year"}
	var columns [][]float64
	for _, s := range dataset.Scenarios {
		access, usage, err := f.ScenarioSeries(s)
		if err != nil {
			continue
		}
		headers = append(headers, s.Title()+" Access", s.Title()+" Usage")
		columns = append(columns, access, usage)
	}

	rows := make([][]string, 0, f.Len())
	for i, year := range f.Years() {
		row := []string{strconv.Itoa(year)}
		for _, values := range columns {
			row = append(row, format.Percent(values[i]))
		}
		rows = append(rows, row)
	}

	title := "Scenario Forecast"
	if f.IsFallback() {
		title += " (illustrative)"
	}
	return RenderTable(Table{Title: title, Headers: headers, Rows: rows})
}
