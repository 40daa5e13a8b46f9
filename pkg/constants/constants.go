// Package constants provides shared constants for the fi-dashboard application.
package constants

// DateLayout is the canonical observation date format used in the datasets
// and in rendered output.
const DateLayout = "2006-01-02"

// Dataset locations, relative to the dashboard configuration file.
const (
	// DefaultEnrichedDataPath is the enriched unified observation table.
	DefaultEnrichedDataPath = "data/processed/ethiopia_fi_unified_enriched_20260131.csv"

	// DefaultForecastDataPath is the annual scenario forecast table.
	DefaultForecastDataPath = "reports/figures/task4_annual_forecast_2025_2027.csv"
)

// Record types found in the enriched dataset.
const (
	RecordTypeObservation = "observation"
	RecordTypeEvent       = "event"
)

// Indicator codes used by the dashboard.
const (
	IndicatorAccountOwnership     = "ACC_OWNERSHIP"
	IndicatorDigitalPayment       = "USG_DIGITAL_PAYMENT"
	IndicatorMobileMoneyAccount   = "ACC_MM_ACCOUNT"
	IndicatorMobileMoneyTotal     = "MOBILE_MONEY_ACCOUNTS_TOTAL"
	IndicatorActiveMobileMoneyPct = "ACTIVE_MM_ACCOUNTS_PCT"
)

// TrendIndicators lists the indicators selectable on the historical trend
// chart, in display order. The first entry is the default.
var TrendIndicators = []string{
	IndicatorAccountOwnership,
	IndicatorDigitalPayment,
	IndicatorMobileMoneyAccount,
}

// KeyIndicators must have recent observations for the forecast to be
// considered relevant.
var KeyIndicators = []string{
	IndicatorAccountOwnership,
	IndicatorDigitalPayment,
	IndicatorActiveMobileMoneyPct,
}

// Confidence levels accepted in the enriched dataset (compared lower-cased).
var ConfidenceLevels = []string{"high", "medium", "low"}

// Forecast table constants
const (
	// ForecastYearColumn holds the integer forecast year.
	ForecastYearColumn = "year_int"

	// MillionDivisor converts raw account counts to millions.
	MillionDivisor = 1e6
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable terminal format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatXLSX is the spreadsheet output format
	OutputFormatXLSX = "xlsx"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// ExampleConfigFile is the example configuration file name
	ExampleConfigFile = "config.yaml.example"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the dashboard
	DefaultServerAddress = ":8080"

	// DefaultReadTimeout is the default HTTP read timeout
	DefaultReadTimeout = "10s"

	// DefaultWriteTimeout is the default HTTP write timeout
	DefaultWriteTimeout = "30s"
)

// Validation constants
const (
	// MinEnrichedRows is the number of rows the enriched dataset must exceed.
	MinEnrichedRows = 30

	// RecentObservationYear is the earliest year counted as recent data.
	RecentObservationYear = 2024

	// PercentageMax is the upper bound for percentage indicators.
	PercentageMax = 100.0
)
