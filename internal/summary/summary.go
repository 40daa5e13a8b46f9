// Package summary computes the headline inclusion metrics shown on the
// dashboard overview.
package summary

import (
	"fmt"

	"github.com/iwvelando/fi-dashboard/internal/config"
	"github.com/iwvelando/fi-dashboard/internal/dataset"
	"github.com/iwvelando/fi-dashboard/pkg/constants"
	"github.com/iwvelando/fi-dashboard/pkg/format"
)

// Source tells where a metric value came from.
type Source string

const (
	// SourceData means the value was taken from observations.
	SourceData Source = "data"
	// SourceBenchmark means no observations existed and the configured
	// benchmark was used.
	SourceBenchmark Source = "benchmark"
)

// Unit is the display unit of a metric.
type Unit string

const (
	UnitPercent  Unit = "percent"
	UnitMillions Unit = "millions"
)

// Metric is one overview card.
type Metric struct {
	Key       string  `json:"key"`
	Label     string  `json:"label"`
	Indicator string  `json:"indicator"`
	Year      int     `json:"year"`
	Value     float64 `json:"value"`
	Unit      Unit    `json:"unit"`
	Display   string  `json:"display"`
	Source    Source  `json:"source"`
}

// FromBenchmark reports whether the value is the configured fallback.
func (m Metric) FromBenchmark() bool { return m.Source == SourceBenchmark }

// Summary holds the four overview metrics in display order.
type Summary struct {
	AccountOwnership    Metric `json:"accountOwnership"`
	DigitalPayment      Metric `json:"digitalPayment"`
	MobileMoneyAccounts Metric `json:"mobileMoneyAccounts"`
	ActiveRate          Metric `json:"activeRate"`
}

// Metrics returns the metrics in display order.
func (s Summary) Metrics() []Metric {
	return []Metric{s.AccountOwnership, s.DigitalPayment, s.MobileMoneyAccounts, s.ActiveRate}
}

type metricDef struct {
	key       string
	name      string
	indicator string
	year      int
	unit      Unit
	divisor   float64
	benchmark float64
}

// Compute derives the overview metrics from the observations in e. Each
// metric is the maximum observed value of its indicator; indicators without
// any observations fall back to the benchmark in cfg.
func Compute(e *dataset.Enriched, cfg config.ForecastConfig) Summary {
	var observations dataset.Records
	if e != nil {
		observations = e.Observations()
	}

	base := cfg.BaseYear()
	defs := []metricDef{
		{"account_ownership", "Account Ownership", constants.IndicatorAccountOwnership, base, UnitPercent, 1, cfg.LatestAccessPct()},
		{"digital_payment", "Digital Payment Usage", constants.IndicatorDigitalPayment, base, UnitPercent, 1, cfg.LatestUsagePct()},
		{"mobile_money_accounts", "Mobile Money Accounts", constants.IndicatorMobileMoneyTotal, base + 1, UnitMillions, constants.MillionDivisor, cfg.LatestMobileMoneyAccountsM()},
		{"active_rate", "Active Rate", constants.IndicatorActiveMobileMoneyPct, base + 1, UnitPercent, 1, cfg.LatestActivePct()},
	}

	metrics := make([]Metric, len(defs))
	for i, def := range defs {
		metrics[i] = compute(observations, def)
	}

	return Summary{
		AccountOwnership:    metrics[0],
		DigitalPayment:      metrics[1],
		MobileMoneyAccounts: metrics[2],
		ActiveRate:          metrics[3],
	}
}

func compute(observations dataset.Records, def metricDef) Metric {
	m := Metric{
		Key:       def.key,
		Label:     fmt.Sprintf("%s (%d)", def.name, def.year),
		Indicator: def.indicator,
		Year:      def.year,
		Unit:      def.unit,
		Value:     def.benchmark,
		Source:    SourceBenchmark,
	}

	if v, ok := observations.ByIndicator(def.indicator).MaxValue(); ok {
		m.Value = v / def.divisor
		m.Source = SourceData
	}

	switch m.Unit {
	case UnitMillions:
		m.Display = format.Millions(m.Value)
	default:
		m.Display = format.Percent(m.Value)
	}
	return m
}
