package config

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/iwvelando/fi-dashboard/pkg/datetime"
)

// Event marks a dated market event drawn on the historical trend chart.
type Event struct {
	Key   string
	Label string
	Date  time.Time
	Color string
}

// ForecastConfig holds the global forecasting constants. It is immutable
// once built: accessors return copies.
type ForecastConfig struct {
	baseYear               int
	forecastYears          []int
	uncertaintyPP          float64
	events                 []Event
	latestAccessPct        float64
	latestUsagePct         float64
	latestMobileMoneyAccts float64
	latestActivePct        float64
}

// EventSettings is the file representation of an Event.
type EventSettings struct {
	Key   string `mapstructure:"key" yaml:"key"`
	Label string `mapstructure:"label" yaml:"label"`
	Date  string `mapstructure:"date" yaml:"date"`
	Color string `mapstructure:"color" yaml:"color"`
}

// ForecastSettings holds optional overrides for ForecastConfig as read from
// the configuration file. Zero values keep the defaults.
type ForecastSettings struct {
	BaseYear                   int             `mapstructure:"baseYear" yaml:"baseYear,omitempty"`
	ForecastYears              []int           `mapstructure:"forecastYears" yaml:"forecastYears,omitempty"`
	UncertaintyPP              *float64        `mapstructure:"uncertaintyPP" yaml:"uncertaintyPP,omitempty"`
	Events                     []EventSettings `mapstructure:"events" yaml:"events,omitempty"`
	LatestAccessPct            *float64        `mapstructure:"latestAccessPct" yaml:"latestAccessPct,omitempty"`
	LatestUsagePct             *float64        `mapstructure:"latestUsagePct" yaml:"latestUsagePct,omitempty"`
	LatestMobileMoneyAccountsM *float64        `mapstructure:"latestMobileMoneyAccountsM" yaml:"latestMobileMoneyAccountsM,omitempty"`
	LatestActivePct            *float64        `mapstructure:"latestActivePct" yaml:"latestActivePct,omitempty"`
}

var defaultEvents = []EventSettings{
	{Key: "telebirr_launch", Label: "Telebirr", Date: "2021-05-01", Color: "red"},
	{Key: "mpesa_entry", Label: "M-Pesa", Date: "2023-08-01", Color: "green"},
	// NDPS launch plus Fayda ID acceleration
	{Key: "ndps_fayda", Label: "NDPS Launch", Date: "2025-12-01", Color: "purple"},
}

// DefaultForecastConfig returns the built-in configuration: base year 2024,
// forecasts for 2025-2027 and the latest Findex benchmarks.
func DefaultForecastConfig() ForecastConfig {
	cfg, err := NewForecastConfig(ForecastSettings{})
	if err != nil {
		panic(fmt.Sprintf("invalid built-in forecast config: %v", err))
	}
	return cfg
}

// NewForecastConfig builds a ForecastConfig from settings, filling anything
// unset from the defaults.
func NewForecastConfig(settings ForecastSettings) (ForecastConfig, error) {
	cfg := ForecastConfig{
		baseYear:               2024,
		forecastYears:          []int{2025, 2026, 2027},
		uncertaintyPP:          12.0, // wide band due to sparse Findex data
		latestAccessPct:        49.0,
		latestUsagePct:         21.0,
		latestMobileMoneyAccts: 139.5,
		latestActivePct:        16.0,
	}

	if settings.BaseYear != 0 {
		cfg.baseYear = settings.BaseYear
	}
	if len(settings.ForecastYears) > 0 {
		cfg.forecastYears = append([]int(nil), settings.ForecastYears...)
		sort.Ints(cfg.forecastYears)
	}
	if cfg.forecastYears[0] <= cfg.baseYear {
		return ForecastConfig{}, fmt.Errorf("forecast years must be after base year %d, got %d", cfg.baseYear, cfg.forecastYears[0])
	}

	if settings.UncertaintyPP != nil {
		if *settings.UncertaintyPP < 0 {
			return ForecastConfig{}, errors.New("uncertainty must not be negative")
		}
		cfg.uncertaintyPP = *settings.UncertaintyPP
	}

	assign := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	assign(&cfg.latestAccessPct, settings.LatestAccessPct)
	assign(&cfg.latestUsagePct, settings.LatestUsagePct)
	assign(&cfg.latestMobileMoneyAccts, settings.LatestMobileMoneyAccountsM)
	assign(&cfg.latestActivePct, settings.LatestActivePct)

	eventSettings := settings.Events
	if len(eventSettings) == 0 {
		eventSettings = defaultEvents
	}
	events := make([]Event, 0, len(eventSettings))
	for _, es := range eventSettings {
		if es.Key == "" {
			return ForecastConfig{}, errors.New("event key cannot be empty")
		}
		date, err := datetime.ParseISODate(es.Date)
		if err != nil {
			return ForecastConfig{}, fmt.Errorf("event %s: %w", es.Key, err)
		}
		label := es.Label
		if label == "" {
			label = es.Key
		}
		color := es.Color
		if color == "" {
			color = "gray"
		}
		events = append(events, Event{Key: es.Key, Label: label, Date: date, Color: color})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })
	cfg.events = events

	return cfg, nil
}

// BaseYear is the last year with benchmark data.
func (c ForecastConfig) BaseYear() int { return c.baseYear }

// ForecastYears returns the forecast years in ascending order.
func (c ForecastConfig) ForecastYears() []int {
	return append([]int(nil), c.forecastYears...)
}

// FirstForecastYear returns the earliest forecast year.
func (c ForecastConfig) FirstForecastYear() int { return c.forecastYears[0] }

// LastForecastYear returns the latest forecast year.
func (c ForecastConfig) LastForecastYear() int { return c.forecastYears[len(c.forecastYears)-1] }

// ForecastHorizon returns the number of years forecast ahead of the base year.
func (c ForecastConfig) ForecastHorizon() int {
	return c.LastForecastYear() - c.baseYear
}

// UncertaintyPP is the forecast band half-width in percentage points.
func (c ForecastConfig) UncertaintyPP() float64 { return c.uncertaintyPP }

// Events returns the configured events sorted by date.
func (c ForecastConfig) Events() []Event {
	return append([]Event(nil), c.events...)
}

// Event looks up an event by key.
func (c ForecastConfig) Event(key string) (Event, bool) {
	for _, e := range c.events {
		if e.Key == key {
			return e, true
		}
	}
	return Event{}, false
}

// LatestAccessPct is the latest account ownership benchmark (Findex 2025, 2024 data).
func (c ForecastConfig) LatestAccessPct() float64 { return c.latestAccessPct }

// LatestUsagePct is the latest digital payment usage benchmark.
func (c ForecastConfig) LatestUsagePct() float64 { return c.latestUsagePct }

// LatestMobileMoneyAccountsM is the latest mobile money account count, in millions.
func (c ForecastConfig) LatestMobileMoneyAccountsM() float64 { return c.latestMobileMoneyAccts }

// LatestActivePct is the latest active mobile money account rate.
func (c ForecastConfig) LatestActivePct() float64 { return c.latestActivePct }
