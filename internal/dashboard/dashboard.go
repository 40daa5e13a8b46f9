// Package dashboard loads everything the dashboard serves, once, from the
// configured data files.
package dashboard

import (
	"fmt"

	"github.com/iwvelando/fi-dashboard/internal/config"
	"github.com/iwvelando/fi-dashboard/internal/dataset"
	"github.com/iwvelando/fi-dashboard/internal/summary"
	"go.uber.org/zap"
)

// Data is the loaded dashboard state. It is read-only after Load.
type Data struct {
	Country  string
	Config   config.ForecastConfig
	Enriched *dataset.Enriched
	Forecast *dataset.Forecast
	Summary  summary.Summary
}

// Load reads the enriched and forecast tables named by conf and computes the
// overview metrics. A missing enriched table is an error; a missing forecast
// table is replaced by the illustrative fallback.
func Load(conf *config.Configuration, logger *zap.Logger) (*Data, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fc, err := conf.ForecastConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid forecast settings: %w", err)
	}

	enriched, err := dataset.LoadEnriched(conf.EnrichedPath())
	if err != nil {
		return nil, err
	}

	forecast, err := dataset.LoadForecast(conf.ForecastPath(), logger)
	if err != nil {
		return nil, err
	}

	logger.Info("dashboard data loaded",
		zap.String("op", "dashboard.Load"),
		zap.String("enriched", enriched.Path()),
		zap.Int("enrichedRows", enriched.Len()),
		zap.Int("observations", len(enriched.Observations())),
		zap.Int("forecastRows", forecast.Len()),
		zap.Bool("forecastFallback", forecast.IsFallback()),
	)

	return New(conf.Dashboard.Country, fc, enriched, forecast), nil
}

// New assembles Data from already loaded tables.
func New(country string, fc config.ForecastConfig, enriched *dataset.Enriched, forecast *dataset.Forecast) *Data {
	if forecast == nil {
		forecast = dataset.FallbackForecast()
	}
	return &Data{
		Country:  country,
		Config:   fc,
		Enriched: enriched,
		Forecast: forecast,
		Summary:  summary.Compute(enriched, fc),
	}
}
