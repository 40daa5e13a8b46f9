package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/fi-dashboard/internal/charts"
	"github.com/iwvelando/fi-dashboard/internal/dashboard"
	"github.com/iwvelando/fi-dashboard/internal/dataset"
	"github.com/iwvelando/fi-dashboard/internal/observability"
	"github.com/iwvelando/fi-dashboard/internal/summary"
	"github.com/iwvelando/fi-dashboard/pkg/constants"
	"github.com/iwvelando/fi-dashboard/pkg/output"
	chart "github.com/wcharczuk/go-chart/v2"
	"go.uber.org/zap"
)

//go:embed static/* templates/*
var assets embed.FS

// RequestIDHeader carries the per-request identifier.
const RequestIDHeader = "X-Request-ID"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ErrUnknownIndicator is returned for indicators outside the trend choices.
var ErrUnknownIndicator = errors.New("unknown indicator")

type handler struct {
	logger  *zap.Logger
	data    *dashboard.Data
	metrics *observability.Metrics
	version string
	page    *template.Template
}

// NewHandler constructs the HTTP handler that serves the dashboard page,
// charts, downloads and the JSON API from data loaded at startup.
func NewHandler(logger *zap.Logger, data *dashboard.Data, metrics *observability.Metrics, version string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewMetrics(nil)
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	page, err := template.ParseFS(assets, "templates/index.html")
	if err != nil {
		panic(fmt.Sprintf("failed to parse embedded templates: %v", err))
	}

	h := &handler{
		logger:  logger,
		data:    data,
		metrics: metrics,
		version: trimmedVersion,
		page:    page,
	}

	metrics.SetDatasetRows("enriched", data.Enriched.Len())
	metrics.SetDatasetRows("forecast", data.Forecast.Len())

	mux := http.NewServeMux()

	// Dashboard page
	mux.Handle("/", h.instrument("/", h.handleIndex))

	// Chart images
	mux.Handle("/charts/trend.svg", h.instrument("/charts/trend.svg", h.handleTrendChart(charts.FormatSVG)))
	mux.Handle("/charts/trend.png", h.instrument("/charts/trend.png", h.handleTrendChart(charts.FormatPNG)))
	mux.Handle("/charts/forecast.svg", h.instrument("/charts/forecast.svg", h.handleForecastChart(charts.FormatSVG)))
	mux.Handle("/charts/forecast.png", h.instrument("/charts/forecast.png", h.handleForecastChart(charts.FormatPNG)))

	// Forecast downloads
	mux.Handle("/download/forecast.csv", h.instrument("/download/forecast.csv", h.handleDownloadCSV))
	mux.Handle("/download/forecast.xlsx", h.instrument("/download/forecast.xlsx", h.handleDownloadXLSX))

	// JSON API
	mux.Handle("/api/summary", h.instrument("/api/summary", h.handleSummary))
	mux.Handle("/api/version", h.instrument("/api/version", h.handleVersion))

	mux.Handle("/healthz", h.instrument("/healthz", h.handleHealth))
	mux.Handle("/metrics", h.instrument("/metrics", getOnly(metrics.Handler().ServeHTTP)))

	// Static assets
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(fmt.Sprintf("failed to prepare embedded static files: %v", err))
	}
	fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	mux.Handle("/static/", h.instrument("/static/", getOnly(fileServer.ServeHTTP)))

	return mux
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully.
func Serve(ctx context.Context, cfg *Config, handler http.Handler, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeoutDuration(),
		WriteTimeout: cfg.WriteTimeoutDuration(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("dashboard server listening",
			zap.String("op", "server.Serve"),
			zap.String("address", cfg.Address),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down dashboard server", zap.String("op", "server.Serve"))
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

type pageData struct {
	Country          string
	Version          string
	Metrics          []summary.Metric
	Indicator        string
	Indicators       []option
	Scenario         dataset.Scenario
	Scenarios        []option
	TrendURL         string
	ForecastURL      string
	CSVURL           string
	XLSXURL          string
	CSVFileName      string
	BaseYear         int
	FirstYear        int
	LastYear         int
	Horizon          int
	UncertaintyPP    float64
	Events           []eventJSON
	ForecastFallback bool
	TrendAvailable   bool
}

func (h *handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	indicator, err := parseIndicator(query.Get("indicator"))
	if err != nil {
		indicator = constants.TrendIndicators[0]
	}
	scenario, err := dataset.ParseScenario(query.Get("scenario"))
	if err != nil {
		scenario = dataset.Scenarios[0]
	}

	cfg := h.data.Config
	data := pageData{
		Country:          h.data.Country,
		Version:          h.version,
		Metrics:          h.data.Summary.Metrics(),
		Indicator:        indicator,
		Scenario:         scenario,
		TrendURL:         "/charts/trend.svg?" + url.Values{"indicator": {indicator}}.Encode(),
		ForecastURL:      "/charts/forecast.svg?" + url.Values{"scenario": {string(scenario)}}.Encode(),
		CSVURL:           "/download/forecast.csv",
		XLSXURL:          "/download/forecast.xlsx",
		CSVFileName:      output.ForecastFileName(h.data.Country, cfg, "csv"),
		BaseYear:         cfg.BaseYear(),
		FirstYear:        cfg.FirstForecastYear(),
		LastYear:         cfg.LastForecastYear(),
		Horizon:          cfg.ForecastHorizon(),
		UncertaintyPP:    cfg.UncertaintyPP(),
		Events:           eventsJSON(h.data),
		ForecastFallback: h.data.Forecast.IsFallback(),
		TrendAvailable:   len(h.trendPoints(indicator)) > 0,
	}
	for _, code := range constants.TrendIndicators {
		data.Indicators = append(data.Indicators, option{Value: code, Label: code, Selected: code == indicator})
	}
	for _, s := range dataset.Scenarios {
		data.Scenarios = append(data.Scenarios, option{Value: string(s), Label: s.Title(), Selected: s == scenario})
	}

	var buf bytes.Buffer
	if err := h.page.Execute(&buf, data); err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to render page: %v", err), "server.handleIndex")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *handler) handleTrendChart(format charts.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		const op = "server.handleTrendChart"
		indicator, err := parseIndicator(r.URL.Query().Get("indicator"))
		if err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
			return
		}

		start := time.Now()
		c, err := charts.Trend(h.trendPoints(indicator), indicator, h.data.Config.Events())
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, charts.ErrNoData) {
				status = http.StatusNotFound
			}
			h.respondErrorWithOp(w, status, err.Error(), op)
			return
		}
		h.writeChart(w, c, format, "trend", start, op)
	}
}

func (h *handler) handleForecastChart(format charts.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		const op = "server.handleForecastChart"
		scenario, err := dataset.ParseScenario(r.URL.Query().Get("scenario"))
		if err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
			return
		}

		start := time.Now()
		c, err := charts.Forecast(h.data.Forecast, scenario, h.data.Config)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, charts.ErrNoData) || errors.Is(err, dataset.ErrMissingColumns) {
				status = http.StatusNotFound
			}
			h.respondErrorWithOp(w, status, err.Error(), op)
			return
		}
		h.writeChart(w, c, format, "forecast", start, op)
	}
}

func (h *handler) writeChart(w http.ResponseWriter, c *chart.Chart, format charts.Format, name string, start time.Time, op string) {
	var buf bytes.Buffer
	if err := charts.Render(&buf, c, format); err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err), op)
		return
	}
	h.metrics.ObserveChartRender(name, time.Since(start))

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *handler) handleDownloadCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	data, err := output.ForecastCSV(h.data.Forecast)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to encode forecast: %v", err), "server.handleDownloadCSV")
		return
	}
	h.writeAttachment(w, "text/csv; charset=utf-8", output.ForecastFileName(h.data.Country, h.data.Config, "csv"), data)
}

func (h *handler) handleDownloadXLSX(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	data, err := output.ForecastXLSX(h.data.Forecast)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to encode forecast: %v", err), "server.handleDownloadXLSX")
		return
	}
	h.writeAttachment(w, xlsxContentType, output.ForecastFileName(h.data.Country, h.data.Config, "xlsx"), data)
}

func (h *handler) writeAttachment(w http.ResponseWriter, contentType, fileName string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type eventJSON struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Date  string `json:"date"`
	Color string `json:"color"`
}

type configJSON struct {
	BaseYear      int         `json:"baseYear"`
	ForecastYears []int       `json:"forecastYears"`
	Horizon       int         `json:"horizon"`
	UncertaintyPP float64     `json:"uncertaintyPP"`
	Events        []eventJSON `json:"events"`
}

type summaryResponse struct {
	Country          string           `json:"country"`
	Metrics          []summary.Metric `json:"metrics"`
	Config           configJSON       `json:"config"`
	ForecastFallback bool             `json:"forecastFallback"`
}

func (h *handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	cfg := h.data.Config
	h.writeJSON(w, http.StatusOK, summaryResponse{
		Country: h.data.Country,
		Metrics: h.data.Summary.Metrics(),
		Config: configJSON{
			BaseYear:      cfg.BaseYear(),
			ForecastYears: cfg.ForecastYears(),
			Horizon:       cfg.ForecastHorizon(),
			UncertaintyPP: cfg.UncertaintyPP(),
			Events:        eventsJSON(h.data),
		},
		ForecastFallback: h.data.Forecast.IsFallback(),
	})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (h *handler) trendPoints(indicator string) []charts.Point {
	return charts.TrendPoints(h.data.Enriched.Observations().ByIndicator(indicator))
}

func parseIndicator(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return constants.TrendIndicators[0], nil
	}
	for _, code := range constants.TrendIndicators {
		if strings.EqualFold(code, trimmed) {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownIndicator, value)
}

func eventsJSON(data *dashboard.Data) []eventJSON {
	events := data.Config.Events()
	out := make([]eventJSON, 0, len(events))
	for _, e := range events {
		out = append(out, eventJSON{
			Key:   e.Key,
			Label: e.Label,
			Date:  e.Date.Format(constants.DateLayout),
			Color: e.Color,
		})
	}
	return out
}

func getOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

// instrument tags the request with an id, then logs and counts it under
// route.
func (h *handler) instrument(route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		rec := &statusRecorder{ResponseWriter: w}
		next(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		h.metrics.ObserveRequest(route, rec.status)
		h.logger.Debug("request served",
			zap.String("op", "server.request"),
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("route", route),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	if h.logger != nil {
		h.logger.Error("dashboard request failed",
			zap.String("op", op),
			zap.Int("status", status),
			zap.String("error", msg),
		)
	}

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && h.logger != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
