package integration

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iwvelando/fi-dashboard/internal/config"
	"github.com/iwvelando/fi-dashboard/internal/dashboard"
	"github.com/iwvelando/fi-dashboard/internal/dataset"
	"github.com/iwvelando/fi-dashboard/internal/observability"
	"github.com/iwvelando/fi-dashboard/internal/server"
	"github.com/iwvelando/fi-dashboard/internal/summary"
	"github.com/iwvelando/fi-dashboard/pkg/output"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const testConfig = "../test_config.yaml"

func loadTestData(t testing.TB) *dashboard.Data {
	t.Helper()

	conf, err := config.LoadConfiguration(testConfig)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if warnings := conf.ValidateConfiguration(); len(warnings) != 0 {
		t.Fatalf("unexpected configuration warnings: %v", warnings)
	}

	data, err := dashboard.Load(conf, zap.NewNop())
	if err != nil {
		t.Fatalf("dashboard.Load() error = %v", err)
	}
	return data
}

// TestDashboardLoad checks the loaded state against the values in the
// fixture tables.
func TestDashboardLoad(t *testing.T) {
	data := loadTestData(t)

	if data.Forecast.IsFallback() {
		t.Fatal("expected forecast loaded from file, got fallback")
	}
	if data.Enriched.Len() != 33 {
		t.Errorf("expected 33 enriched rows, got %d", data.Enriched.Len())
	}

	expected := map[string]string{
		"account_ownership":     "49.0%",
		"digital_payment":       "21.0%",
		"mobile_money_accounts": "139.5 million",
		"active_rate":           "16.0%",
	}
	for _, m := range data.Summary.Metrics() {
		if m.Source != summary.SourceData {
			t.Errorf("%s: expected value from data, got %s", m.Key, m.Source)
		}
		if want := expected[m.Key]; m.Display != want {
			t.Errorf("%s: expected %s, got %s", m.Key, want, m.Display)
		}
	}
}

func TestSchemaValidation(t *testing.T) {
	data := loadTestData(t)

	report := dataset.Validate(data.Enriched, dataset.DefaultValidationOptions())
	if !report.OK() {
		t.Fatalf("schema validation failed: %v", report.Err())
	}

	var buf bytes.Buffer
	if err := output.PrettyReport(&buf, report); err != nil {
		t.Fatalf("PrettyReport() error = %v", err)
	}
	for _, check := range dataset.AllChecks {
		if !strings.Contains(buf.String(), check) {
			t.Errorf("report missing check %s", check)
		}
	}
}

// TestServerEndToEnd drives the dashboard over a real listener.
func TestServerEndToEnd(t *testing.T) {
	data := loadTestData(t)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	srv := httptest.NewServer(server.NewHandler(zap.NewNop(), data, metrics, "test"))
	defer srv.Close()

	fetch := func(path string) (*http.Response, []byte) {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer func() {
			_ = resp.Body.Close()
		}()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("reading %s: %v", path, err)
		}
		return resp, body
	}

	resp, body := fetch("/?scenario=pessimistic&indicator=ACC_MM_ACCOUNT")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("index: expected 200, got %d", resp.StatusCode)
	}
	page := string(body)
	for _, want := range []string{"139.5 million", "/charts/trend.svg?indicator=ACC_MM_ACCOUNT", "Pessimistic Scenario Forecast"} {
		if !strings.Contains(page, want) {
			t.Errorf("index page missing %q", want)
		}
	}
	if strings.Contains(page, "Forecast file not found") {
		t.Error("fallback warning shown for a loaded forecast")
	}

	for _, path := range []string{
		"/charts/trend.svg?indicator=ACC_OWNERSHIP",
		"/charts/trend.svg?indicator=USG_DIGITAL_PAYMENT",
		"/charts/trend.svg?indicator=ACC_MM_ACCOUNT",
		"/charts/forecast.svg?scenario=baseline",
		"/charts/forecast.svg?scenario=optimistic",
		"/charts/forecast.png?scenario=pessimistic",
	} {
		resp, body := fetch(path)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: expected 200, got %d: %s", path, resp.StatusCode, body)
		}
	}

	resp, body = fetch("/download/forecast.csv")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("csv: expected 200, got %d", resp.StatusCode)
	}
	rows, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	if err != nil {
		t.Fatalf("downloaded CSV is invalid: %v", err)
	}
	if len(rows) != 4 || rows[0][len(rows[0])-1] != "notes" || rows[2][2] != "60.3" {
		t.Errorf("downloaded CSV does not match the forecast file: %v", rows)
	}

	resp, body = fetch("/api/summary")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary: expected 200, got %d", resp.StatusCode)
	}
	var payload struct {
		Metrics          []summary.Metric `json:"metrics"`
		ForecastFallback bool             `json:"forecastFallback"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decoding summary: %v", err)
	}
	if len(payload.Metrics) != 4 || payload.ForecastFallback {
		t.Errorf("unexpected summary payload: %+v", payload)
	}
}
