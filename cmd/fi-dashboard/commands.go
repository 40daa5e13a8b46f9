package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/iwvelando/fi-dashboard/internal/charts"
	"github.com/iwvelando/fi-dashboard/internal/config"
	"github.com/iwvelando/fi-dashboard/internal/dashboard"
	"github.com/iwvelando/fi-dashboard/internal/dataset"
	"github.com/iwvelando/fi-dashboard/internal/observability"
	"github.com/iwvelando/fi-dashboard/internal/server"
	"github.com/iwvelando/fi-dashboard/pkg/constants"
	"github.com/iwvelando/fi-dashboard/pkg/output"
	"github.com/iwvelando/fi-dashboard/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "fi-dashboard",
		Short:         "Ethiopia financial inclusion dashboard",
		Long:          "Serve, validate and export the financial inclusion dashboard built from the enriched observation dataset and the scenario forecast.",
		Version:       version,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", constants.DefaultConfigFile, "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newValidateCmd(opts),
		newSummaryCmd(opts),
		newExportCmd(opts),
	)
	return rootCmd
}

// loadConfiguration reads the configuration file. When the default file is
// absent the built-in configuration is used; an explicitly named file must
// exist.
func (o *rootOptions) loadConfiguration(cmd *cobra.Command) (*config.Configuration, error) {
	conf, err := config.LoadConfiguration(o.configPath)
	if err == nil {
		return conf, nil
	}
	if !cmd.Flags().Changed("config") {
		if _, statErr := os.Stat(o.configPath); errors.Is(statErr, fs.ErrNotExist) {
			return config.Default(), nil
		}
	}
	return nil, fmt.Errorf("failed to load configuration at %s: %w", o.configPath, err)
}

// setup loads the configuration, builds the logger and reports configuration
// warnings.
func (o *rootOptions) setup(cmd *cobra.Command, logging *config.LoggingConfig) (*config.Configuration, *zap.Logger, error) {
	conf, err := o.loadConfiguration(cmd)
	if err != nil {
		return nil, nil, err
	}

	loggingConfig := conf.Logging
	if logging != nil {
		loggingConfig = mergeLogging(loggingConfig, *logging)
	}
	logger, err := initializeLogger(loggingConfig, o.logLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}
	return conf, logger, nil
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		serverConfigPath string
		address          string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srvCfg, err := server.LoadConfig(serverConfigPath)
			if err != nil {
				return err
			}
			srvCfg.SetAddress(address)

			conf, logger, err := opts.setup(cmd, &srvCfg.Logging)
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			data, err := dashboard.Load(conf, logger)
			if err != nil {
				logger.Error("failed to load dashboard data",
					zap.String("op", "main.serve"),
					zap.Error(err),
				)
				return err
			}

			handler := server.NewHandler(logger, data, observability.NewMetrics(nil), version)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.Serve(ctx, srvCfg, handler, logger)
		},
	}

	cmd.Flags().StringVar(&serverConfigPath, "server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	cmd.Flags().StringVar(&address, "address", "", "listen address override (e.g. :8080)")
	return cmd
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var dataPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run the schema checks against the enriched dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, logger, err := opts.setup(cmd, nil)
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			path := conf.EnrichedPath()
			if dataPath != "" {
				path = dataPath
			}

			enriched, err := dataset.LoadEnriched(path, dataset.WithoutColumnCheck())
			if err != nil {
				return err
			}

			report := dataset.Validate(enriched, dataset.DefaultValidationOptions())
			if err := output.PrettyReport(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if !report.OK() {
				logger.Error("schema validation failed",
					zap.String("op", "main.validate"),
					zap.String("path", path),
					zap.Error(report.Err()),
				)
				return fmt.Errorf("schema validation failed with %d issue(s)", len(report.Issues))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "enriched dataset override")
	return cmd
}

func newSummaryCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the overview metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, logger, err := opts.setup(cmd, nil)
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			data, err := dashboard.Load(conf, logger)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(data.Summary.Metrics())
			}
			return output.PrettySummary(cmd.OutOrStdout(), data.Summary)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print metrics as JSON")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		scenarioName string
		format       string
		outPath      string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the forecast table or a scenario forecast chart",
		Long: `Export the forecast table as pretty, csv or xlsx, or the forecast chart
of one scenario as svg or png. Binary formats are written to the default
download file name unless --out is given; --out - writes to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, logger, err := opts.setup(cmd, nil)
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			if format == "" {
				format = conf.Output.Format
			}
			if format == "" {
				format = constants.OutputFormatPretty
			}
			format = strings.ToLower(format)

			chartFormat, chartErr := charts.ParseFormat(format)
			if chartErr != nil {
				if err := validation.ValidateOutputFormat(format); err != nil {
					return fmt.Errorf("%w, or a chart format (svg, png)", err)
				}
			}

			scenario, err := dataset.ParseScenario(scenarioName)
			if err != nil {
				return err
			}

			data, err := dashboard.Load(conf, logger)
			if err != nil {
				return err
			}

			path := outPath
			if path == "" {
				path = defaultExportName(data, format, scenario, chartErr == nil)
			}
			w, closeFn, err := openOutput(cmd.OutOrStdout(), path)
			if err != nil {
				return err
			}
			defer closeFn()

			if chartErr == nil {
				c, err := charts.Forecast(data.Forecast, scenario, data.Config)
				if err != nil {
					return err
				}
				err = charts.Render(w, c, chartFormat)
				if err == nil && path != "-" {
					logger.Info("forecast chart exported",
						zap.String("op", "main.export"),
						zap.String("path", path),
						zap.String("scenario", string(scenario)),
					)
				}
				return err
			}

			if err := output.WriteForecast(w, data.Forecast, format); err != nil {
				return err
			}
			if path != "-" {
				logger.Info("forecast table exported",
					zap.String("op", "main.export"),
					zap.String("path", path),
					zap.String("format", format),
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scenarioName, "scenario", string(dataset.Baseline), "forecast scenario for chart formats (baseline, optimistic, pessimistic)")
	cmd.Flags().StringVar(&format, "format", "", "export format: pretty, csv, xlsx, svg or png (default from config)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file; - for stdout")
	return cmd
}

// defaultExportName picks the destination when --out is not given. Text
// formats go to stdout.
func defaultExportName(data *dashboard.Data, format string, scenario dataset.Scenario, isChart bool) string {
	switch {
	case isChart:
		base := strings.TrimSuffix(output.ForecastFileName(data.Country, data.Config, "csv"), ".csv")
		return fmt.Sprintf("%s_%s.%s", base, scenario, format)
	case format == constants.OutputFormatXLSX:
		return output.ForecastFileName(data.Country, data.Config, format)
	default:
		return "-"
	}
}

func openOutput(stdout io.Writer, path string) (io.Writer, func(), error) {
	if path == "-" {
		return stdout, func() {}, nil
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return file, func() {
		_ = file.Close()
	}, nil
}
