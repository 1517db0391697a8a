package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/salesops/revenue-forecast/internal/config"
	"github.com/salesops/revenue-forecast/internal/evidence"
	"github.com/salesops/revenue-forecast/internal/risk"
	"github.com/salesops/revenue-forecast/internal/simulation"
	"github.com/salesops/revenue-forecast/internal/variance"
	"github.com/salesops/revenue-forecast/pkg/constants"
	"github.com/salesops/revenue-forecast/pkg/output"
)

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// Determine log level (CLI override takes precedence)
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var zapConfig zap.Config
	switch format {
	case "console":
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	case "json":
		zapConfig = zap.NewProductionConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}

	// Configure output file if specified
	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		// Test if we can create/write to the file
		if file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		} else {
			_ = file.Close()
		}

		zapConfig.OutputPaths = []string{loggingConfig.OutputFile}
		zapConfig.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return zapConfig.Build()
}

func main() {
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to scenario file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	runDrivers := flag.Bool("drivers", false, "run variance driver analysis after the forecast")
	flag.Parse()

	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		return
	}

	logger, err := initializeLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Determine output format (CLI override takes precedence over config)
	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if outputFormat != constants.OutputFormatPretty && outputFormat != constants.OutputFormatCSV {
		logger.Fatal(fmt.Sprintf("output format %s is not a valid option", outputFormat),
			zap.String("op", "main"),
		)
	}

	// Validate configuration and display any warnings
	warnings := conf.ValidateConfiguration()
	for _, warning := range warnings {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	inputs, err := conf.SimulationInputs()
	if err != nil {
		logger.Fatal("failed to build simulation inputs",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	ctx := context.Background()

	// Risk adjustments come from the skill-evidence store when configured;
	// a forecast still runs without one.
	if conf.Evidence.SQLitePath != "" {
		store, err := evidence.Open(conf.Evidence.SQLitePath)
		if err != nil {
			logger.Warn("failed to open evidence store, running without risk adjustments",
				zap.String("op", "main"),
				zap.Error(err),
			)
		} else {
			defer func() {
				_ = store.Close()
			}()
			calculator := risk.NewCalculator(logger, store)
			inputs.RiskAdjustments = calculator.Adjustments(ctx, conf.Workspace, inputs.OpenDeals, inputs.Today)
		}
	}

	results, err := simulation.Run(ctx, logger, inputs)
	if err != nil {
		logger.Fatal("failed to compute forecast",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	var drivers []variance.Driver
	if *runDrivers {
		analyzer := variance.NewAnalyzer(logger)
		drivers, err = analyzer.Analyze(ctx, inputs, results.P50)
		if err != nil {
			logger.Fatal("failed to analyze variance drivers",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
	}

	switch outputFormat {
	case constants.OutputFormatPretty:
		output.PrettyFormat(results, drivers)
		if conf.Simulation.HistogramBuckets > 0 {
			hist := simulation.BuildHistogram(results.Outcomes, conf.Simulation.HistogramBuckets)
			output.PrettyHistogram(hist)
		}
	case constants.OutputFormatCSV:
		output.CsvFormat(results, drivers)
	}
}
