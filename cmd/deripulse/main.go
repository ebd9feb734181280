package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"deripulse/config"
	"deripulse/logger"
	"deripulse/models"
	"deripulse/processor"
	"deripulse/report"
	"deripulse/runner"
	"deripulse/stream"
)

// A mode runner produces the aggregate for one test type; the surrounding
// pipeline (collector, analysis, reporting) is shared by all of them.
type modeFunc func(ctx context.Context, cfg *config.Config, ticks *stream.Channels) (models.AggregateStats, error)

var (
	flagConfig             string
	flagConnections        int
	flagDuration           time.Duration
	flagDisconnectInterval time.Duration
	flagChannels           []string
)

func main() {
	root := &cobra.Command{
		Use:   "deripulse",
		Short: "Websocket stress and latency tester for Deribit market data",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", config.DefaultPath, "path to configuration file")
	root.PersistentFlags().IntVar(&flagConnections, "connections", 0, "override the number of concurrent connections")
	root.PersistentFlags().DurationVar(&flagDuration, "duration", 0, "override the test duration")
	root.PersistentFlags().DurationVar(&flagDisconnectInterval, "disconnect-interval", 0, "override the reconnect cycle interval")
	root.PersistentFlags().StringSliceVar(&flagChannels, "channels", nil, "override the channel subscriptions")

	root.AddCommand(
		modeCommand("stress", "Open many concurrent sessions against the feed",
			func(ctx context.Context, cfg *config.Config, ticks *stream.Channels) (models.AggregateStats, error) {
				return runner.NewStressRunner(cfg, ticks).Run(ctx)
			}),
		modeCommand("latency", "Measure one-way delay on a single probe channel",
			func(ctx context.Context, cfg *config.Config, ticks *stream.Channels) (models.AggregateStats, error) {
				return runner.NewLatencyRunner(cfg, ticks).Run(ctx)
			}),
		modeCommand("reconnection", "Cycle connect/disconnect at a fixed interval",
			func(ctx context.Context, cfg *config.Config, ticks *stream.Channels) (models.AggregateStats, error) {
				return runner.NewReconnectRunner(cfg, ticks).Run(ctx)
			}),
		modeCommand("tick-analysis", "Collect ticks on all channels and analyze them post-hoc",
			func(ctx context.Context, cfg *config.Config, ticks *stream.Channels) (models.AggregateStats, error) {
				return runner.NewTickRunner(cfg, ticks).Run(ctx)
			}),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func modeCommand(name, short string, run modeFunc) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMode(run)
		},
	}
}

func runMode(run modeFunc) error {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	cfg, err := config.LoadConfig(flagConfig)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyFlagOverrides(cfg)

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		return fmt.Errorf("failed to configure logger: %w", err)
	}

	startFields := logger.Fields{
		"service": cfg.Deripulse.Name,
		"version": cfg.Deripulse.Version,
	}
	if env := config.AppEnvironment(); env != config.EnvironmentDevelopment {
		startFields["environment"] = env
	}
	log.WithFields(startFields).Info("starting deripulse")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}
	if cfg.Metrics.CloudWatch.Enabled {
		logger.InitCloudWatch(cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")
		cancel()
	}()

	ticks := stream.NewChannels(cfg.Channels.TickBuffer)
	collector := runner.NewCollector(ticks)
	collector.Start()

	agg, err := run(ctx, cfg, ticks)
	if err != nil {
		return err
	}
	ticks.Close()
	byChannel := collector.Wait()

	if chStats := ticks.Stats(); chStats.Dropped > 0 {
		log.WithFields(logger.Fields{
			"sent":    chStats.Sent,
			"dropped": chStats.Dropped,
		}).Warn("tick buffer overflowed, analysis is missing records")
	}

	rep := processor.AnalyzeTicks(byChannel, agg.Duration)
	rep.RunID = uuid.NewString()
	rep.TestType = agg.TestType
	rep.Stats = &agg

	report.Print(log, rep)

	if cfg.Report.SaveJSON {
		path, err := report.SaveJSON(rep, cfg.Report.OutputDir)
		if err != nil {
			log.WithError(err).Error("failed to save report")
		} else {
			log.WithFields(logger.Fields{"path": path}).Info("report saved")
		}
	}
	if cfg.Report.S3.Enabled {
		uploadReport(cfg, rep, log)
	}
	if cfg.Metrics.CloudWatch.Enabled {
		logger.PublishRunMetrics(ctx, agg.TestType, agg.TotalMessages, agg.Connections, agg.Reconnections)
	}
	return nil
}

func uploadReport(cfg *config.Config, rep models.Report, log *logger.Log) {
	// Detached from the run context: an interrupted run should still
	// leave its artifact behind.
	upCtx, upCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer upCancel()

	uploader, err := report.NewUploader(upCtx, cfg.Report.S3)
	if err != nil {
		log.WithError(err).Error("failed to create report uploader")
		return
	}
	if _, err := uploader.Upload(upCtx, rep); err != nil {
		log.WithError(err).Error("failed to upload report")
	}
}

func applyFlagOverrides(cfg *config.Config) {
	if flagConnections > 0 {
		cfg.Test.Connections = flagConnections
	}
	if flagDuration > 0 {
		cfg.Test.Duration = flagDuration
	}
	if flagDisconnectInterval > 0 {
		cfg.Test.DisconnectInterval = flagDisconnectInterval
	}
	if len(flagChannels) > 0 {
		cfg.Test.Channels = flagChannels
	}
}
