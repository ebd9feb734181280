package runner

import (
	"context"
	"time"

	"deripulse/config"
	"deripulse/logger"
	"deripulse/models"
	"deripulse/reader/deribit"
	"deripulse/stream"
)

// SoloRunner drives a single session once, for the configured duration.
// The latency and tick analysis modes both use it; they differ only in the
// channel set they subscribe and in how the collected ticks are reported.
type SoloRunner struct {
	cfg      *config.Config
	ticks    *stream.Channels
	testType string
	channels []string
	log      *logger.Entry
}

// NewLatencyRunner builds a solo runner subscribed to the single latency
// probe channel.
func NewLatencyRunner(cfg *config.Config, ticks *stream.Channels) *SoloRunner {
	return &SoloRunner{
		cfg:      cfg,
		ticks:    ticks,
		testType: "latency",
		channels: []string{cfg.Test.LatencyChannel},
		log:      logger.GetLogger().WithComponent("latency_runner"),
	}
}

// NewTickRunner builds a solo runner subscribed to the full channel set for
// post-hoc tick analysis.
func NewTickRunner(cfg *config.Config, ticks *stream.Channels) *SoloRunner {
	return &SoloRunner{
		cfg:      cfg,
		ticks:    ticks,
		testType: "tick-analysis",
		channels: cfg.Test.Channels,
		log:      logger.GetLogger().WithComponent("tick_runner"),
	}
}

func (r *SoloRunner) Run(ctx context.Context) (models.AggregateStats, error) {
	started := time.Now()
	r.log.WithFields(logger.Fields{
		"duration": r.cfg.Test.Duration.String(),
		"channels": r.channels,
	}).Info("starting run")

	sess := deribit.NewSession(0, r.cfg.Deribit.WSURL, r.channels, sessionCredentials(r.cfg), r.ticks)
	stats := sess.Run(ctx, r.cfg.Test.Duration)

	agg := models.Aggregate([]models.SessionStats{stats})
	agg.TestType = r.testType
	agg.StartedAt = started
	agg.Duration = time.Since(started)

	r.log.WithFields(logger.Fields{
		"messages": agg.TotalMessages,
		"outcome":  stats.Outcome,
	}).Info("run finished")
	return agg, nil
}
