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

// reconnectPause is the fixed pause after a failed connect before the next
// attempt. Deliberately constant, not exponential: the point of the run is
// to measure how the endpoint behaves under steady reconnect pressure.
const reconnectPause = time.Second

// ReconnectRunner cycles a single connection: run a session for the
// disconnect interval, tear it down, connect again, until the total
// duration is spent. Each completed cycle counts as one reconnection.
type ReconnectRunner struct {
	cfg   *config.Config
	ticks *stream.Channels
	log   *logger.Entry
}

func NewReconnectRunner(cfg *config.Config, ticks *stream.Channels) *ReconnectRunner {
	return &ReconnectRunner{
		cfg:   cfg,
		ticks: ticks,
		log:   logger.GetLogger().WithComponent("reconnect_runner"),
	}
}

func (r *ReconnectRunner) Run(ctx context.Context) (models.AggregateStats, error) {
	started := time.Now()
	total := r.cfg.Test.Duration
	interval := r.cfg.Test.DisconnectInterval
	creds := sessionCredentials(r.cfg)

	r.log.WithFields(logger.Fields{
		"duration":            total.String(),
		"disconnect_interval": interval.String(),
	}).Info("starting reconnection run")

	var sessions []models.SessionStats
	reconnections := 0
	for cycle := 0; ; cycle++ {
		if ctx.Err() != nil {
			break
		}
		remaining := total - time.Since(started)
		if remaining <= 0 {
			break
		}

		bound := interval
		if remaining < bound {
			bound = remaining
		}

		sess := deribit.NewSession(cycle, r.cfg.Deribit.WSURL, r.cfg.Test.Channels, creds, r.ticks)
		stats := sess.Run(ctx, bound)
		sessions = append(sessions, stats)

		if !stats.Connected {
			r.log.WithFields(logger.Fields{"cycle": cycle}).Warn("connect failed, pausing before retry")
			select {
			case <-time.After(reconnectPause):
			case <-ctx.Done():
			}
			continue
		}

		reconnections++
		logger.IncrementReconnect()
		r.log.WithFields(logger.Fields{
			"cycle":    cycle,
			"messages": stats.Messages,
			"outcome":  stats.Outcome,
		}).Info("cycle finished, reconnecting")
	}

	agg := models.Aggregate(sessions)
	agg.TestType = "reconnection"
	agg.StartedAt = started
	agg.Duration = time.Since(started)
	// The driver's count replaces the fold's failure-derived one: here a
	// reconnection is every completed cycle, planned or not.
	agg.Reconnections = reconnections

	r.log.WithFields(logger.Fields{
		"reconnections":  agg.Reconnections,
		"total_messages": agg.TotalMessages,
	}).Info("reconnection run finished")
	return agg, nil
}
