package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"deripulse/config"
	"deripulse/logger"
	"deripulse/models"
	"deripulse/reader/deribit"
	"deripulse/stream"
)

// joinGrace bounds how long a coordinator waits for sessions past their
// nominal duration before giving up on stragglers.
const joinGrace = 5 * time.Second

// StressRunner opens N concurrent sessions against the same endpoint and
// folds their snapshots after they join. Connection launches are paced by a
// rate limiter so a large N does not hammer the handshake endpoint at once.
type StressRunner struct {
	cfg   *config.Config
	ticks *stream.Channels
	log   *logger.Entry
}

func NewStressRunner(cfg *config.Config, ticks *stream.Channels) *StressRunner {
	return &StressRunner{
		cfg:   cfg,
		ticks: ticks,
		log:   logger.GetLogger().WithComponent("stress_runner"),
	}
}

func (r *StressRunner) Run(ctx context.Context) (models.AggregateStats, error) {
	n := r.cfg.Test.Connections
	if n <= 0 {
		return models.AggregateStats{}, fmt.Errorf("stress run needs at least one connection, got %d", n)
	}

	started := time.Now()
	duration := r.cfg.Test.Duration
	creds := sessionCredentials(r.cfg)

	limit := rate.Inf
	if r.cfg.Test.RampPerSecond > 0 {
		limit = rate.Limit(r.cfg.Test.RampPerSecond)
	}
	ramp := rate.NewLimiter(limit, 1)

	r.log.WithFields(logger.Fields{
		"connections": n,
		"duration":    duration.String(),
		"channels":    r.cfg.Test.Channels,
	}).Info("starting stress run")

	results := make(chan models.SessionStats, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		if err := ramp.Wait(ctx); err != nil {
			// Cancelled mid ramp-up; whatever already launched still
			// joins below.
			break
		}
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			sess := deribit.NewSession(id, r.cfg.Deribit.WSURL, r.cfg.Test.Channels, creds, r.ticks)
			results <- sess.Run(ctx, duration)
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(duration + joinGrace):
		r.log.Warn("join grace expired, reporting on the sessions that finished")
	}

	sessions := make([]models.SessionStats, 0, n)
drain:
	for {
		select {
		case stats := <-results:
			sessions = append(sessions, stats)
		default:
			break drain
		}
	}

	agg := models.Aggregate(sessions)
	agg.TestType = "stress"
	agg.StartedAt = started
	agg.Duration = time.Since(started)

	r.log.WithFields(logger.Fields{
		"connections_ok": agg.Connections,
		"total_messages": agg.TotalMessages,
	}).Info("stress run finished")
	return agg, nil
}

// sessionCredentials returns the configured credentials or nil when auth is
// not enabled, which puts sessions in unauthenticated mode.
func sessionCredentials(cfg *config.Config) *deribit.Credentials {
	if !cfg.Deribit.Auth.Enabled() {
		return nil
	}
	return &deribit.Credentials{
		ClientID:     cfg.Deribit.Auth.ClientID,
		ClientSecret: cfg.Deribit.Auth.ClientSecret,
	}
}
