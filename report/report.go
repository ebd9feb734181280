package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"deripulse/logger"
	"deripulse/models"
)

// Print writes the report to the log, one structured entry per section, so
// it stays readable both on a terminal and in aggregated JSON logs.
func Print(log *logger.Log, rep models.Report) {
	entry := log.WithComponent("report")

	entry.WithFields(logger.Fields{
		"run_id":      rep.RunID,
		"test_type":   rep.TestType,
		"duration":    rep.Duration.String(),
		"total_ticks": rep.TotalTicks,
		"ticks_per_s": fmt.Sprintf("%.2f", rep.TicksPerSecond),
	}).Info("run summary")

	if rep.DelayCount > 0 {
		entry.WithFields(logger.Fields{
			"delay_samples": rep.DelayCount,
			"avg_delay_ms":  fmt.Sprintf("%.2f", rep.OverallAvgDelayMs),
			"rating":        rep.Rating,
		}).Info("latency summary")
	}

	for _, ch := range rep.Channels {
		if ch.NoData {
			entry.WithFields(logger.Fields{"channel": ch.Channel}).Warn("no data received")
			continue
		}

		fields := logger.Fields{
			"channel":    ch.Channel,
			"ticks":      ch.Ticks,
			"per_second": fmt.Sprintf("%.2f", ch.PerSecond),
		}
		if ch.Delay != nil {
			fields["avg_delay_ms"] = fmt.Sprintf("%.2f", ch.Delay.MeanMs)
			fields["median_delay_ms"] = fmt.Sprintf("%.2f", ch.Delay.MedianMs)
			fields["max_delay_ms"] = fmt.Sprintf("%.2f", ch.Delay.MaxMs)
		}
		if ch.Size != nil {
			fields["avg_bytes"] = fmt.Sprintf("%.0f", ch.Size.AvgBytes)
		}
		entry.WithFields(fields).Info("channel summary")

		for _, b := range ch.Buckets {
			if b.Count == 0 {
				continue
			}
			entry.WithFields(logger.Fields{
				"channel": ch.Channel,
				"bucket":  b.Label,
				"count":   b.Count,
				"percent": fmt.Sprintf("%.1f", b.Percent),
			}).Info("delay distribution")
		}

		if ch.Price != nil {
			entry.WithFields(logger.Fields{
				"channel":       ch.Channel,
				"price_updates": ch.Price.Updates,
				"price_changes": ch.Price.Changes,
				"change_freq":   fmt.Sprintf("%.1f%%", ch.Price.ChangeFrequency),
				"avg_change":    fmt.Sprintf("%.4f", ch.Price.AvgChange),
			}).Info("price movement")
		}
	}

	if rep.Stats != nil {
		entry.WithFields(logger.Fields{
			"connections":    rep.Stats.Connections,
			"reconnections":  rep.Stats.Reconnections,
			"total_messages": rep.Stats.TotalMessages,
		}).Info("connection summary")
	}
}

// SaveJSON writes the report to a timestamped file under dir, creating the
// directory if needed, and returns the file path.
func SaveJSON(rep models.Report, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(dir, Filename(rep))

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// Filename reproduces the naming SaveJSON uses, exposed for the S3 key.
func Filename(rep models.Report) string {
	return fmt.Sprintf("deripulse_%s_%s.json", rep.TestType, rep.GeneratedAt.Format("20060102T150405Z"))
}
