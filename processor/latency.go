package processor

import (
	"time"

	"deripulse/models"
)

// MaxPlausibleDelayMs is the upper bound on a believable one-way delay.
// Anything above it (or at/below zero, typically clock skew) is discarded
// rather than corrected.
const MaxPlausibleDelayMs = 10000

// Sample derives the one-way delay between the producer timestamp and the
// local receipt time. It returns false when the message carries no producer
// timestamp or the delay falls outside (0, MaxPlausibleDelayMs].
//
// The sampler is a stateless filter; accumulation is the caller's concern,
// which keeps it reusable across the stress, latency and reconnection modes.
func Sample(msg models.InboundMessage, now time.Time) (models.LatencySample, bool) {
	if !msg.HasServerTime() {
		return models.LatencySample{}, false
	}

	delayMs := float64(now.Sub(msg.ServerTime)) / float64(time.Millisecond)
	if delayMs <= 0 || delayMs > MaxPlausibleDelayMs {
		return models.LatencySample{}, false
	}

	return models.LatencySample{
		Channel:    msg.Channel,
		ReceivedAt: now,
		DelayMs:    delayMs,
	}, true
}
