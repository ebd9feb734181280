package models

import "time"

// Delay histogram boundaries in milliseconds. The last bucket is open
// ended. These are fixed, not configurable.
var DelayBucketBounds = [...]float64{0, 50, 100, 200, 500}

// BucketLabels name the histogram buckets in report output.
var BucketLabels = [...]string{"0-50ms", "50-100ms", "100-200ms", "200-500ms", "500ms+"}

// Performance rating thresholds on the overall average delay.
const (
	RatingExcellent = "EXCELLENT" // < 50ms
	RatingGood      = "GOOD"      // < 100ms
	RatingFair      = "FAIR"      // < 200ms
	RatingPoor      = "POOR"
)

// RateDelay maps an overall average delay to its qualitative band.
func RateDelay(avgMs float64) string {
	switch {
	case avgMs < 50:
		return RatingExcellent
	case avgMs < 100:
		return RatingGood
	case avgMs < 200:
		return RatingFair
	default:
		return RatingPoor
	}
}

// DelayStats summarises delay-bearing records of one channel.
type DelayStats struct {
	Count    int     `json:"count"`
	MeanMs   float64 `json:"mean_ms"`
	MedianMs float64 `json:"median_ms"`
	MinMs    float64 `json:"min_ms"`
	MaxMs    float64 `json:"max_ms"`
	StdDevMs float64 `json:"stddev_ms"`
}

// DelayBucket is one histogram cell; Percent is the bucket's share of
// delay-bearing records.
type DelayBucket struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// SizeStats summarises raw message sizes of one channel.
type SizeStats struct {
	AvgBytes float64 `json:"avg_bytes"`
	MinBytes int     `json:"min_bytes"`
	MaxBytes int     `json:"max_bytes"`
}

// PriceStats summarises consecutive price deltas within one channel.
// Present only when at least two price-bearing records exist.
type PriceStats struct {
	Updates         int     `json:"updates"`
	Changes         int     `json:"changes"`
	ChangeFrequency float64 `json:"change_frequency_pct"`
	AvgChange       float64 `json:"avg_change"`
}

// TickSampleView is one row of the per-channel sample dump.
type TickSampleView struct {
	Seq      int64   `json:"seq"`
	DelayMs  float64 `json:"delay_ms"`
	HasDelay bool    `json:"has_delay"`
	Price    float64 `json:"price"`
	HasPrice bool    `json:"has_price"`
	Size     int     `json:"size"`
}

// ChannelReport is the per-channel section of a tick analysis report.
// NoData is set instead of failing when a channel received nothing.
type ChannelReport struct {
	Channel   string           `json:"channel"`
	NoData    bool             `json:"no_data"`
	Ticks     int              `json:"ticks"`
	PerSecond float64          `json:"per_second"`
	Delay     *DelayStats      `json:"delay,omitempty"`
	Buckets   []DelayBucket    `json:"buckets,omitempty"`
	Size      *SizeStats       `json:"size,omitempty"`
	Price     *PriceStats      `json:"price,omitempty"`
	Samples   []TickSampleView `json:"samples,omitempty"`
}

// Report is the finished statistics bundle handed to the reporting
// collaborator. It never holds raw messages.
type Report struct {
	RunID             string          `json:"run_id"`
	TestType          string          `json:"test_type"`
	GeneratedAt       time.Time       `json:"generated_at"`
	Duration          time.Duration   `json:"duration"`
	TotalTicks        int             `json:"total_ticks"`
	TicksPerSecond    float64         `json:"ticks_per_second"`
	Channels          []ChannelReport `json:"channels"`
	DelayCount        int             `json:"delay_count"`
	OverallAvgDelayMs float64         `json:"overall_avg_delay_ms"`
	Rating            string          `json:"rating,omitempty"`
	Stats             *AggregateStats `json:"stats,omitempty"`
}
