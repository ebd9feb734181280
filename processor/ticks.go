package processor

import (
	"math"
	"sort"
	"time"

	"deripulse/models"
)

const maxSamplesPerChannel = 5

// AnalyzeTicks turns the per-channel tick history of a finished run into a
// statistics report. Channels without a single record get a NoData section
// instead of being dropped, so the caller can still see every channel it
// asked for.
func AnalyzeTicks(byChannel map[string][]models.TickRecord, duration time.Duration) models.Report {
	rep := models.Report{
		GeneratedAt: time.Now().UTC(),
		Duration:    duration,
	}

	names := make([]string, 0, len(byChannel))
	for name := range byChannel {
		names = append(names, name)
	}
	sort.Strings(names)

	var delaySum float64
	for _, name := range names {
		ticks := byChannel[name]
		ch := analyzeChannel(name, ticks, duration)
		rep.Channels = append(rep.Channels, ch)
		rep.TotalTicks += ch.Ticks
		if ch.Delay != nil {
			rep.DelayCount += ch.Delay.Count
			delaySum += ch.Delay.MeanMs * float64(ch.Delay.Count)
		}
	}

	if secs := duration.Seconds(); secs > 0 {
		rep.TicksPerSecond = float64(rep.TotalTicks) / secs
	}
	if rep.DelayCount > 0 {
		rep.OverallAvgDelayMs = delaySum / float64(rep.DelayCount)
		rep.Rating = models.RateDelay(rep.OverallAvgDelayMs)
	}
	return rep
}

func analyzeChannel(name string, ticks []models.TickRecord, duration time.Duration) models.ChannelReport {
	ch := models.ChannelReport{Channel: name}
	if len(ticks) == 0 {
		ch.NoData = true
		return ch
	}

	ch.Ticks = len(ticks)
	if secs := duration.Seconds(); secs > 0 {
		ch.PerSecond = float64(len(ticks)) / secs
	}

	var delays []float64
	for _, t := range ticks {
		if t.HasDelay {
			delays = append(delays, t.DelayMs)
		}
	}
	if len(delays) > 0 {
		ch.Delay = delayStats(delays)
		ch.Buckets = bucketize(delays)
	}

	ch.Size = sizeStats(ticks)
	ch.Price = priceStats(ticks)
	ch.Samples = sampleViews(ticks)
	return ch
}

func delayStats(delays []float64) *models.DelayStats {
	sorted := make([]float64, len(delays))
	copy(sorted, delays)
	sort.Float64s(sorted)

	var sum float64
	for _, d := range sorted {
		sum += d
	}
	mean := sum / float64(len(sorted))

	var sq float64
	for _, d := range sorted {
		diff := d - mean
		sq += diff * diff
	}

	return &models.DelayStats{
		Count:    len(sorted),
		MeanMs:   mean,
		MedianMs: sorted[len(sorted)/2],
		MinMs:    sorted[0],
		MaxMs:    sorted[len(sorted)-1],
		StdDevMs: math.Sqrt(sq / float64(len(sorted))),
	}
}

func bucketize(delays []float64) []models.DelayBucket {
	counts := make([]int, len(models.BucketLabels))
	for _, d := range delays {
		idx := len(models.DelayBucketBounds) - 1
		for i := 1; i < len(models.DelayBucketBounds); i++ {
			if d < models.DelayBucketBounds[i] {
				idx = i - 1
				break
			}
		}
		counts[idx]++
	}

	buckets := make([]models.DelayBucket, len(counts))
	for i, c := range counts {
		buckets[i] = models.DelayBucket{
			Label:   models.BucketLabels[i],
			Count:   c,
			Percent: float64(c) / float64(len(delays)) * 100,
		}
	}
	return buckets
}

func sizeStats(ticks []models.TickRecord) *models.SizeStats {
	st := models.SizeStats{MinBytes: ticks[0].Size, MaxBytes: ticks[0].Size}
	var sum int
	for _, t := range ticks {
		sum += t.Size
		if t.Size < st.MinBytes {
			st.MinBytes = t.Size
		}
		if t.Size > st.MaxBytes {
			st.MaxBytes = t.Size
		}
	}
	st.AvgBytes = float64(sum) / float64(len(ticks))
	return &st
}

// priceStats walks consecutive price-bearing records; a delta counts as a
// change only when the price actually moved.
func priceStats(ticks []models.TickRecord) *models.PriceStats {
	var prices []float64
	for _, t := range ticks {
		if t.HasPrice {
			prices = append(prices, t.Price)
		}
	}
	if len(prices) < 2 {
		return nil
	}

	// Updates counts every price-bearing record; change frequency is the
	// share of those records that moved the price.
	st := models.PriceStats{Updates: len(prices)}
	var changeSum float64
	for i := 1; i < len(prices); i++ {
		delta := math.Abs(prices[i] - prices[i-1])
		if delta > 0 {
			st.Changes++
			changeSum += delta
		}
	}
	st.ChangeFrequency = float64(st.Changes) / float64(st.Updates) * 100
	if st.Changes > 0 {
		st.AvgChange = changeSum / float64(st.Changes)
	}
	return &st
}

func sampleViews(ticks []models.TickRecord) []models.TickSampleView {
	n := len(ticks)
	if n > maxSamplesPerChannel {
		n = maxSamplesPerChannel
	}
	views := make([]models.TickSampleView, n)
	for i := 0; i < n; i++ {
		t := ticks[i]
		views[i] = models.TickSampleView{
			Seq:      t.Seq,
			DelayMs:  t.DelayMs,
			HasDelay: t.HasDelay,
			Price:    t.Price,
			HasPrice: t.HasPrice,
			Size:     t.Size,
		}
	}
	return views
}
