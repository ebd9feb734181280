package processor

import (
	"testing"
	"time"

	"deripulse/models"
)

func delayTick(d float64) models.TickRecord {
	return models.TickRecord{DelayMs: d, HasDelay: true, Size: 100}
}

func TestAnalyzeTicksBucketsAndRating(t *testing.T) {
	ticks := []models.TickRecord{
		delayTick(10),
		delayTick(60),
		delayTick(150),
		delayTick(600),
	}
	byChannel := map[string][]models.TickRecord{
		"ticker.BTC-PERPETUAL.100ms": ticks,
	}

	rep := AnalyzeTicks(byChannel, 2*time.Second)

	if rep.TotalTicks != 4 {
		t.Fatalf("total ticks = %d, want 4", rep.TotalTicks)
	}
	if rep.TicksPerSecond != 2 {
		t.Errorf("ticks per second = %v, want 2", rep.TicksPerSecond)
	}
	if rep.DelayCount != 4 {
		t.Errorf("delay count = %d, want 4", rep.DelayCount)
	}
	if rep.OverallAvgDelayMs != 205 {
		t.Errorf("overall avg delay = %v, want 205", rep.OverallAvgDelayMs)
	}
	if rep.Rating != models.RatingPoor {
		t.Errorf("rating = %q, want %q", rep.Rating, models.RatingPoor)
	}

	if len(rep.Channels) != 1 {
		t.Fatalf("channels = %d, want 1", len(rep.Channels))
	}
	ch := rep.Channels[0]
	wantCounts := []int{1, 1, 1, 0, 1}
	if len(ch.Buckets) != len(wantCounts) {
		t.Fatalf("buckets = %d, want %d", len(ch.Buckets), len(wantCounts))
	}
	for i, want := range wantCounts {
		if ch.Buckets[i].Count != want {
			t.Errorf("bucket %q count = %d, want %d", ch.Buckets[i].Label, ch.Buckets[i].Count, want)
		}
	}
}

func TestAnalyzeTicksEmptyChannel(t *testing.T) {
	rep := AnalyzeTicks(map[string][]models.TickRecord{
		"book.BTC-PERPETUAL.100ms.10": nil,
	}, time.Second)

	if len(rep.Channels) != 1 {
		t.Fatalf("channels = %d, want 1", len(rep.Channels))
	}
	if !rep.Channels[0].NoData {
		t.Error("expected NoData for empty channel")
	}
	if rep.TotalTicks != 0 || rep.Rating != "" {
		t.Errorf("empty run: ticks=%d rating=%q", rep.TotalTicks, rep.Rating)
	}
}

func TestAnalyzeTicksChannelsSorted(t *testing.T) {
	rep := AnalyzeTicks(map[string][]models.TickRecord{
		"trades.BTC-PERPETUAL.100ms": {delayTick(5)},
		"book.BTC-PERPETUAL.100ms.1": {delayTick(5)},
	}, time.Second)

	if len(rep.Channels) != 2 {
		t.Fatalf("channels = %d, want 2", len(rep.Channels))
	}
	if rep.Channels[0].Channel != "book.BTC-PERPETUAL.100ms.1" {
		t.Errorf("first channel = %q, want book channel", rep.Channels[0].Channel)
	}
}

func TestDelayStatsMedianUpperMiddle(t *testing.T) {
	st := delayStats([]float64{30, 10, 20, 40})
	if st.MedianMs != 30 {
		t.Errorf("median of even set = %v, want upper middle 30", st.MedianMs)
	}
	if st.MinMs != 10 || st.MaxMs != 40 {
		t.Errorf("min/max = %v/%v, want 10/40", st.MinMs, st.MaxMs)
	}
	if st.MeanMs != 25 {
		t.Errorf("mean = %v, want 25", st.MeanMs)
	}
}

func TestPriceStats(t *testing.T) {
	price := func(p float64) models.TickRecord {
		return models.TickRecord{Price: p, HasPrice: true}
	}
	ticks := []models.TickRecord{
		price(100),
		price(100), // no movement
		price(101),
		{Size: 10}, // no price, skipped
		price(99),
	}

	st := priceStats(ticks)
	if st == nil {
		t.Fatal("expected price stats")
	}
	if st.Updates != 4 {
		t.Errorf("updates = %d, want 4", st.Updates)
	}
	if st.Changes != 2 {
		t.Errorf("changes = %d, want 2", st.Changes)
	}
	if st.ChangeFrequency != 50 {
		t.Errorf("change frequency = %v, want 50", st.ChangeFrequency)
	}
	if st.AvgChange != 1.5 {
		t.Errorf("avg change = %v, want 1.5", st.AvgChange)
	}
}

func TestPriceStatsTooFewPoints(t *testing.T) {
	if st := priceStats([]models.TickRecord{{Price: 100, HasPrice: true}}); st != nil {
		t.Fatalf("expected nil price stats, got %+v", st)
	}
}

func TestSampleViewsCapped(t *testing.T) {
	ticks := make([]models.TickRecord, 8)
	for i := range ticks {
		ticks[i] = models.TickRecord{Seq: int64(i)}
	}
	views := sampleViews(ticks)
	if len(views) != maxSamplesPerChannel {
		t.Fatalf("views = %d, want %d", len(views), maxSamplesPerChannel)
	}
	if views[0].Seq != 0 || views[4].Seq != 4 {
		t.Errorf("expected the first records, got seq %d..%d", views[0].Seq, views[4].Seq)
	}
}
