package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"deripulse/logger"
	"deripulse/models"
)

func sampleReport() models.Report {
	mean := 42.5
	return models.Report{
		RunID:       "run-1",
		TestType:    "latency",
		GeneratedAt: time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC),
		Duration:    30 * time.Second,
		TotalTicks:  120,
		Channels: []models.ChannelReport{
			{
				Channel:   "ticker.BTC-PERPETUAL.100ms",
				Ticks:     120,
				PerSecond: 4,
				Delay:     &models.DelayStats{Count: 120, MeanMs: mean, MedianMs: 40, MinMs: 5, MaxMs: 90},
			},
		},
		DelayCount:        120,
		OverallAvgDelayMs: mean,
		Rating:            models.RatingExcellent,
	}
}

func TestSaveJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rep := sampleReport()

	path, err := SaveJSON(rep, dir)
	if err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("path = %q, want a file under %q", path, dir)
	}
	if !strings.Contains(filepath.Base(path), "latency") {
		t.Errorf("filename %q should name the test type", filepath.Base(path))
	}
	if filepath.Base(path) != Filename(rep) {
		t.Errorf("saved name %q differs from Filename %q", filepath.Base(path), Filename(rep))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved report: %v", err)
	}
	var loaded models.Report
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("saved report is not valid JSON: %v", err)
	}
	if loaded.RunID != rep.RunID || loaded.TotalTicks != rep.TotalTicks {
		t.Errorf("loaded report differs: %+v", loaded)
	}
	if loaded.Rating != models.RatingExcellent {
		t.Errorf("rating = %q", loaded.Rating)
	}
}

func TestSaveJSONCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "reports")
	if _, err := SaveJSON(sampleReport(), dir); err != nil {
		t.Fatalf("SaveJSON into missing directory: %v", err)
	}
}

func TestPrintHandlesNoData(t *testing.T) {
	rep := models.Report{
		TestType: "tick-analysis",
		Channels: []models.ChannelReport{
			{Channel: "book.BTC-PERPETUAL.100ms.10", NoData: true},
		},
	}
	// Must not panic on nil section pointers.
	Print(logger.GetLogger(), rep)
}

func TestFilenameStable(t *testing.T) {
	rep := sampleReport()
	want := "deripulse_latency_20250610T120000Z.json"
	if got := Filename(rep); got != want {
		t.Errorf("Filename = %q, want %q", got, want)
	}
}
