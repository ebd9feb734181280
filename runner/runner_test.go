package runner

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"deripulse/config"
	"deripulse/models"
	"deripulse/stream"
)

// startFeedServer runs a websocket endpoint that accepts the subscribe
// request and then pushes ticker notifications until the client leaves.
func startFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req map[string]interface{}
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		for i := 0; ; i++ {
			notif := fmt.Sprintf(
				`{"jsonrpc":"2.0","method":"subscription","params":{"channel":"ticker.BTC-PERPETUAL.100ms","data":{"timestamp":%d,"last_price":%d}}}`,
				time.Now().UnixMilli()-10, 50000+i)
			if err := conn.WriteMessage(websocket.TextMessage, []byte(notif)); err != nil {
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return strings.Replace(srv.URL, "http", "ws", 1)
}

func testConfig(endpoint string) *config.Config {
	return &config.Config{
		Deribit: config.DeribitConfig{WSURL: endpoint},
		Test: config.TestConfig{
			Connections:        3,
			Duration:           300 * time.Millisecond,
			DisconnectInterval: 150 * time.Millisecond,
			Channels:           []string{"ticker.BTC-PERPETUAL.100ms"},
			LatencyChannel:     "ticker.BTC-PERPETUAL.100ms",
		},
		Channels: config.ChannelsConfig{TickBuffer: 256},
	}
}

func TestStressRunAggregates(t *testing.T) {
	srv := startFeedServer(t)
	cfg := testConfig(wsURL(srv))

	ticks := stream.NewChannels(cfg.Channels.TickBuffer)
	collector := NewCollector(ticks)
	collector.Start()

	agg, err := NewStressRunner(cfg, ticks).Run(context.Background())
	if err != nil {
		t.Fatalf("stress run: %v", err)
	}
	ticks.Close()
	byChannel := collector.Wait()

	if agg.TestType != "stress" {
		t.Errorf("test type = %q, want stress", agg.TestType)
	}
	if agg.Connections != 3 {
		t.Errorf("connections = %d, want 3", agg.Connections)
	}
	if len(agg.Sessions) != 3 {
		t.Fatalf("sessions = %d, want 3", len(agg.Sessions))
	}
	for _, s := range agg.Sessions {
		if s.Outcome != models.OutcomeCompleted {
			t.Errorf("session %d outcome = %q, want completed", s.ConnID, s.Outcome)
		}
	}
	if agg.TotalMessages == 0 {
		t.Error("expected messages from the feed")
	}
	if len(byChannel["ticker.BTC-PERPETUAL.100ms"]) == 0 {
		t.Error("expected collected ticks for the subscribed channel")
	}
}

func TestStressRunRejectsZeroConnections(t *testing.T) {
	cfg := testConfig("ws://127.0.0.1:0")
	cfg.Test.Connections = 0

	ticks := stream.NewChannels(8)
	if _, err := NewStressRunner(cfg, ticks).Run(context.Background()); err == nil {
		t.Fatal("expected an error for zero connections")
	}
}

func TestReconnectRunCycles(t *testing.T) {
	srv := startFeedServer(t)
	cfg := testConfig(wsURL(srv))
	cfg.Test.Duration = 500 * time.Millisecond
	cfg.Test.DisconnectInterval = 150 * time.Millisecond

	ticks := stream.NewChannels(cfg.Channels.TickBuffer)
	collector := NewCollector(ticks)
	collector.Start()

	agg, err := NewReconnectRunner(cfg, ticks).Run(context.Background())
	if err != nil {
		t.Fatalf("reconnection run: %v", err)
	}
	ticks.Close()
	collector.Wait()

	if agg.TestType != "reconnection" {
		t.Errorf("test type = %q, want reconnection", agg.TestType)
	}
	if agg.Reconnections < 2 {
		t.Errorf("reconnections = %d, want at least 2", agg.Reconnections)
	}
	if len(agg.Sessions) != agg.Reconnections {
		t.Errorf("sessions = %d, reconnections = %d, want them equal when every connect succeeds",
			len(agg.Sessions), agg.Reconnections)
	}
}

func TestSoloRunZeroDuration(t *testing.T) {
	srv := startFeedServer(t)
	cfg := testConfig(wsURL(srv))
	cfg.Test.Duration = 0

	ticks := stream.NewChannels(8)
	started := time.Now()
	agg, err := NewLatencyRunner(cfg, ticks).Run(context.Background())
	if err != nil {
		t.Fatalf("latency run: %v", err)
	}

	if elapsed := time.Since(started); elapsed > 3*time.Second {
		t.Errorf("zero duration run took %v, want prompt termination", elapsed)
	}
	if agg.TestType != "latency" {
		t.Errorf("test type = %q, want latency", agg.TestType)
	}
	if len(agg.Sessions) != 1 || agg.Sessions[0].Outcome != models.OutcomeCompleted {
		t.Errorf("unexpected sessions: %+v", agg.Sessions)
	}
}

func TestCollectorAssignsSequence(t *testing.T) {
	ticks := stream.NewChannels(16)
	collector := NewCollector(ticks)
	collector.Start()

	for i := 0; i < 6; i++ {
		channel := "ticker.BTC-PERPETUAL.100ms"
		if i%2 == 1 {
			channel = "trades.BTC-PERPETUAL.100ms"
		}
		ticks.Ticks <- models.TickRecord{Channel: channel, Size: i}
	}
	ticks.Close()
	byChannel := collector.Wait()

	if len(byChannel) != 2 {
		t.Fatalf("channels = %d, want 2", len(byChannel))
	}
	var seen []int64
	for _, records := range byChannel {
		for _, rec := range records {
			seen = append(seen, rec.Seq)
		}
	}
	if len(seen) != 6 {
		t.Fatalf("records = %d, want 6", len(seen))
	}
	unique := make(map[int64]bool)
	for _, s := range seen {
		if s < 0 || s > 5 {
			t.Errorf("sequence %d out of range", s)
		}
		unique[s] = true
	}
	if len(unique) != 6 {
		t.Errorf("sequence numbers not unique: %v", seen)
	}
}
