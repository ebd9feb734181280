package deribit

import (
	"errors"
	"testing"
	"time"

	"deripulse/models"
)

func TestClassifyNotification(t *testing.T) {
	raw := []byte(`{"jsonrpc":"2.0","method":"subscription","params":{"channel":"ticker.BTC-PERPETUAL.100ms","data":{"timestamp":1718000000000,"last_price":65000.5,"best_bid_price":65000,"best_ask_price":65001}}}`)

	now := time.Now()
	msg, err := Classify(raw, now)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if msg.Method != "subscription" {
		t.Errorf("method = %q, want subscription", msg.Method)
	}
	if msg.Channel != "ticker.BTC-PERPETUAL.100ms" {
		t.Errorf("channel = %q", msg.Channel)
	}
	if !msg.HasServerTime() || msg.ServerTime.UnixMilli() != 1718000000000 {
		t.Errorf("server time = %v", msg.ServerTime)
	}
	if msg.Size != len(raw) {
		t.Errorf("size = %d, want %d", msg.Size, len(raw))
	}

	tick := BuildTick(msg)
	if !tick.HasPrice || tick.Price != 65000.5 {
		t.Errorf("price = %v (has=%v)", tick.Price, tick.HasPrice)
	}
	if !tick.HasBid || tick.BidPrice != 65000 {
		t.Errorf("bid = %v (has=%v)", tick.BidPrice, tick.HasBid)
	}
	if !tick.HasAsk || tick.AskPrice != 65001 {
		t.Errorf("ask = %v (has=%v)", tick.AskPrice, tick.HasAsk)
	}
	if tick.ServerTimestamp != 1718000000000 {
		t.Errorf("server timestamp = %d", tick.ServerTimestamp)
	}
}

func TestClassifyRPCReply(t *testing.T) {
	raw := []byte(`{"jsonrpc":"2.0","id":42,"result":["ticker.BTC-PERPETUAL.100ms"]}`)

	msg, err := Classify(raw, time.Now())
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if msg.Channel != "" {
		t.Errorf("reply should carry no channel, got %q", msg.Channel)
	}
	if msg.HasServerTime() {
		t.Error("reply should carry no producer timestamp")
	}
}

func TestClassifyMalformed(t *testing.T) {
	_, err := Classify([]byte(`{"jsonrpc":`), time.Now())
	if err == nil {
		t.Fatal("expected a decode error")
	}
	var decodeErr *models.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Errorf("error type = %T, want *models.DecodeError", err)
	}
}

func TestBuildTickTradePrice(t *testing.T) {
	raw := []byte(`{"method":"subscription","params":{"channel":"trades.BTC-PERPETUAL.100ms","data":{"timestamp":1718000000000,"price":64999.5,"volume":0.3}}}`)

	msg, err := Classify(raw, time.Now())
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	tick := BuildTick(msg)
	if !tick.HasPrice || tick.Price != 64999.5 {
		t.Errorf("trade price = %v (has=%v)", tick.Price, tick.HasPrice)
	}
	if !tick.HasVolume || tick.Volume != 0.3 {
		t.Errorf("volume = %v (has=%v)", tick.Volume, tick.HasVolume)
	}
}
