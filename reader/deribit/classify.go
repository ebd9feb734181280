package deribit

import (
	"encoding/json"
	"time"

	"deripulse/models"
)

// Classify parses one raw wire frame into an InboundMessage. Frames that
// do not match the channel-notification shape (for example id-correlated
// replies to the subscribe call) still come back as valid messages with an
// empty Channel so the caller can count them without analyzing them.
func Classify(raw []byte, receivedAt time.Time) (models.InboundMessage, error) {
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return models.InboundMessage{}, &models.DecodeError{Err: err}
	}

	msg := models.InboundMessage{
		Size:       len(raw),
		ReceivedAt: receivedAt,
	}

	if method, ok := decoded["method"].(string); ok {
		msg.Method = method
	}

	params, _ := decoded["params"].(map[string]interface{})
	if params == nil {
		return msg, nil
	}
	if channel, ok := params["channel"].(string); ok {
		msg.Channel = channel
	}
	if data, ok := params["data"].(map[string]interface{}); ok {
		msg.Data = data
		if ts, ok := NumberField(data, "timestamp"); ok {
			msg.ServerTime = time.UnixMilli(int64(ts))
		}
	}

	return msg, nil
}

// NumberField returns the first of the named fields present in the payload
// with a numeric value.
func NumberField(data map[string]interface{}, names ...string) (float64, bool) {
	for _, name := range names {
		switch v := data[name].(type) {
		case float64:
			return v, true
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// BuildTick lifts a channel-bearing message into a TickRecord, extracting
// the numeric fields used by the analyzer. The per-run sequence number is
// assigned later by the collector; delay is filled in by the caller from
// the latency sampler.
func BuildTick(msg models.InboundMessage) models.TickRecord {
	tick := models.TickRecord{
		Channel:    msg.Channel,
		ReceivedAt: msg.ReceivedAt,
		Size:       msg.Size,
	}
	if msg.HasServerTime() {
		tick.ServerTimestamp = msg.ServerTime.UnixMilli()
	}
	if msg.Data == nil {
		return tick
	}
	if price, ok := NumberField(msg.Data, "last_price", "price"); ok {
		tick.Price = price
		tick.HasPrice = true
	}
	if volume, ok := NumberField(msg.Data, "volume"); ok {
		tick.Volume = volume
		tick.HasVolume = true
	}
	if bid, ok := NumberField(msg.Data, "best_bid_price"); ok {
		tick.BidPrice = bid
		tick.HasBid = true
	}
	if ask, ok := NumberField(msg.Data, "best_ask_price"); ok {
		tick.AskPrice = ask
		tick.HasAsk = true
	}
	return tick
}
