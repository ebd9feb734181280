package models

import (
	"time"
)

// InboundMessage is one decoded unit received on a websocket session.
// Channel is empty for non-channel traffic such as id-correlated RPC
// responses to the subscribe or auth calls; those messages are still
// counted but carry nothing to analyze.
type InboundMessage struct {
	Method     string
	Channel    string
	Data       map[string]interface{}
	Size       int
	ReceivedAt time.Time
	ServerTime time.Time // zero when the payload carries no timestamp
}

// HasServerTime reports whether the payload carried a producer timestamp.
func (m *InboundMessage) HasServerTime() bool {
	return !m.ServerTime.IsZero()
}

// LatencySample is the one-way delay derived from a single message.
// Samples exist only for delays inside (0, 10000]ms; implausible values
// are discarded at the sampler, never corrected.
type LatencySample struct {
	Channel    string
	ReceivedAt time.Time
	DelayMs    float64
}

// TickRecord is an InboundMessage enriched for post-hoc analysis. Records
// are appended per channel in arrival order during collection and are
// read-only afterwards.
type TickRecord struct {
	Seq             int64
	Channel         string
	ReceivedAt      time.Time
	ServerTimestamp int64 // epoch milliseconds, 0 when absent
	DelayMs         float64
	HasDelay        bool
	Size            int
	Price           float64
	HasPrice        bool
	Volume          float64
	HasVolume       bool
	BidPrice        float64
	HasBid          bool
	AskPrice        float64
	HasAsk          bool
}
