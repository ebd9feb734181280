package models

import "time"

// Outcome records how a session's receive loop ended.
type Outcome string

const (
	// OutcomeCompleted means the session ran for its full duration.
	OutcomeCompleted Outcome = "completed"
	// OutcomeStopped means an external stop signal ended the loop.
	OutcomeStopped Outcome = "stopped"
	// OutcomeDisconnect means the transport closed mid-run.
	OutcomeDisconnect Outcome = "disconnect"
	// OutcomeError means the session failed before or during the run.
	OutcomeError Outcome = "error"
)

// SessionStats is the immutable snapshot a session returns when its loop
// exits. It is mutated only by the owning session's goroutine and handed
// over exactly once at the join point.
type SessionStats struct {
	ConnID          int       `json:"conn_id"`
	Messages        int64     `json:"messages"`
	ConnectAttempts int       `json:"connect_attempts"`
	Connected       bool      `json:"connected"`
	Authenticated   bool      `json:"authenticated"`
	Outcome         Outcome   `json:"outcome"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	Err             error     `json:"-"`
	ErrMessage      string    `json:"error,omitempty"`
}

// Failed reports whether the session ended in a way that would require a
// reconnect to continue streaming.
func (s SessionStats) Failed() bool {
	return s.Outcome == OutcomeError || s.Outcome == OutcomeDisconnect
}

// AggregateStats is the coordinator-owned union of all session snapshots
// plus global counters. It is written single-threaded after all sessions
// have joined.
type AggregateStats struct {
	TestType      string         `json:"test_type"`
	StartedAt     time.Time      `json:"started_at"`
	Duration      time.Duration  `json:"duration"`
	TotalMessages int64          `json:"total_messages"`
	Connections   int            `json:"connections"`
	Reconnections int            `json:"reconnections"`
	Sessions      []SessionStats `json:"sessions"`
}

// Aggregate folds session snapshots into an AggregateStats. Sums are
// commutative, so the result does not depend on completion order.
func Aggregate(sessions []SessionStats) AggregateStats {
	agg := AggregateStats{Sessions: sessions}
	for _, s := range sessions {
		agg.TotalMessages += s.Messages
		if s.Connected {
			agg.Connections++
		}
		if s.Failed() {
			agg.Reconnections++
		}
	}
	return agg
}
