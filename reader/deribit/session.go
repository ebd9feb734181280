package deribit

import (
	"context"
	"time"

	"deripulse/logger"
	"deripulse/models"
	"deripulse/processor"
	"deripulse/stream"

	"github.com/gorilla/websocket"
)

const (
	subscribeRequestID = 42
	handshakeTimeout   = 10 * time.Second
	closeGrace         = time.Second
	logEvery           = 100
)

// Session owns one websocket connection's lifecycle: connect, optional
// auth, subscribe, receive loop, close. Each session owns its socket and
// its stats exclusively; nothing is shared with sibling sessions.
type Session struct {
	id       int
	endpoint string
	channels []string
	creds    *Credentials
	ticks    *stream.Channels
	log      *logger.Log
}

// NewSession creates a session for the given connection slot. A nil creds
// runs the session unauthenticated; a nil ticks channel discards records
// and only the counters survive.
func NewSession(id int, endpoint string, channels []string, creds *Credentials, ticks *stream.Channels) *Session {
	return &Session{
		id:       id,
		endpoint: endpoint,
		channels: channels,
		creds:    creds,
		ticks:    ticks,
		log:      logger.GetLogger(),
	}
}

// Run drives the connection for at most duration and returns the session's
// immutable stats snapshot. Errors end up inside the snapshot; Run itself
// never panics or propagates them.
func (s *Session) Run(ctx context.Context, duration time.Duration) models.SessionStats {
	stats := models.SessionStats{ConnID: s.id, StartedAt: time.Now()}
	log := s.log.WithComponent("session").WithFields(logger.Fields{"conn_id": s.id})

	stats.ConnectAttempts++
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		log.WithError(err).Warn("failed to connect")
		return s.finish(stats, models.OutcomeError, &models.TransportError{Op: "connect", Err: err})
	}
	defer conn.Close()

	stats.Connected = true
	log.Info("connected")

	if s.creds != nil {
		if err := s.authenticate(conn); err != nil {
			log.WithError(err).Warn("authentication failed, continuing unauthenticated")
		} else {
			stats.Authenticated = true
			log.Info("authenticated")
		}
	}

	if err := s.subscribe(conn); err != nil {
		log.WithError(err).Warn("failed to subscribe")
		return s.finish(stats, models.OutcomeError, err)
	}
	log.WithFields(logger.Fields{"channels": s.channels}).Info("subscribed")

	// The auth handshake leaves a read deadline on the socket; the receive
	// loop manages its own lifetime, so clear it.
	conn.SetReadDeadline(time.Time{})

	// Reads happen on a dedicated goroutine. A websocket read error is
	// permanent, so the socket is never read again after one; the loop
	// below only ever sees each read result once. Closing the socket on
	// exit unblocks a pending read, and the stop channel unblocks a
	// pending send.
	stop := make(chan struct{})
	defer close(stop)
	frames := make(chan readResult, 1)
	go func() {
		for {
			_, raw, err := conn.ReadMessage()
			select {
			case frames <- readResult{raw: raw, err: err}:
			case <-stop:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	durationTimer := time.NewTimer(duration)
	defer durationTimer.Stop()

	for {
		var res readResult
		select {
		case <-ctx.Done():
			s.closeGracefully(conn)
			return s.finish(stats, models.OutcomeStopped, nil)
		case <-durationTimer.C:
			s.closeGracefully(conn)
			return s.finish(stats, models.OutcomeCompleted, nil)
		case res = <-frames:
		}
		if res.err != nil {
			log.WithError(res.err).Warn("connection closed unexpectedly")
			return s.finish(stats, models.OutcomeDisconnect, &models.TransportError{Op: "receive", Err: res.err})
		}

		received := time.Now()
		msg, cerr := Classify(res.raw, received)
		if cerr != nil {
			logger.IncrementDecodeError()
			log.WithError(cerr).Debug("skipping malformed message")
			continue
		}

		stats.Messages++
		logger.IncrementMessageRead(msg.Size)
		if stats.Messages%logEvery == 0 {
			log.WithFields(logger.Fields{"messages": stats.Messages}).Info("session progress")
		}

		if msg.Channel == "" {
			// RPC replies and heartbeats are counted, nothing more.
			continue
		}

		tick := BuildTick(msg)
		if sample, ok := processor.Sample(msg, received); ok {
			tick.DelayMs = sample.DelayMs
			tick.HasDelay = true
		}
		if s.ticks != nil {
			s.ticks.SendTick(ctx, tick)
		}
	}
}

func (s *Session) subscribe(conn *websocket.Conn) error {
	req := models.RPCRequest{
		JSONRPC: "2.0",
		ID:      subscribeRequestID,
		Method:  "public/subscribe",
		Params:  models.SubscribeParams{Channels: s.channels},
	}
	if err := conn.WriteJSON(req); err != nil {
		return &models.TransportError{Op: "subscribe", Err: err}
	}
	return nil
}

// closeGracefully attempts the websocket close handshake so the server
// sees a clean shutdown instead of an abandoned socket.
func (s *Session) closeGracefully(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
}

func (s *Session) finish(stats models.SessionStats, outcome models.Outcome, err error) models.SessionStats {
	stats.Outcome = outcome
	stats.EndedAt = time.Now()
	if err != nil {
		stats.Err = err
		stats.ErrMessage = err.Error()
	}
	return stats
}

// readResult is one outcome of the reader goroutine's ReadMessage call.
// err set means the connection is unusable and no further results follow.
type readResult struct {
	raw []byte
	err error
}
