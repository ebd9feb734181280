package deribit

import (
	"encoding/json"
	"time"

	"deripulse/models"

	"github.com/gorilla/websocket"
)

const (
	authRequestID = 1
	authTimeout   = 10 * time.Second
)

// Credentials for the optional public/auth client-credentials handshake.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// authenticate performs the request/response auth handshake with a bounded
// wait. Failure is returned to the caller, which downgrades the session to
// unauthenticated operation; Deribit serves public channels either way.
func (s *Session) authenticate(conn *websocket.Conn) error {
	req := models.RPCRequest{
		JSONRPC: "2.0",
		ID:      authRequestID,
		Method:  "public/auth",
		Params: models.AuthParams{
			GrantType:    "client_credentials",
			ClientID:     s.creds.ClientID,
			ClientSecret: s.creds.ClientSecret,
		},
	}
	if err := conn.WriteJSON(req); err != nil {
		return &models.TransportError{Op: "send auth", Err: err}
	}

	if err := conn.SetReadDeadline(time.Now().Add(authTimeout)); err != nil {
		return &models.TransportError{Op: "set deadline", Err: err}
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return &models.AuthError{Reason: err.Error()}
		}

		var resp models.AuthResponse
		if err := json.Unmarshal(raw, &resp); err != nil || resp.ID != authRequestID {
			// Not the auth reply; keep waiting within the deadline.
			continue
		}
		if resp.Error != nil {
			return &models.AuthError{Reason: resp.Error.Message}
		}
		if resp.Result == nil || resp.Result.AccessToken == "" {
			return &models.AuthError{Reason: "no access token in response"}
		}
		return nil
	}
}
