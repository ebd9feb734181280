package models

import "fmt"

// TransportError wraps a connect, send or receive failure on the
// websocket. Recoverable: the reconnection driver redials on it and the
// stress coordinator counts the session as a reconnect-worthy failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError marks a malformed inbound message. The session logs it and
// skips the message; it never terminates the receive loop.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode message: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// AuthError reports a failed authentication handshake. Non-fatal: the
// session downgrades to unauthenticated operation.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}
