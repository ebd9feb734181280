package models

// RPCRequest is the jsonrpc-2.0 envelope Deribit expects for every
// client-initiated call on the websocket.
type RPCRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

// SubscribeParams lists all target channels for a single public/subscribe
// call. One request covers the whole channel set of a session.
type SubscribeParams struct {
	Channels []string `json:"channels"`
}

// AuthParams carries client-credentials authentication for public/auth.
type AuthParams struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// AuthResult is the subset of the public/auth response the session cares
// about. A non-empty AccessToken means the handshake succeeded.
type AuthResult struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// RPCError is the error member of a jsonrpc response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// AuthResponse is the id-correlated reply to a public/auth request.
type AuthResponse struct {
	ID     int         `json:"id"`
	Result *AuthResult `json:"result"`
	Error  *RPCError   `json:"error"`
}
