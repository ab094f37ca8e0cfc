// Package bus is the message channel between the background sync daemon and
// its attached foreground clients. It carries two things: credential
// handshakes (the daemon asks clients for the bearer token and races the
// first reply against a timeout) and sync outcome broadcasts so every client
// can update its own badge state.
package bus

import "margsync/internal/notify"

const (
	frameHello        = "hello"
	frameTokenRequest = "token-request"
	frameTokenReply   = "token-reply"
	frameEvent        = "event"
)

// frame is one newline-delimited JSON message on the bus socket.
type frame struct {
	Type     string        `json:"type"`
	ID       string        `json:"id,omitempty"`
	ClientID string        `json:"client_id,omitempty"`
	Token    string        `json:"token,omitempty"`
	Event    *notify.Event `json:"event,omitempty"`
}
