// Package realtime holds the presence wire format shared by the WebSocket
// gateway and the SSE watcher stream.
package realtime

import (
	"encoding/json"

	"github.com/mcoot/quizcore/internal/model"
)

// Event names
const (
	EventOnlineUsers    = "onlineUsers"
	EventGetOnlineUsers = "getOnlineUsers"
	EventError          = "error"
	EventConnected      = "connected"
)

// Envelope is the frame used in both directions
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// OnlineUser is one element of an onlineUsers payload
type OnlineUser struct {
	Username string `json:"username"`
}

// Reason explains why the server terminated a connection
type Reason string

const (
	ReasonAuthMissing       Reason = "auth_missing"
	ReasonAuthInvalid       Reason = "auth_invalid"
	ReasonSessionSuperseded Reason = "session_superseded"
	ReasonInternalError     Reason = "internal_error"
)

// ErrorData is the payload of a terminal error event
type ErrorData struct {
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
}

// Message returns the human-readable text sent alongside a reason
func (r Reason) Message() string {
	switch r {
	case ReasonAuthMissing:
		return "authentication credential required"
	case ReasonAuthInvalid:
		return "invalid or expired credential"
	case ReasonSessionSuperseded:
		return "session replaced by a newer connection"
	default:
		return "internal server error"
	}
}

// CloseCode returns the WebSocket close code for a reason.
// Application codes live in the 4000-4999 range.
func (r Reason) CloseCode() int {
	switch r {
	case ReasonAuthMissing:
		return 4001
	case ReasonAuthInvalid:
		return 4003
	case ReasonSessionSuperseded:
		return 4009
	default:
		return 1011
	}
}

// OnlineUsers converts an ordered identity snapshot to its wire shape
func OnlineUsers(identities []model.Identity) []OnlineUser {
	users := make([]OnlineUser, len(identities))
	for i, id := range identities {
		users[i] = OnlineUser{Username: id.Username}
	}
	return users
}

// Encode builds a JSON envelope for event with data
func Encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// Decode parses an inbound envelope
func Decode(message []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(message, &env)
	return env, err
}
