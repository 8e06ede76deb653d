package realtime

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned when sending on a closed or never opened
	// connection.
	ErrNotConnected = errors.New("realtime: not connected")

	// ErrAlreadyConnected is returned by Connect on an open connection.
	ErrAlreadyConnected = errors.New("realtime: already connected")

	// ErrMissingCredentials is returned when neither an API key nor a relay
	// URL is configured.
	ErrMissingCredentials = errors.New("realtime: API key or relay URL is required")

	// ErrConnectionClosed is reported when the server closes the socket.
	ErrConnectionClosed = errors.New("realtime: connection closed")
)

// ConnectionError describes a failure of the underlying websocket. Retryable
// is false when reconnecting with the same settings cannot succeed, such as a
// rejected API key.
type ConnectionError struct {
	Reason    string
	Err       error
	Retryable bool
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("realtime: connection error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("realtime: connection error: %s", e.Reason)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// APIError is the content of an "error" server event.
type APIError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Param   string `json:"param"`
	EventID string `json:"event_id"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("realtime: API error [%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("realtime: API error: %s", e.Message)
}

// AsAPIError extracts the error carried by an "error" server event.
func AsAPIError(ev Event) (*APIError, bool) {
	if ev.Type != "error" {
		return nil, false
	}

	var payload struct {
		Error APIError `json:"error"`
	}
	if err := ev.Decode(&payload); err != nil {
		return &APIError{Message: "malformed error event"}, true
	}
	return &payload.Error, true
}
