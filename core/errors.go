package orchestration

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized     = errors.New("orchestration: session gate not passed")
	ErrNotConnected     = errors.New("orchestration: not connected")
	ErrAlreadyConnected = errors.New("orchestration: already connected")
	ErrNoTransport      = errors.New("orchestration: no transport configured")
	ErrPushToTalk       = errors.New("orchestration: push-to-talk is not available")
	ErrNotRecording     = errors.New("orchestration: not recording")
	ErrClosed           = errors.New("orchestration: closed")
)

// PortError wraps a failure of the capture or playback port. Port errors end
// the session.
type PortError struct {
	Port string
	Op   string
	Err  error
}

func (e *PortError) Error() string {
	return fmt.Sprintf("orchestration: %s %s failed: %v", e.Port, e.Op, e.Err)
}

func (e *PortError) Unwrap() error {
	return e.Err
}

func captureError(op string, err error) error {
	return &PortError{Port: "capture", Op: op, Err: err}
}

func playbackError(op string, err error) error {
	return &PortError{Port: "playback", Op: op, Err: err}
}
