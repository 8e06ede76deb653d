package events

const (
	// KindSessionConnected identifies a completed connect.
	KindSessionConnected Kind = "session.connected"
	// KindSessionDisconnected identifies a completed teardown.
	KindSessionDisconnected Kind = "session.disconnected"
	// KindSessionFailed identifies a fatal session error.
	KindSessionFailed Kind = "session.failed"
)

type SessionConnected struct{ Base }

func NewSessionConnected() SessionConnected {
	return SessionConnected{Base: NewBase(KindSessionConnected)}
}

type SessionDisconnected struct{ Base }

func NewSessionDisconnected() SessionDisconnected {
	return SessionDisconnected{Base: NewBase(KindSessionDisconnected)}
}

// SessionFailed carries the error that ended the session.
type SessionFailed struct {
	Base
	Err error
}

func NewSessionFailed(err error) SessionFailed {
	return SessionFailed{Base: NewBase(KindSessionFailed), Err: err}
}
