package events

import "github.com/koscakluka/ema-quiz/core/eventlog"

const (
	// KindEventLogged identifies a new event log entry.
	KindEventLogged Kind = "event_log.appended"
	// KindEventLogMerged identifies a count increment of the trailing entry.
	KindEventLogMerged Kind = "event_log.merged"
)

type EventLogged struct {
	Base
	Entry eventlog.Entry
}

func NewEventLogged(entry eventlog.Entry) EventLogged {
	return EventLogged{Base: NewBase(KindEventLogged), Entry: entry}
}

type EventLogMerged struct {
	Base
	Entry eventlog.Entry
}

func NewEventLogMerged(entry eventlog.Entry) EventLogMerged {
	return EventLogMerged{Base: NewBase(KindEventLogMerged), Entry: entry}
}
