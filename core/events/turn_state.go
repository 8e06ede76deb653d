package events

// KindTurnStateChanged identifies a turn controller transition.
const KindTurnStateChanged Kind = "turn_state.changed"

// TurnStateChanged uses plain strings so receivers need not import the
// orchestrator.
type TurnStateChanged struct {
	Base
	State         string
	Mode          string
	CanPushToTalk bool
}

func NewTurnStateChanged(state, mode string, canPushToTalk bool) TurnStateChanged {
	return TurnStateChanged{Base: NewBase(KindTurnStateChanged), State: state, Mode: mode, CanPushToTalk: canPushToTalk}
}
