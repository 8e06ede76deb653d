package events

const (
	KindToolCallStarted   Kind = "tool_call.started"
	KindToolCallCompleted Kind = "tool_call.completed"
	KindToolCallFailed    Kind = "tool_call.failed"
)

// ToolCallStarted is sent when the agent's function call is complete and the
// handler is about to run.
type ToolCallStarted struct {
	Base
	CallID    string
	Name      string
	Arguments string
}

func NewToolCallStarted(callID, name, arguments string) ToolCallStarted {
	return ToolCallStarted{Base: NewBase(KindToolCallStarted), CallID: callID, Name: name, Arguments: arguments}
}

// ToolCallCompleted carries the JSON output returned to the agent.
type ToolCallCompleted struct {
	Base
	CallID string
	Name   string
	Output string
}

func NewToolCallCompleted(callID, name, output string) ToolCallCompleted {
	return ToolCallCompleted{Base: NewBase(KindToolCallCompleted), CallID: callID, Name: name, Output: output}
}

// ToolCallFailed is sent when the handler failed or the output could not be
// delivered to the agent.
type ToolCallFailed struct {
	Base
	CallID string
	Name   string
	Error  string
}

func NewToolCallFailed(callID, name, err string) ToolCallFailed {
	return ToolCallFailed{Base: NewBase(KindToolCallFailed), CallID: callID, Name: name, Error: err}
}
