package orchestration

import (
	"github.com/koscakluka/ema-quiz/core/conversation"
	"github.com/koscakluka/ema-quiz/core/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// callTool runs a completed function call on its own goroutine and returns
// the result to the agent. Calls start in the order the agent made them but
// may finish in any order.
func (o *Orchestrator) callTool(call conversation.ToolCall) {
	ctx, ok := o.startTask()
	if !ok {
		return
	}
	o.emit(events.NewToolCallStarted(call.CallID, call.Name, call.Arguments))

	go func() {
		defer o.wg.Done()

		ctx, span := tracer.Start(ctx, "call tool")
		defer span.End()
		span.SetAttributes(
			attribute.String("tool.name", call.Name),
			attribute.String("tool.call_id", call.CallID),
		)

		output, err := o.tools.Call(ctx, call.Name, call.Arguments)
		if err != nil {
			o.emit(events.NewToolCallFailed(call.CallID, call.Name, err.Error()))
		}
		o.emit(events.NewQuizUpdated(o.quiz.State()))

		if ctx.Err() != nil {
			logger.Info("session ended before tool output could be sent", "tool.name", call.Name)
			return
		}

		o.turnMu.Lock()
		sendErr := ErrNotConnected
		if o.turns.connected {
			sendErr = o.sendToolOutput(call.CallID, output)
		}
		o.turnMu.Unlock()

		if sendErr != nil {
			span.RecordError(sendErr)
			span.SetStatus(codes.Error, "failed to send tool output")
			logger.Warn("failed to send tool output", "tool.name", call.Name, "error", sendErr)
			o.emit(events.NewToolCallFailed(call.CallID, call.Name, sendErr.Error()))
			return
		}
		if err == nil {
			o.emit(events.NewToolCallCompleted(call.CallID, call.Name, output))
		}
	}()
}
