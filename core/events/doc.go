// Package events defines the typed notifications the orchestrator sends to
// its user interface.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - event_log.*
//   - conversation.*
//   - tool_call.*
//   - quiz.*
//   - turn_state.*
//   - session.*
//
// Payloads are snapshots; receivers may keep them without copying.
//
// event_log events
//
//   - EventLogged (event_log.appended): a protocol event opened a new log
//     entry.
//   - EventLogMerged (event_log.merged): a protocol event was counted into the
//     trailing log entry.
//
// conversation events
//
//   - ConversationUpdated (conversation.updated): an item was created or
//     changed; carries the delta that changed it, if any.
//   - ConversationItemDeleted (conversation.item_deleted): an item was
//     removed.
//   - ConversationInterrupted (conversation.interrupted): the agent's speech
//     was talked over and playback was interrupted.
//
// tool_call events
//
//   - ToolCallStarted (tool_call.started): tool execution started.
//   - ToolCallCompleted (tool_call.completed): tool execution completed.
//   - ToolCallFailed (tool_call.failed): tool execution failed; the agent
//     still received a structured error result.
//
// quiz events
//
//   - QuizUpdated (quiz.updated): question, score or feedback changed.
//
// turn_state events
//
//   - TurnStateChanged (turn_state.changed): the turn controller moved to a
//     new state or push-to-talk eligibility changed.
//
// session events
//
//   - SessionConnected (session.connected): ports and transport are up.
//   - SessionDisconnected (session.disconnected): the session was torn down
//     and all session state was cleared.
//   - SessionFailed (session.failed): a fatal transport or audio port error
//     ended the session.
package events
