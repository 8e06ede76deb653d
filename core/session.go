package orchestration

import (
	"encoding/base64"
	"fmt"
)

const DefaultInstructions = `You are an AI assistant designed to facilitate quiz shows. When a new quiz question is received, always use the 'set_memory' tool to store the **entire quiz question object as a JSON string** with the key 'current_question'. Do not store just the 'quizId' or any other identifier.

Present the question and options to the user without revealing the correct answer.

When the user provides an answer, use the 'check_answer' tool to verify it. The tool will automatically use the current question stored in memory.

After providing feedback on the answer, ask the user if they want to continue with another question. If they do, use the 'get_quiz_question' tool again to fetch a new question, and remember to store it using 'set_memory'.

Always ensure that the current question is stored in memory before checking answers.`

const (
	DefaultVoice              = "echo"
	DefaultTranscriptionModel = "whisper-1"
)

type sessionConfig struct {
	Instructions       string
	Voice              string
	TranscriptionModel string
}

func defaultSessionConfig() sessionConfig {
	return sessionConfig{
		Instructions:       DefaultInstructions,
		Voice:              DefaultVoice,
		TranscriptionModel: DefaultTranscriptionModel,
	}
}

// updateSession sends the whole session configuration, including the turn
// detection that matches the current mode and the registered tools.
func (o *Orchestrator) updateSession() error {
	var turnDetection any
	if o.turns.mode == TurnModeVAD {
		turnDetection = map[string]any{"type": "server_vad"}
	}

	session := map[string]any{
		"modalities":                []string{"text", "audio"},
		"instructions":              o.config.Instructions,
		"voice":                     o.config.Voice,
		"input_audio_format":        "pcm16",
		"output_audio_format":       "pcm16",
		"input_audio_transcription": map[string]any{"model": o.config.TranscriptionModel},
		"turn_detection":            turnDetection,
		"tools":                     o.tools.Definitions(),
		"tool_choice":               "auto",
	}
	if err := o.transport.Send("session.update", map[string]any{"session": session}); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

func (o *Orchestrator) sendUserText(text string) error {
	item := map[string]any{
		"type": "message",
		"role": "user",
		"content": []map[string]any{
			{"type": "input_text", "text": text},
		},
	}
	if err := o.transport.Send("conversation.item.create", map[string]any{"item": item}); err != nil {
		return fmt.Errorf("failed to send user message: %w", err)
	}
	return o.createResponse()
}

func (o *Orchestrator) appendInputAudio(pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}
	o.conversation.AppendInputAudio(pcm)
	return o.transport.Send("input_audio_buffer.append", map[string]any{
		"audio": base64.StdEncoding.EncodeToString(pcm),
	})
}

// createResponse asks the agent to respond. In manual mode the captured input
// is committed first, since the agent does not segment it itself.
func (o *Orchestrator) createResponse() error {
	if o.turns.mode == TurnModeManual && o.conversation.CommitInputAudio() {
		if err := o.transport.Send("input_audio_buffer.commit", nil); err != nil {
			return fmt.Errorf("failed to commit input audio: %w", err)
		}
	}
	if err := o.transport.Send("response.create", nil); err != nil {
		return fmt.Errorf("failed to create response: %w", err)
	}
	return nil
}

// cancelResponse cancels the in-flight response and truncates the item's
// audio to what was actually played. offset is in samples. The cancellation
// is always sent; only the truncation depends on the item being a known
// assistant message with audio.
func (o *Orchestrator) cancelResponse(trackID string, offset int) error {
	if err := o.transport.Send("response.cancel", nil); err != nil {
		return err
	}
	if trackID == "" {
		return nil
	}

	contentIndex, err := o.conversation.Cancel(trackID)
	if err != nil {
		return fmt.Errorf("cannot truncate %s: %w", trackID, err)
	}
	return o.transport.Send("conversation.item.truncate", map[string]any{
		"item_id":       trackID,
		"content_index": contentIndex,
		"audio_end_ms":  o.encoding.Milliseconds(offset),
	})
}

func (o *Orchestrator) deleteItem(id string) error {
	return o.transport.Send("conversation.item.delete", map[string]any{"item_id": id})
}

func (o *Orchestrator) sendToolOutput(callID, output string) error {
	item := map[string]any{
		"type":    "function_call_output",
		"call_id": callID,
		"output":  output,
	}
	if err := o.transport.Send("conversation.item.create", map[string]any{"item": item}); err != nil {
		return fmt.Errorf("failed to send tool output: %w", err)
	}
	return o.createResponse()
}
