// Package conversation reconciles realtime server events into an ordered list
// of conversation items.
package conversation

import (
	"encoding/base64"
	"fmt"
	"slices"
	"sync"

	"github.com/jinzhu/copier"
	"github.com/koscakluka/ema-quiz/core/audio"
	"github.com/koscakluka/ema-quiz/core/realtime"
)

type speech struct {
	startMs int
	endMs   int
	audio   []byte
}

// Store is the single writer of conversation items. Item order is the order
// in which the server first reported them.
type Store struct {
	mu       sync.Mutex
	encoding audio.EncodingInfo

	items     []*Item
	lookup    map[string]*Item
	responses map[string][]string

	inputAudio        []byte
	queuedInputAudio  []byte
	queuedSpeech      map[string]*speech
	queuedTranscripts map[string]string
	cancelled         map[string]struct{}
}

func NewStore(encoding audio.EncodingInfo) *Store {
	s := &Store{encoding: encoding}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.items = nil
	s.lookup = map[string]*Item{}
	s.responses = map[string][]string{}
	s.inputAudio = nil
	s.queuedInputAudio = nil
	s.queuedSpeech = map[string]*speech{}
	s.queuedTranscripts = map[string]string{}
	s.cancelled = map[string]struct{}{}
}

// Clear drops every item and all pending state.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// Items returns a deep copy of the items in order.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]Item, len(s.items))
	for i, item := range s.items {
		items[i] = snapshot(item)
	}
	return items
}

func (s *Store) Get(id string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.lookup[id]
	if !ok {
		return Item{}, false
	}
	return snapshot(item), true
}

// Delete removes the item locally. It reports whether the item existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(id) != nil
}

// SetFile attaches decoded audio to an item that is still present.
func (s *Store) SetFile(id, path string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.lookup[id]
	if !ok {
		return Item{}, false
	}
	item.Formatted.File = path
	return snapshot(item), true
}

// AppendInputAudio keeps captured audio so speech segments and manual commits
// can be attached to the user items they produce.
func (s *Store) AppendInputAudio(pcm []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputAudio = append(s.inputAudio, pcm...)
}

// CommitInputAudio moves the pending input audio onto the next user item. It
// reports whether there was anything to commit.
func (s *Store) CommitInputAudio() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.inputAudio) == 0 {
		return false
	}
	s.queuedInputAudio = s.inputAudio
	s.inputAudio = nil
	return true
}

// Cancel prepares the item for truncation and stops accepting audio for it.
// It returns the index of the audio content part to truncate.
func (s *Store) Cancel(id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.lookup[id]
	if !ok {
		return -1, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	if item.Type != ItemMessage || item.Role != RoleAssistant {
		return -1, ErrNotCancellable
	}
	index := item.AudioContentIndex()
	if index < 0 {
		return -1, ErrNoAudioContent
	}

	s.cancelled[id] = struct{}{}
	return index, nil
}

// Process applies a server event. It returns nil when the event did not
// change any item.
func (s *Store) Process(ev realtime.Event) (*Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Type {
	case "conversation.item.created":
		return s.itemCreated(ev)
	case "conversation.item.truncated":
		return s.itemTruncated(ev)
	case "conversation.item.deleted":
		return s.itemDeleted(ev)
	case "conversation.item.input_audio_transcription.completed":
		return s.transcriptionCompleted(ev)
	case "input_audio_buffer.speech_started":
		return s.speechStarted(ev)
	case "input_audio_buffer.speech_stopped":
		return s.speechStopped(ev)
	case "response.created":
		return s.responseCreated(ev)
	case "response.output_item.added":
		return s.outputItemAdded(ev)
	case "response.output_item.done":
		return s.outputItemDone(ev)
	case "response.content_part.added":
		return s.contentPartAdded(ev)
	case "response.audio_transcript.delta":
		return s.transcriptDelta(ev)
	case "response.audio.delta":
		return s.audioDelta(ev)
	case "response.text.delta":
		return s.textDelta(ev)
	case "response.function_call_arguments.delta":
		return s.argumentsDelta(ev)
	}
	return nil, nil
}

func (s *Store) itemCreated(ev realtime.Event) (*Update, error) {
	var payload struct {
		Item Item `json:"item"`
	}
	if err := ev.Decode(&payload); err != nil {
		return nil, err
	}
	if _, ok := s.lookup[payload.Item.ID]; ok {
		return nil, nil
	}

	item := payload.Item
	for _, part := range item.Content {
		if part.Type == "text" || part.Type == "input_text" {
			item.Formatted.Text += part.Text
		}
	}
	if queued, ok := s.queuedSpeech[item.ID]; ok {
		item.Formatted.Audio = queued.audio
		delete(s.queuedSpeech, item.ID)
	}
	if transcript, ok := s.queuedTranscripts[item.ID]; ok {
		item.Formatted.Transcript = transcript
		delete(s.queuedTranscripts, item.ID)
	}

	switch item.Type {
	case ItemMessage:
		if item.Role == RoleUser {
			item.Status = StatusCompleted
			if s.queuedInputAudio != nil {
				item.Formatted.Audio = s.queuedInputAudio
				s.queuedInputAudio = nil
			}
		} else {
			item.Status = StatusInProgress
		}
	case ItemFunctionCall:
		item.Formatted.Tool = &ToolCall{Type: "function", Name: item.Name, CallID: item.CallID}
		item.Status = StatusInProgress
	case ItemFunctionCallOutput:
		item.Status = StatusCompleted
		item.Formatted.Output = item.Output
	}

	s.items = append(s.items, &item)
	s.lookup[item.ID] = &item
	return &Update{Item: snapshot(&item)}, nil
}

func (s *Store) itemTruncated(ev realtime.Event) (*Update, error) {
	var payload struct {
		ItemID     string `json:"item_id"`
		AudioEndMs int    `json:"audio_end_ms"`
	}
	if err := ev.Decode(&payload); err != nil {
		return nil, err
	}
	item, ok := s.lookup[payload.ItemID]
	if !ok {
		return nil, fmt.Errorf("%w: truncated %s", ErrItemNotFound, payload.ItemID)
	}

	end := s.bytesAt(payload.AudioEndMs)
	item.Formatted.Transcript = ""
	if end < len(item.Formatted.Audio) {
		item.Formatted.Audio = item.Formatted.Audio[:end]
	}
	return &Update{Item: snapshot(item)}, nil
}

func (s *Store) itemDeleted(ev realtime.Event) (*Update, error) {
	var payload struct {
		ItemID string `json:"item_id"`
	}
	if err := ev.Decode(&payload); err != nil {
		return nil, err
	}

	item := s.remove(payload.ItemID)
	if item == nil {
		return nil, nil
	}
	return &Update{Item: snapshot(item)}, nil
}

func (s *Store) transcriptionCompleted(ev realtime.Event) (*Update, error) {
	var payload struct {
		ItemID       string `json:"item_id"`
		ContentIndex int    `json:"content_index"`
		Transcript   string `json:"transcript"`
	}
	if err := ev.Decode(&payload); err != nil {
		return nil, err
	}

	// An empty transcript still marks the item as transcribed.
	formatted := payload.Transcript
	if formatted == "" {
		formatted = " "
	}

	item, ok := s.lookup[payload.ItemID]
	if !ok {
		s.queuedTranscripts[payload.ItemID] = formatted
		return nil, nil
	}
	if part := contentAt(item, payload.ContentIndex); part != nil {
		part.Transcript = payload.Transcript
	}
	item.Formatted.Transcript = formatted
	return &Update{Item: snapshot(item), Delta: &Delta{Transcript: payload.Transcript}}, nil
}

func (s *Store) speechStarted(ev realtime.Event) (*Update, error) {
	var payload struct {
		ItemID       string `json:"item_id"`
		AudioStartMs int    `json:"audio_start_ms"`
	}
	if err := ev.Decode(&payload); err != nil {
		return nil, err
	}
	s.queuedSpeech[payload.ItemID] = &speech{startMs: payload.AudioStartMs}
	return nil, nil
}

func (s *Store) speechStopped(ev realtime.Event) (*Update, error) {
	var payload struct {
		ItemID     string `json:"item_id"`
		AudioEndMs int    `json:"audio_end_ms"`
	}
	if err := ev.Decode(&payload); err != nil {
		return nil, err
	}

	queued, ok := s.queuedSpeech[payload.ItemID]
	if !ok {
		queued = &speech{}
		s.queuedSpeech[payload.ItemID] = queued
	}
	queued.endMs = payload.AudioEndMs

	start := min(s.bytesAt(queued.startMs), len(s.inputAudio))
	end := min(s.bytesAt(queued.endMs), len(s.inputAudio))
	if start < end {
		queued.audio = slices.Clone(s.inputAudio[start:end])
	}
	return nil, nil
}

func (s *Store) responseCreated(ev realtime.Event) (*Update, error) {
	var payload struct {
		Response struct {
			ID string `json:"id"`
		} `json:"response"`
	}
	if err := ev.Decode(&payload); err != nil {
		return nil, err
	}
	if _, ok := s.responses[payload.Response.ID]; !ok {
		s.responses[payload.Response.ID] = nil
	}
	return nil, nil
}

func (s *Store) outputItemAdded(ev realtime.Event) (*Update, error) {
	var payload struct {
		ResponseID string `json:"response_id"`
		Item       Item   `json:"item"`
	}
	if err := ev.Decode(&payload); err != nil {
		return nil, err
	}
	output, ok := s.responses[payload.ResponseID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrResponseNotFound, payload.ResponseID)
	}
	s.responses[payload.ResponseID] = append(output, payload.Item.ID)
	return nil, nil
}

func (s *Store) outputItemDone(ev realtime.Event) (*Update, error) {
	var payload struct {
		Item Item `json:"item"`
	}
	if err := ev.Decode(&payload); err != nil {
		return nil, err
	}
	item, ok := s.lookup[payload.Item.ID]
	if !ok {
		return nil, fmt.Errorf("%w: done %s", ErrItemNotFound, payload.Item.ID)
	}
	item.Status = payload.Item.Status
	return &Update{Item: snapshot(item)}, nil
}

func (s *Store) contentPartAdded(ev realtime.Event) (*Update, error) {
	var payload struct {
		ItemID string      `json:"item_id"`
		Part   ContentPart `json:"part"`
	}
	if err := ev.Decode(&payload); err != nil {
		return nil, err
	}
	item, ok := s.lookup[payload.ItemID]
	if !ok {
		return nil, fmt.Errorf("%w: content part for %s", ErrItemNotFound, payload.ItemID)
	}
	item.Content = append(item.Content, payload.Part)
	return &Update{Item: snapshot(item)}, nil
}

type textDeltaPayload struct {
	ItemID       string `json:"item_id"`
	ContentIndex int    `json:"content_index"`
	Delta        string `json:"delta"`
}

func (s *Store) transcriptDelta(ev realtime.Event) (*Update, error) {
	var payload textDeltaPayload
	if err := ev.Decode(&payload); err != nil {
		return nil, err
	}
	item, ok := s.lookup[payload.ItemID]
	if !ok {
		return nil, fmt.Errorf("%w: transcript delta for %s", ErrItemNotFound, payload.ItemID)
	}
	if part := contentAt(item, payload.ContentIndex); part != nil {
		part.Transcript += payload.Delta
	}
	item.Formatted.Transcript += payload.Delta
	return &Update{Item: snapshot(item), Delta: &Delta{Transcript: payload.Delta}}, nil
}

func (s *Store) audioDelta(ev realtime.Event) (*Update, error) {
	var payload textDeltaPayload
	if err := ev.Decode(&payload); err != nil {
		return nil, err
	}
	if _, ok := s.cancelled[payload.ItemID]; ok {
		logger.Debug("dropping audio for cancelled item", "item_id", payload.ItemID)
		return nil, nil
	}
	item, ok := s.lookup[payload.ItemID]
	if !ok {
		return nil, fmt.Errorf("%w: audio delta for %s", ErrItemNotFound, payload.ItemID)
	}

	pcm, err := base64.StdEncoding.DecodeString(payload.Delta)
	if err != nil {
		return nil, fmt.Errorf("invalid audio delta for %s: %w", payload.ItemID, err)
	}
	item.Formatted.Audio = append(item.Formatted.Audio, pcm...)
	return &Update{Item: snapshot(item), Delta: &Delta{Audio: pcm}}, nil
}

func (s *Store) textDelta(ev realtime.Event) (*Update, error) {
	var payload textDeltaPayload
	if err := ev.Decode(&payload); err != nil {
		return nil, err
	}
	item, ok := s.lookup[payload.ItemID]
	if !ok {
		return nil, fmt.Errorf("%w: text delta for %s", ErrItemNotFound, payload.ItemID)
	}
	if part := contentAt(item, payload.ContentIndex); part != nil {
		part.Text += payload.Delta
	}
	item.Formatted.Text += payload.Delta
	return &Update{Item: snapshot(item), Delta: &Delta{Text: payload.Delta}}, nil
}

func (s *Store) argumentsDelta(ev realtime.Event) (*Update, error) {
	var payload textDeltaPayload
	if err := ev.Decode(&payload); err != nil {
		return nil, err
	}
	item, ok := s.lookup[payload.ItemID]
	if !ok {
		return nil, fmt.Errorf("%w: arguments delta for %s", ErrItemNotFound, payload.ItemID)
	}
	item.Arguments += payload.Delta
	if item.Formatted.Tool != nil {
		item.Formatted.Tool.Arguments += payload.Delta
	}
	return &Update{Item: snapshot(item), Delta: &Delta{Arguments: payload.Delta}}, nil
}

func (s *Store) remove(id string) *Item {
	item, ok := s.lookup[id]
	if !ok {
		return nil
	}
	delete(s.lookup, id)
	s.items = slices.DeleteFunc(s.items, func(i *Item) bool { return i.ID == id })
	return item
}

// bytesAt converts a millisecond offset into a byte offset of PCM audio.
func (s *Store) bytesAt(ms int) int {
	samples := ms * s.encoding.SampleRate / 1000
	return samples * s.encoding.Format.ByteSize()
}

func contentAt(item *Item, index int) *ContentPart {
	if index < 0 || index >= len(item.Content) {
		return nil
	}
	return &item.Content[index]
}

func snapshot(item *Item) Item {
	var out Item
	if err := copier.CopyWithOption(&out, item, copier.Option{DeepCopy: true}); err != nil {
		logger.Warn("failed to copy conversation item", "item_id", item.ID, "error", err)
		return *item
	}
	return out
}
