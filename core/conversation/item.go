package conversation

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type ItemType string

const (
	ItemMessage            ItemType = "message"
	ItemFunctionCall       ItemType = "function_call"
	ItemFunctionCallOutput ItemType = "function_call_output"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusIncomplete Status = "incomplete"
)

// ContentPart mirrors a content entry of a message item as the server sends
// it.
type ContentPart struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

// ToolCall is the function call an assistant item asks for.
type ToolCall struct {
	Type      string
	Name      string
	CallID    string
	Arguments string
}

// Formatted holds the item content accumulated for display and playback.
type Formatted struct {
	Text       string
	Transcript string
	Audio      []byte
	Tool       *ToolCall
	Output     string

	// File is the path of the decoded audio once the item completes.
	File string
}

type Item struct {
	ID        string        `json:"id"`
	Type      ItemType      `json:"type"`
	Role      Role          `json:"role,omitempty"`
	Status    Status        `json:"status,omitempty"`
	Content   []ContentPart `json:"content,omitempty"`
	Name      string        `json:"name,omitempty"`
	CallID    string        `json:"call_id,omitempty"`
	Arguments string        `json:"arguments,omitempty"`
	Output    string        `json:"output,omitempty"`

	Formatted Formatted `json:"-"`
}

// AudioContentIndex returns the index of the first audio content part, or -1.
func (i Item) AudioContentIndex() int {
	for idx, part := range i.Content {
		if part.Type == "audio" {
			return idx
		}
	}
	return -1
}

// Delta is the incremental change an event applied to an item.
type Delta struct {
	Text       string
	Transcript string
	Arguments  string
	Audio      []byte
}

// Update is reported for every event that changed an item.
type Update struct {
	Item  Item
	Delta *Delta
}
