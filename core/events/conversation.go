package events

import "github.com/koscakluka/ema-quiz/core/conversation"

const (
	// KindConversationUpdated identifies an item change.
	KindConversationUpdated Kind = "conversation.updated"
	// KindConversationItemDeleted identifies an item removal.
	KindConversationItemDeleted Kind = "conversation.item_deleted"
	// KindConversationInterrupted identifies interrupted agent speech.
	KindConversationInterrupted Kind = "conversation.interrupted"
)

// ConversationUpdated carries the item after the change. Delta is nil for
// changes that are not incremental, such as status updates.
type ConversationUpdated struct {
	Base
	Item  conversation.Item
	Delta *conversation.Delta
}

func NewConversationUpdated(item conversation.Item, delta *conversation.Delta) ConversationUpdated {
	return ConversationUpdated{Base: NewBase(KindConversationUpdated), Item: item, Delta: delta}
}

type ConversationItemDeleted struct {
	Base
	ItemID string
}

func NewConversationItemDeleted(itemID string) ConversationItemDeleted {
	return ConversationItemDeleted{Base: NewBase(KindConversationItemDeleted), ItemID: itemID}
}

// ConversationInterrupted reports where playback stopped. TrackID is empty
// when nothing was playing.
type ConversationInterrupted struct {
	Base
	TrackID string
	Offset  int
}

func NewConversationInterrupted(trackID string, offset int) ConversationInterrupted {
	return ConversationInterrupted{Base: NewBase(KindConversationInterrupted), TrackID: trackID, Offset: offset}
}
