package conversation

import "errors"

var (
	ErrItemNotFound     = errors.New("conversation: item not found")
	ErrResponseNotFound = errors.New("conversation: response not found")
	ErrNotCancellable   = errors.New("conversation: only assistant messages can be cancelled")
	ErrNoAudioContent   = errors.New("conversation: item has no audio content")
)
