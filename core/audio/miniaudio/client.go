// Package miniaudio implements the capture and playback ports on top of
// miniaudio (malgo).
package miniaudio

import (
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-quiz/core/audio"
)

// Client owns a single miniaudio context shared by the microphone capture
// port and the speaker playback port.
type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext

	Capture  *Capture
	Playback *Playback
}

func NewClient() (*Client, error) {
	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("malgo", "message", message)
	})
	if err != nil {
		return nil, fmt.Errorf("malgo InitContext failed: %w", err)
	}

	encoding := audio.GetDefaultEncodingInfo()
	return &Client{
		audioContext: audioCtx,
		Capture:      &Capture{audioContext: audioCtx, encoding: encoding},
		Playback:     &Playback{audioContext: audioCtx, buffer: audio.NewTrackBuffer(encoding)},
	}, nil
}

func (c *Client) Close() {
	_ = c.Capture.End()
	_ = c.Playback.Close()
	_ = c.audioContext.Uninit()
	c.audioContext.Free()
}
