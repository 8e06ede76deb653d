package miniaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-quiz/core/audio"
)

// Playback is a speaker port that plays interleaved linear16 audio tagged by
// track id.
type Playback struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device
	buffer       *audio.TrackBuffer

	mu sync.Mutex
}

func (p *Playback) Connect(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.device != nil {
		return nil
	}

	encoding := audio.GetDefaultEncodingInfo()
	channels := 1
	format := malgo.FormatS16

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = uint32(encoding.SampleRate)
	config.Playback.Format = format
	config.Playback.Channels = uint32(channels)
	config.Alsa.NoMMap = 1
	config.PeriodSizeInFrames = config.SampleRate / 10 // ~100ms of audio
	config.Periods = 4

	device, err := malgo.InitDevice(p.audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(pOutput, _ []byte, _ uint32) {
			n := p.buffer.Read(pOutput)
			clear(pOutput[n:])
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	p.device = device
	return nil
}

func (p *Playback) Add16BitPCM(pcm []byte, trackID string) error {
	p.mu.Lock()
	started := p.device != nil && p.device.IsStarted()
	p.mu.Unlock()

	if !started {
		return fmt.Errorf("playback device not started")
	}

	p.buffer.Write(pcm, trackID)
	return nil
}

func (p *Playback) Interrupt() (*audio.TrackOffset, error) {
	return p.buffer.Interrupt(), nil
}

func (p *Playback) Levels(bands int) []float64 {
	return p.buffer.Levels(bands)
}

func (p *Playback) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buffer.Reset()
	if p.device == nil {
		return nil
	}

	p.device.Uninit()
	p.device = nil
	return nil
}
