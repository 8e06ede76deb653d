// Package portaudio implements the capture and playback ports on top of the
// PortAudio blocking stream API.
package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ema-quiz/core/audio"
)

type Client struct {
	Capture  *Capture
	Playback *Playback
}

func NewClient(bufferSize int) (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	encoding := audio.GetDefaultEncodingInfo()
	return &Client{
		Capture:  &Capture{bufferSize: bufferSize, encoding: encoding},
		Playback: &Playback{bufferSize: bufferSize, buffer: audio.NewTrackBuffer(encoding)},
	}, nil
}

func (c *Client) Close() {
	_ = c.Capture.End()
	_ = c.Playback.Close()
	portaudio.Terminate()
}

// Capture reads microphone frames on its own goroutine while recording.
type Capture struct {
	bufferSize int
	encoding   audio.EncodingInfo

	mu     sync.Mutex
	stream *portaudio.Stream
	in     []int16
	cancel context.CancelFunc
	done   chan struct{}
	recent []byte
}

func (c *Capture) Begin(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream != nil {
		return nil
	}

	c.in = make([]int16, c.bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(c.encoding.SampleRate), c.bufferSize, c.in)
	if err != nil {
		return fmt.Errorf("failed to open PortAudio input stream: %w", err)
	}

	c.stream = stream
	return nil
}

func (c *Capture) Record(onFrame func(frame []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil {
		return fmt.Errorf("capture stream not opened")
	}
	if c.cancel != nil {
		return nil
	}

	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("failed to start PortAudio input stream: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.read(ctx, c.stream, c.in, onFrame, c.done)
	return nil
}

func (c *Capture) read(ctx context.Context, stream *portaudio.Stream, in []int16, onFrame func([]byte), done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := stream.Read(); err != nil {
			logger.Warn("failed to read from PortAudio stream", "error", err)
			continue
		}

		frame := bytes.Buffer{}
		_ = binary.Write(&frame, binary.LittleEndian, in)

		c.mu.Lock()
		c.recent = frame.Bytes()
		c.mu.Unlock()

		onFrame(frame.Bytes())
	}
}

func (c *Capture) Pause() error {
	c.mu.Lock()
	cancel, done, stream := c.cancel, c.done, c.stream
	c.cancel, c.done, c.recent = nil, nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()
	<-done
	if err := stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop PortAudio input stream: %w", err)
	}
	return nil
}

func (c *Capture) End() error {
	err := c.Pause()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream != nil {
		if closeErr := c.stream.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		c.stream = nil
	}
	return err
}

func (c *Capture) Status() audio.CaptureStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return audio.CaptureRecording
	}
	return audio.CaptureIdle
}

func (c *Capture) Levels(bands int) []float64 {
	c.mu.Lock()
	recent := c.recent
	c.mu.Unlock()

	return audio.Levels(recent, bands)
}

// Playback drains a track buffer into the default output device.
type Playback struct {
	bufferSize int
	buffer     *audio.TrackBuffer

	mu     sync.Mutex
	stream *portaudio.Stream
	cancel context.CancelFunc
	done   chan struct{}
}

func (p *Playback) Connect(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream != nil {
		return nil
	}

	out := make([]int16, p.bufferSize)
	stream, err := portaudio.OpenDefaultStream(0, 1, audio.DefaultSampleRate, p.bufferSize, out)
	if err != nil {
		return fmt.Errorf("failed to open PortAudio output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start PortAudio output stream: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.stream, p.cancel, p.done = stream, cancel, make(chan struct{})
	go p.write(ctx, stream, out, p.done)
	return nil
}

func (p *Playback) write(ctx context.Context, stream *portaudio.Stream, out []int16, done chan struct{}) {
	defer close(done)
	chunk := make([]byte, len(out)*2)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n := p.buffer.Read(chunk)
		clear(chunk[n:])
		_ = binary.Read(bytes.NewReader(chunk), binary.LittleEndian, out)
		if err := stream.Write(); err != nil {
			logger.Warn("failed to write to PortAudio stream", "error", err)
		}
	}
}

func (p *Playback) Add16BitPCM(pcm []byte, trackID string) error {
	p.mu.Lock()
	connected := p.stream != nil
	p.mu.Unlock()

	if !connected {
		return fmt.Errorf("playback stream not connected")
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
	cancel, done, stream := p.cancel, p.done, p.stream
	p.cancel, p.done, p.stream = nil, nil, nil
	p.mu.Unlock()

	p.buffer.Reset()
	if stream == nil {
		return nil
	}

	cancel()
	<-done
	_ = stream.Stop()
	return stream.Close()
}

func (c *Capture) EncodingInfo() audio.EncodingInfo { return c.encoding }
