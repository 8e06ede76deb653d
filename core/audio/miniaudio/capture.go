package miniaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-quiz/core/audio"
)

// Capture is a microphone capture port delivering mono linear16 frames.
type Capture struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device
	encoding     audio.EncodingInfo

	onFrame func(frame []byte)
	recent  []byte

	mu sync.Mutex
}

// Begin opens the capture device. Frames are not delivered until Record.
func (c *Capture) Begin(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device != nil {
		return nil
	}

	channels := 1
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.SampleRate = uint32(c.encoding.SampleRate)
	config.Capture.Format = format
	config.Capture.Channels = uint32(channels)
	config.Alsa.NoMMap = 1
	config.PerformanceProfile = malgo.LowLatency
	config.PeriodSizeInFrames = 480
	config.Periods = 3

	device, err := malgo.InitDevice(c.audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if len(pInput) < n || n == 0 {
				return
			}

			frame := make([]byte, n)
			copy(frame, pInput[:n])

			c.mu.Lock()
			onFrame := c.onFrame
			c.recent = frame
			c.mu.Unlock()

			if onFrame != nil {
				onFrame(frame)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}

	c.device = device
	return nil
}

// Record starts delivering frames to onFrame.
func (c *Capture) Record(onFrame func(frame []byte)) error {
	c.mu.Lock()
	device := c.device
	if device != nil {
		c.onFrame = onFrame
	}
	c.mu.Unlock()

	if device == nil {
		return fmt.Errorf("capture device not initialized")
	}
	if device.IsStarted() {
		return nil
	}

	if err := device.Start(); err != nil {
		c.mu.Lock()
		c.onFrame = nil
		c.mu.Unlock()
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	return nil
}

// Pause stops frame delivery but keeps the device open.
func (c *Capture) Pause() error {
	// The data callback takes mu, so the device is stopped outside of it.
	c.mu.Lock()
	device := c.device
	c.onFrame = nil
	c.recent = nil
	c.mu.Unlock()

	if device == nil {
		return fmt.Errorf("capture device not initialized")
	}
	if !device.IsStarted() {
		return nil
	}

	if err := device.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}
	return nil
}

// End releases the device.
func (c *Capture) End() error {
	c.mu.Lock()
	device := c.device
	c.device = nil
	c.onFrame = nil
	c.recent = nil
	c.mu.Unlock()

	if device != nil {
		device.Uninit()
	}
	return nil
}

func (c *Capture) Status() audio.CaptureStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device != nil && c.device.IsStarted() && c.onFrame != nil {
		return audio.CaptureRecording
	}
	return audio.CaptureIdle
}

// Levels returns the RMS levels of the last captured frame.
func (c *Capture) Levels(bands int) []float64 {
	c.mu.Lock()
	recent := c.recent
	c.mu.Unlock()

	return audio.Levels(recent, bands)
}

func (c *Capture) EncodingInfo() audio.EncodingInfo { return c.encoding }
