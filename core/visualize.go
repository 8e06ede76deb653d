package orchestration

import (
	"context"
	"time"
)

// Levels are the most recent audio levels of the ports, each band in [0, 1].
type Levels struct {
	Input  []float64
	Output []float64
}

// Visualize samples port levels every interval and passes them to render
// until ctx is cancelled. Ports that cannot report levels yield nil bands.
func (o *Orchestrator) Visualize(ctx context.Context, interval time.Duration, bands int, render func(Levels)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			render(o.Levels(bands))
		}
	}
}

// Levels samples the current port levels once.
func (o *Orchestrator) Levels(bands int) Levels {
	var levels Levels
	if meter, ok := o.capture.(LevelMeter); ok && meter != nil {
		levels.Input = meter.Levels(bands)
	}
	if meter, ok := o.playback.(LevelMeter); ok && meter != nil {
		levels.Output = meter.Levels(bands)
	}
	return levels
}
