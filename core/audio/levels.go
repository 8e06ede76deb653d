package audio

import (
	"encoding/binary"
	"math"
)

// Levels splits linear16 pcm into bands equally sized windows and returns the
// RMS amplitude of each window normalised to [0, 1].
func Levels(pcm []byte, bands int) []float64 {
	if bands <= 0 {
		return nil
	}

	levels := make([]float64, bands)
	samples := len(pcm) / 2
	if samples == 0 {
		return levels
	}

	perBand := samples / bands
	if perBand == 0 {
		perBand = 1
	}

	for band := range bands {
		start := band * perBand
		if start >= samples {
			break
		}
		end := min(start+perBand, samples)

		var sum float64
		for i := start; i < end; i++ {
			sample := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / math.MaxInt16
			sum += sample * sample
		}
		levels[band] = min(math.Sqrt(sum/float64(end-start)), 1)
	}

	return levels
}
