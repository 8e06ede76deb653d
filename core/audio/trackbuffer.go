package audio

import "sync"

// TrackBuffer is a playback queue that remembers which track every queued
// chunk belongs to, so playback can be interrupted at a precise position of
// an in-flight track.
//
// Once a track has been interrupted any audio later written for it is
// dropped.
type TrackBuffer struct {
	mu sync.Mutex

	encoding EncodingInfo
	segments []trackSegment
	played   map[string]int // bytes played per track

	interrupted map[string]struct{}
	// lastTrack is the track most recently read, kept so an interrupt during
	// an underrun still names it.
	lastTrack string

	// recent keeps the most recently played bytes for level metering.
	recent []byte
}

type trackSegment struct {
	trackID string
	audio   []byte
}

const recentWindow = 4096

func NewTrackBuffer(encoding EncodingInfo) *TrackBuffer {
	if encoding.IsZero() {
		encoding = GetDefaultEncodingInfo()
	}
	return &TrackBuffer{
		encoding:    encoding,
		played:      map[string]int{},
		interrupted: map[string]struct{}{},
	}
}

// Write queues pcm for the given track. It reports false when the track was
// previously interrupted and the audio was discarded.
func (b *TrackBuffer) Write(pcm []byte, trackID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.interrupted[trackID]; ok {
		return false
	}
	if len(pcm) == 0 {
		return true
	}

	chunk := make([]byte, len(pcm))
	copy(chunk, pcm)

	if last := len(b.segments) - 1; last >= 0 && b.segments[last].trackID == trackID {
		b.segments[last].audio = append(b.segments[last].audio, chunk...)
		return true
	}

	b.segments = append(b.segments, trackSegment{trackID: trackID, audio: chunk})
	return true
}

// Read fills out with queued audio and returns the number of bytes written.
// Any remainder of out is left untouched.
func (b *TrackBuffer) Read(out []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	written := 0
	for written < len(out) && len(b.segments) > 0 {
		segment := &b.segments[0]
		n := copy(out[written:], segment.audio)
		b.played[segment.trackID] += n
		b.lastTrack = segment.trackID
		b.remember(segment.audio[:n])
		segment.audio = segment.audio[n:]
		written += n

		if len(segment.audio) == 0 {
			b.segments = b.segments[1:]
		}
	}

	return written
}

// Interrupt stops playback, discards all queued audio and returns the track
// that was playing together with the number of its samples already played.
// When the queue has run dry the last track read is reported. Nil is returned
// when nothing was played since the previous interrupt.
func (b *TrackBuffer) Interrupt() *TrackOffset {
	b.mu.Lock()
	defer b.mu.Unlock()

	trackID := b.lastTrack
	if len(b.segments) > 0 {
		trackID = b.segments[0].trackID
	}
	if trackID == "" {
		return nil
	}

	b.interrupted[trackID] = struct{}{}
	for _, segment := range b.segments {
		b.interrupted[segment.trackID] = struct{}{}
	}
	b.segments = nil
	b.recent = nil
	b.lastTrack = ""

	return &TrackOffset{
		TrackID: trackID,
		Offset:  b.encoding.Samples(b.played[trackID]),
	}
}

// Pending returns the number of queued bytes not yet played.
func (b *TrackBuffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	pending := 0
	for _, segment := range b.segments {
		pending += len(segment.audio)
	}
	return pending
}

// Levels returns the RMS levels of the most recently played audio.
func (b *TrackBuffer) Levels(bands int) []float64 {
	b.mu.Lock()
	recent := make([]byte, len(b.recent))
	copy(recent, b.recent)
	b.mu.Unlock()

	return Levels(recent, bands)
}

// Reset forgets all queued audio, play counts and interrupted tracks.
func (b *TrackBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.segments = nil
	b.recent = nil
	b.played = map[string]int{}
	b.interrupted = map[string]struct{}{}
	b.lastTrack = ""
}

func (b *TrackBuffer) remember(played []byte) {
	b.recent = append(b.recent, played...)
	if overflow := len(b.recent) - recentWindow; overflow > 0 {
		b.recent = b.recent[overflow:]
	}
}
