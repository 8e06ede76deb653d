package audio

// CaptureStatus reports whether a capture port is currently delivering frames.
type CaptureStatus string

const (
	CaptureIdle      CaptureStatus = "idle"
	CaptureRecording CaptureStatus = "recording"
)

// TrackOffset identifies how far playback of a track got before it was
// interrupted. Offset is measured in samples.
type TrackOffset struct {
	TrackID string
	Offset  int
}
