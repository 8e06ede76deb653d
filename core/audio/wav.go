package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrInvalidItemID is returned for item ids that are not a plain file name.
var ErrInvalidItemID = errors.New("item id is not a valid file name")

// EncodeWAV wraps raw PCM data with a 44 byte RIFF/WAVE header.
func EncodeWAV(pcm []byte, sampleRate, bitsPerSample, channels int) []byte {
	dataLen := len(pcm)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	header := make([]byte, 44)

	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataLen))
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], uint16(bitsPerSample))

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataLen))

	return append(header, pcm...)
}

// FileDecoder turns finished item audio into a WAV file on disk and returns
// its path as the playable file reference.
type FileDecoder struct {
	Dir          string
	EncodingInfo EncodingInfo
}

func NewFileDecoder(dir string) *FileDecoder {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "ema-quiz")
	}
	return &FileDecoder{Dir: dir, EncodingInfo: GetDefaultEncodingInfo()}
}

func (d *FileDecoder) Decode(ctx context.Context, itemID string, pcm []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	// Item ids come from the server and must not escape Dir.
	if name := filepath.Base(itemID); name != itemID || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidItemID, itemID)
	}

	encoding := d.EncodingInfo
	if encoding.IsZero() {
		encoding = GetDefaultEncodingInfo()
	}

	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create audio directory: %w", err)
	}

	path := filepath.Join(d.Dir, itemID+".wav")
	wav := EncodeWAV(pcm, encoding.SampleRate, encoding.Format.ByteSize()*8, 1)
	if err := os.WriteFile(path, wav, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	return path, nil
}
