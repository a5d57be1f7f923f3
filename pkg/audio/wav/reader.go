package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-audio/wav"

	"github.com/cognitivitydev/Chronal-sub002/pkg/audio/pcm"
)

var (
	// ErrNoDataChunk is returned when a buffer has no "data" marker.
	ErrNoDataChunk = errors.New("wav: no data chunk")

	// ErrTruncated is returned when the declared data size runs past the
	// end of the buffer.
	ErrTruncated = errors.New("wav: data chunk truncated")

	// ErrFormat is returned for sample data that is not 16-bit PCM or whose
	// length is not a whole number of samples.
	ErrFormat = errors.New("wav: unsupported sample format")
)

var dataMarker = []byte("data")

// DataChunk returns the payload of the first "data" chunk in buf.
func DataChunk(buf []byte) ([]byte, error) {
	i := bytes.Index(buf, dataMarker)
	if i < 0 {
		return nil, ErrNoDataChunk
	}
	start := i + len(dataMarker) + 4
	if start > len(buf) {
		return nil, fmt.Errorf("%w: size field missing", ErrTruncated)
	}
	size := binary.LittleEndian.Uint32(buf[i+len(dataMarker):])
	if uint64(size) > uint64(len(buf)-start) {
		return nil, fmt.Errorf("%w: declares %d bytes, %d available", ErrTruncated, size, len(buf)-start)
	}
	return buf[start : start+int(size)], nil
}

// PCM16 returns the data chunk of buf as 16-bit samples scaled to [-1, 1).
func PCM16(buf []byte) ([]float32, error) {
	data, err := DataChunk(buf)
	if err != nil {
		return nil, err
	}
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("%w: odd data length %d", ErrFormat, len(data))
	}
	return pcm.DecodePCM16(data), nil
}

// Float32 returns the data chunk of buf as little-endian IEEE float samples.
func Float32(buf []byte) ([]float32, error) {
	data, err := DataChunk(buf)
	if err != nil {
		return nil, err
	}
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: data length %d is not a multiple of 4", ErrFormat, len(data))
	}
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out, nil
}

// Clip is a decoded mono click asset or interleaved audio clip.
type Clip struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Frames returns the number of sample frames in the clip.
func (c *Clip) Frames() int {
	if c.Channels <= 1 {
		return len(c.Samples)
	}
	return len(c.Samples) / c.Channels
}

// DecodeClip decodes a 16-bit PCM WAV file. The format is taken from the
// header when it parses; otherwise the data chunk is read as working-format
// mono samples.
func DecodeClip(buf []byte) (*Clip, error) {
	clip := &Clip{SampleRate: pcm.Working.SampleRate(), Channels: 1}

	dec := wav.NewDecoder(bytes.NewReader(buf))
	if dec.IsValidFile() {
		if dec.WavAudioFormat != 1 || dec.BitDepth != 16 {
			return nil, fmt.Errorf("%w: format %d, %d bits", ErrFormat, dec.WavAudioFormat, dec.BitDepth)
		}
		clip.SampleRate = int(dec.SampleRate)
		clip.Channels = int(dec.NumChans)
	}

	samples, err := PCM16(buf)
	if err != nil {
		return nil, err
	}
	clip.Samples = samples
	return clip, nil
}

// ReadClip reads and decodes the WAV file at path.
func ReadClip(path string) (*Clip, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	clip, err := DecodeClip(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return clip, nil
}
