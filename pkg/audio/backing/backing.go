// Package backing decodes backing tracks into working-format samples that
// the live engine mixes under the click.
package backing

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"

	"github.com/cognitivitydev/Chronal-sub002/pkg/audio/pcm"
	"github.com/cognitivitydev/Chronal-sub002/pkg/audio/resampler"
)

// Kind is the container format of a backing track.
type Kind int

const (
	// MP3 is an MPEG-1/2 Layer III stream.
	MP3 Kind = iota + 1
	// WAV is a RIFF/WAVE file with integer PCM samples.
	WAV
)

// String returns the file extension of the kind, without the dot.
func (k Kind) String() string {
	switch k {
	case MP3:
		return "mp3"
	case WAV:
		return "wav"
	}
	return "unknown"
}

// ErrUnsupported is returned for files that are neither mp3 nor wav.
var ErrUnsupported = errors.New("backing: unsupported format")

// KindFromPath returns the kind matching the file extension of path.
func KindFromPath(path string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return MP3, nil
	case ".wav", ".wave":
		return WAV, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupported, path)
}

// Track is a decoded backing track.
type Track struct {
	// Samples are mono samples in the working format.
	Samples []float32
	// SourceRate and SourceChannels describe the decoded file.
	SourceRate     int
	SourceChannels int
}

// Duration returns the playing time of the track.
func (t *Track) Duration() time.Duration {
	return pcm.Working.Duration(int64(len(t.Samples)) * 2)
}

// Open decodes the backing track at path.
func Open(path string, q resampler.Quality) (*Track, error) {
	kind, err := KindFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := Decode(f, kind, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	slog.Debug("backing track decoded",
		"path", path,
		"rate", t.SourceRate,
		"channels", t.SourceChannels,
		"duration", t.Duration(),
	)
	return t, nil
}

// Decode reads a backing track of the given kind from r, downmixes it to
// mono and resamples it to the working rate.
func Decode(r io.ReadSeeker, kind Kind, q resampler.Quality) (*Track, error) {
	var (
		samples  []float32
		rate     int
		channels int
		err      error
	)
	switch kind {
	case MP3:
		samples, rate, channels, err = decodeMP3(r)
	case WAV:
		samples, rate, channels, err = decodeWAV(r)
	default:
		return nil, fmt.Errorf("%w: kind %d", ErrUnsupported, kind)
	}
	if err != nil {
		return nil, err
	}
	mono := resampler.Downmix(samples, channels)
	out, err := resampler.Resample(mono, rate, pcm.Working.SampleRate(), q)
	if err != nil {
		return nil, err
	}
	return &Track{Samples: out, SourceRate: rate, SourceChannels: channels}, nil
}

// decodeMP3 returns interleaved stereo samples; go-mp3 always outputs
// 16-bit little-endian stereo.
func decodeMP3(r io.Reader) ([]float32, int, int, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("backing: mp3: %w", err)
	}
	var data []byte
	if n := dec.Length(); n > 0 {
		data = make([]byte, 0, n)
	}
	buf := make([]byte, 32*1024)
	for {
		n, err := dec.Read(buf)
		data = append(data, buf[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, 0, fmt.Errorf("backing: mp3: %w", err)
		}
	}
	return pcm.DecodePCM16(data), dec.SampleRate(), 2, nil
}

func decodeWAV(r io.ReadSeeker) ([]float32, int, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, 0, fmt.Errorf("%w: not a PCM wav file", ErrUnsupported)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("backing: wav: %w", err)
	}
	depth := int(dec.BitDepth)
	if depth == 0 || buf.Format == nil {
		return nil, 0, 0, fmt.Errorf("%w: missing wav format", ErrUnsupported)
	}
	scale := float32(int64(1) << (depth - 1))
	out := make([]float32, len(buf.Data))
	for i, s := range buf.Data {
		out[i] = float32(s) / scale
	}
	return out, buf.Format.SampleRate, buf.Format.NumChannels, nil
}
