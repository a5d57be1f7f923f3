package wav

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/cognitivitydev/Chronal-sub002/pkg/audio/pcm"
)

// HeaderSize is the size of the canonical PCM WAV header.
const HeaderSize = 44

// Writer streams float samples into a mono 16-bit PCM WAV file.
type Writer struct {
	enc     *wav.Encoder
	buf     audio.IntBuffer
	frames  int
	started bool
	closed  bool
}

// NewWriter starts a WAV stream on ws with the given format. The header is
// written on the first Write or on Close.
func NewWriter(ws io.WriteSeeker, f pcm.Format) *Writer {
	return &Writer{
		enc: wav.NewEncoder(ws, f.SampleRate(), f.Depth(), f.Channels(), 1),
		buf: audio.IntBuffer{
			Format:         &audio.Format{NumChannels: f.Channels(), SampleRate: f.SampleRate()},
			SourceBitDepth: f.Depth(),
		},
	}
}

// Write clamps, quantizes and appends samples.
func (w *Writer) Write(samples []float32) error {
	if w.closed {
		return errors.New("wav: write after close")
	}
	if len(samples) == 0 && w.started {
		return nil
	}
	if cap(w.buf.Data) < len(samples) {
		w.buf.Data = make([]int, len(samples))
	}
	w.buf.Data = w.buf.Data[:len(samples)]
	for i, s := range samples {
		w.buf.Data[i] = int(pcm.Quantize(s))
	}
	if err := w.enc.Write(&w.buf); err != nil {
		return fmt.Errorf("wav: write samples: %w", err)
	}
	w.started = true
	w.frames += len(samples)
	return nil
}

// Frames returns the number of samples written so far.
func (w *Writer) Frames() int {
	return w.frames
}

// Close patches the header sizes. It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	if !w.started {
		if err := w.Write(nil); err != nil {
			return err
		}
	}
	w.closed = true
	if err := w.enc.Close(); err != nil {
		return fmt.Errorf("wav: finalize header: %w", err)
	}
	return nil
}

// Write writes samples to ws as a complete WAV file in the working format.
func Write(ws io.WriteSeeker, samples []float32) error {
	w := NewWriter(ws, pcm.Working)
	if err := w.Write(samples); err != nil {
		return err
	}
	return w.Close()
}

// Encode returns samples as an in-memory WAV file in the working format.
func Encode(samples []float32) ([]byte, error) {
	var b Buffer
	if err := Write(&b, samples); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// WriteFile writes samples to path as a WAV file in the working format.
func WriteFile(path string, samples []float32) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return Write(f, samples)
}
