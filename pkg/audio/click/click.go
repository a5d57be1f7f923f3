// Package click renders a compiled timeline into a PCM click track.
//
// Every SetTempo segment gets the click waveform stamped at each beat, with
// the waveform cut off at the end of the segment. Pause segments are
// silence. Sample positions come from cumulative millisecond boundaries, so
// long timelines do not drift against a backing track.
package click

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/cognitivitydev/Chronal-sub002/pkg/audio/pcm"
	"github.com/cognitivitydev/Chronal-sub002/pkg/audio/resampler"
	"github.com/cognitivitydev/Chronal-sub002/pkg/audio/wav"
	"github.com/cognitivitydev/Chronal-sub002/pkg/timeline"
)

// Default click pitches: high for accents, low for other beats.
const (
	AccentFreq = 1200
	ClickFreq  = 800
	ClickMs    = 30
)

// Renderer stamps click samples onto a timeline.
type Renderer struct {
	// Click is stamped on unaccented beats.
	Click []float32
	// Accent is stamped on accented beats. Nil uses Click.
	Accent []float32
	// Format is the output format. The zero value is the working format.
	Format pcm.Format
}

// NewRenderer returns a renderer in the working format with the given
// clicks. Nil clicks are replaced by DefaultClick and DefaultAccent.
func NewRenderer(click, accent []float32) *Renderer {
	if click == nil {
		click = DefaultClick()
	}
	if accent == nil {
		accent = DefaultAccent()
	}
	return &Renderer{Click: click, Accent: accent, Format: pcm.Working}
}

// Len returns the number of samples Render produces for events.
func (r *Renderer) Len(events []timeline.Event) int {
	return r.Format.SampleAtMs(timeline.End(events))
}

// Render renders events into one float buffer. It fails with
// timeline.ErrTooLong when events end after timeline.DefaultMaxRenderMs.
func (r *Renderer) Render(events []timeline.Event) ([]float32, error) {
	if err := checkEvents(events); err != nil {
		return nil, err
	}
	out := make([]float32, r.Len(events))
	if err := r.RenderInto(out, events); err != nil {
		return nil, err
	}
	return out, nil
}

// RenderInto renders events into out, which must hold Len(events) samples.
func (r *Renderer) RenderInto(out []float32, events []timeline.Event) error {
	if err := checkEvents(events); err != nil {
		return err
	}
	if want := r.Len(events); len(out) < want {
		return fmt.Errorf("click: buffer holds %d samples, need %d", len(out), want)
	}
	for i, e := range events {
		if !(e.Duration() > 0) {
			return fmt.Errorf("%w: event %d", timeline.ErrEmptySegment, i)
		}
		start := r.Format.SampleAtMs(e.StartMs)
		end := r.Format.SampleAtMs(e.EndMs)
		seg := out[start:end]
		clear(seg)
		if e.Kind == timeline.Pause {
			continue
		}
		if !(e.Tempo > 0) {
			return fmt.Errorf("%w: event %d", timeline.ErrInvalidTempo, i)
		}
		wave := r.Click
		if e.Accent && r.Accent != nil {
			wave = r.Accent
		}
		beatMs := e.BeatMs()
		for k := 0; k < e.BeatCount; k++ {
			at := r.Format.SampleAtMs(e.StartMs+float64(k)*beatMs) - start
			if at >= len(seg) {
				break
			}
			copy(seg[at:], wave)
		}
	}
	return nil
}

// checkEvents rejects event lists whose sample range cannot be allocated
// or indexed.
func checkEvents(events []timeline.Event) error {
	end := timeline.End(events)
	if !(end >= 0) || end > timeline.DefaultMaxRenderMs {
		return fmt.Errorf("%w: ends at %v ms", timeline.ErrTooLong, end)
	}
	prev := 0.0
	for i, e := range events {
		if !(e.StartMs >= prev) || !(e.EndMs <= end) {
			return fmt.Errorf("%w: event %d spans %v to %v ms", timeline.ErrInvalidDuration, i, e.StartMs, e.EndMs)
		}
		prev = e.StartMs
	}
	return nil
}

// RenderPCM16 renders events as clamped 16-bit little-endian samples.
func (r *Renderer) RenderPCM16(events []timeline.Event) ([]byte, error) {
	samples, err := r.Render(events)
	if err != nil {
		return nil, err
	}
	return pcm.EncodePCM16(samples), nil
}

// WriteWAV renders events and writes them to ws as a WAV file.
func (r *Renderer) WriteWAV(ws io.WriteSeeker, events []timeline.Event) error {
	samples, err := r.Render(events)
	if err != nil {
		return err
	}
	w := wav.NewWriter(ws, r.Format)
	if err := w.Write(samples); err != nil {
		return err
	}
	return w.Close()
}

// Synthesize returns a decaying sine burst, used as the click when no asset
// is configured.
func Synthesize(freq float64, ms int, rate int) []float32 {
	n := rate * ms / 1000
	out := make([]float32, n)
	for i := range out {
		t := float64(i) / float64(rate)
		env := math.Exp(-t * 1000 / float64(ms) * 5)
		out[i] = float32(0.8 * env * math.Sin(2*math.Pi*freq*t))
	}
	return out
}

// DefaultClick returns the built-in unaccented click.
func DefaultClick() []float32 {
	return Synthesize(ClickFreq, ClickMs, pcm.Working.SampleRate())
}

// DefaultAccent returns the built-in accented click.
func DefaultAccent() []float32 {
	return Synthesize(AccentFreq, ClickMs, pcm.Working.SampleRate())
}

// ErrEmptyClip is returned for a click asset without samples.
var ErrEmptyClip = errors.New("click: asset has no samples")

// Load reads a click asset from a 16-bit PCM WAV file and converts it to
// the working format.
func Load(path string, q resampler.Quality) ([]float32, error) {
	clip, err := wav.ReadClip(path)
	if err != nil {
		return nil, err
	}
	return fromClip(clip, q)
}

// Decode converts an in-memory WAV click asset to the working format.
func Decode(buf []byte, q resampler.Quality) ([]float32, error) {
	clip, err := wav.DecodeClip(buf)
	if err != nil {
		return nil, err
	}
	return fromClip(clip, q)
}

func fromClip(clip *wav.Clip, q resampler.Quality) ([]float32, error) {
	mono := resampler.Downmix(clip.Samples, clip.Channels)
	if len(mono) == 0 {
		return nil, ErrEmptyClip
	}
	return resampler.Resample(mono, clip.SampleRate, pcm.Working.SampleRate(), q)
}
