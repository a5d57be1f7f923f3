// Package render turns a rhythm into a finished WAV file: compile the
// timeline, stamp the clicks, mix an optional backing track and encode.
// Click-only renders are cached by content in a storage.RenderStore.
package render

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/cognitivitydev/Chronal-sub002/pkg/audio/click"
	"github.com/cognitivitydev/Chronal-sub002/pkg/audio/pcm"
	"github.com/cognitivitydev/Chronal-sub002/pkg/audio/wav"
	"github.com/cognitivitydev/Chronal-sub002/pkg/rhythm"
	"github.com/cognitivitydev/Chronal-sub002/pkg/storage"
	"github.com/cognitivitydev/Chronal-sub002/pkg/timeline"
)

// Job describes one render.
type Job struct {
	Rhythm  rhythm.Rhythm
	Tempo   float64
	Options timeline.Options

	// Pattern replaces Rhythm and Tempo with a plain metronome when set.
	Pattern *timeline.Pattern

	// Backing is mixed under the clicks when set. The output is as long as
	// the longer of the two. Zero gains mean unity.
	Backing     []float32
	ClickGain   float32
	BackingGain float32
}

// Result is a finished render.
type Result struct {
	WAV     []byte
	Events  []timeline.Event
	Samples int
	// Cached is true when WAV came from the render store.
	Cached bool
	// Key is the render store name, empty when the job was not cacheable.
	Key string
}

// Service renders jobs with a fixed click voice.
type Service struct {
	Clicks *click.Renderer

	// Voice identifies the click sounds in cache keys. Renders with
	// different click samples must use different voices.
	Voice string

	// Cache is optional.
	Cache storage.RenderStore

	Log *slog.Logger
}

// NewService returns a service with the default clicks and no cache.
func NewService() *Service {
	return &Service{Clicks: click.NewRenderer(nil, nil), Voice: "default", Log: slog.Default()}
}

// VoiceID identifies a pair of click sounds by content, for Service.Voice.
func VoiceID(clicks, accent []float32) string {
	h := sha256.New()
	h.Write(pcm.EncodePCM16(clicks))
	h.Write([]byte{0})
	h.Write(pcm.EncodePCM16(accent))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func (s *Service) log() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

// Samples compiles and renders job into working-format samples.
func (s *Service) Samples(job Job) ([]float32, []timeline.Event, error) {
	events, err := job.compile()
	if err != nil {
		return nil, nil, err
	}
	out, err := s.Clicks.Render(events)
	if err != nil {
		return nil, nil, err
	}
	if job.Backing != nil {
		out = Mix(out, job.Backing, gainOr(job.ClickGain), gainOr(job.BackingGain))
	} else if g := gainOr(job.ClickGain); g != 1 {
		for i := range out {
			out[i] *= g
		}
	}
	return out, events, nil
}

// Key returns the cache name for job, or "" when job is not cacheable.
func (s *Service) Key(job Job) string {
	if s.Cache == nil || job.Backing != nil {
		return ""
	}
	o := job.Options
	source, tempo := job.Rhythm.String(), job.Tempo
	if p := job.Pattern; p != nil {
		source = fmt.Sprintf("pattern:%dx%d", p.BeatsPerBar, p.Bars)
		tempo = p.Tempo
	}
	return storage.RenderKey(s.Voice+"\x00"+source,
		tempo, o.LeadInMs, o.MaxEndMs, float64(o.Repeat),
		float64(gainOr(job.ClickGain)), float64(s.Clicks.Format.SampleRate()))
}

// Validate reports a tempo or timeline option that Samples would reject,
// without rendering anything.
func (job Job) Validate() error {
	tempo := job.Tempo
	if job.Pattern != nil {
		tempo = job.Pattern.Tempo
	}
	if err := timeline.CheckTempo(tempo); err != nil {
		return err
	}
	return job.Options.Validate()
}

func (job Job) compile() ([]timeline.Event, error) {
	if job.Pattern != nil {
		return timeline.CompilePattern(*job.Pattern, job.Options)
	}
	return timeline.Compile(job.Rhythm, job.Tempo, job.Options)
}

// WAV renders job to a WAV file, serving it from the cache when possible.
// Cache failures are logged and the job is rendered anyway.
func (s *Service) WAV(ctx context.Context, job Job) (*Result, error) {
	key := s.Key(job)
	if key != "" {
		data, err := storage.ReadAll(ctx, s.Cache, key)
		switch {
		case err == nil:
			s.log().Debug("render cache hit", "key", key)
			return &Result{WAV: data, Samples: (len(data) - wav.HeaderSize) / 2, Cached: true, Key: key}, nil
		case !errors.Is(err, os.ErrNotExist):
			s.log().Warn("render cache read failed", "key", key, "error", err)
		}
	}

	samples, events, err := s.Samples(job)
	if err != nil {
		return nil, err
	}
	var buf wav.Buffer
	w := wav.NewWriter(&buf, s.Clicks.Format)
	if err := w.Write(samples); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	res := &Result{WAV: bytes.Clone(buf.Bytes()), Events: events, Samples: len(samples), Key: key}

	if key != "" {
		if err := s.Cache.Put(ctx, key, res.WAV); err != nil {
			s.log().Warn("render cache write failed", "key", key, "error", err)
		} else {
			s.log().Debug("render cached", "key", key, "bytes", len(res.WAV))
		}
	}
	return res, nil
}

// Mix adds click and backing with their gains into a new buffer as long as
// the longer input. Only the sum is clamped.
func Mix(clicks, backing []float32, clickGain, backingGain float32) []float32 {
	out := make([]float32, max(len(clicks), len(backing)))
	pcm.AddInto(out, clicks, clickGain)
	pcm.AddInto(out, backing, backingGain)
	pcm.ClampAll(out)
	return out
}

// gainOr treats the zero value as unity gain.
func gainOr(g float32) float32 {
	if g == 0 {
		return 1
	}
	return g
}

// Describe summarizes events for logs and CLI output.
func Describe(events []timeline.Event) string {
	beats := 0
	for _, e := range events {
		if e.Kind == timeline.SetTempo {
			beats += e.BeatCount
		}
	}
	return fmt.Sprintf("%d segments, %d clicks, %.0f ms", len(events), beats, timeline.End(events))
}
