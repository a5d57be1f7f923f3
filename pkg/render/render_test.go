package render_test

import (
	"context"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/cognitivitydev/Chronal-sub002/pkg/audio/click"
	"github.com/cognitivitydev/Chronal-sub002/pkg/audio/wav"
	"github.com/cognitivitydev/Chronal-sub002/pkg/render"
	"github.com/cognitivitydev/Chronal-sub002/pkg/rhythm"
	"github.com/cognitivitydev/Chronal-sub002/pkg/storage"
	"github.com/cognitivitydev/Chronal-sub002/pkg/timeline"
)

func TestSamples(t *testing.T) {
	s := render.NewService()
	job := render.Job{Rhythm: rhythm.MustParse("{4/4}Q;q;q;q;"), Tempo: 120}
	out, events, err := s.Samples(job)
	if err != nil {
		t.Fatalf("Samples: %v", err)
	}
	if len(events) != 4 {
		t.Errorf("events = %d, want 4", len(events))
	}
	// 2 s at 48 kHz.
	if len(out) != 96000 {
		t.Errorf("samples = %d, want 96000", len(out))
	}
	if out[0] != 0 || out[1] == 0 {
		t.Errorf("first click missing: %v %v", out[0], out[1])
	}
}

func TestSamplesInvalidTempo(t *testing.T) {
	s := render.NewService()
	_, _, err := s.Samples(render.Job{Rhythm: rhythm.MustParse("{4/4}W;"), Tempo: 0})
	if !errors.Is(err, timeline.ErrInvalidTempo) {
		t.Errorf("error = %v, want ErrInvalidTempo", err)
	}
}

func TestMix(t *testing.T) {
	out := render.Mix([]float32{0.5, 0.5}, []float32{0.25, 0.25, 0.25, 0.9}, 1, 0.5)
	want := []float32{0.625, 0.625, 0.125, 0.45}
	if len(out) != len(want) {
		t.Fatalf("len = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if d := out[i] - want[i]; d > 1e-6 || d < -1e-6 {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
	if clipped := render.Mix([]float32{0.9}, []float32{0.9}, 1, 1); clipped[0] != 1 {
		t.Errorf("mix not clamped: %v", clipped[0])
	}
	// Resampled clicks can overshoot; the overshoot is summed with the
	// backing before the clamp.
	if sum := render.Mix([]float32{1.5}, []float32{-0.6}, 1, 1); math.Abs(float64(sum[0])-0.9) > 1e-6 {
		t.Errorf("Mix(1.5, -0.6) = %v, want 0.9", sum[0])
	}
}

func TestWAVCaches(t *testing.T) {
	ctx := context.Background()
	cache, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s := render.NewService()
	s.Cache = cache
	job := render.Job{Rhythm: rhythm.MustParse("{3/4}Q;q;q;"), Tempo: 90, Options: timeline.Options{LeadInMs: 100}}

	first, err := s.WAV(ctx, job)
	if err != nil {
		t.Fatalf("WAV: %v", err)
	}
	if first.Cached || first.Key == "" {
		t.Fatalf("first render: cached=%v key=%q", first.Cached, first.Key)
	}
	if ok, _ := cache.Exists(ctx, first.Key); !ok {
		t.Fatal("render not stored")
	}

	second, err := s.WAV(ctx, job)
	if err != nil {
		t.Fatalf("WAV again: %v", err)
	}
	if !second.Cached || second.Key != first.Key {
		t.Errorf("second render: cached=%v key=%q", second.Cached, second.Key)
	}
	if string(second.WAV) != string(first.WAV) || second.Samples != first.Samples {
		t.Error("cached render differs")
	}

	job.Tempo = 100
	if k := s.Key(job); k == first.Key {
		t.Error("tempo change kept the cache key")
	}
}

func TestWAVBackingSkipsCache(t *testing.T) {
	cache, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s := render.NewService()
	s.Cache = cache
	backing := make([]float32, 200000)
	res, err := s.WAV(context.Background(), render.Job{
		Rhythm:  rhythm.MustParse("{4/4}W;"),
		Tempo:   120,
		Backing: backing,
	})
	if err != nil {
		t.Fatalf("WAV: %v", err)
	}
	if res.Key != "" || res.Cached {
		t.Errorf("backing render used the cache: %+v", res.Key)
	}
	if res.Samples != len(backing) {
		t.Errorf("samples = %d, want %d", res.Samples, len(backing))
	}
	pcm, err := wav.PCM16(res.WAV)
	if err != nil {
		t.Fatalf("PCM16: %v", err)
	}
	if len(pcm) != len(backing) {
		t.Errorf("decoded = %d samples", len(pcm))
	}
}

// brokenStore fails every call.
type brokenStore struct{}

func (brokenStore) Put(context.Context, string, []byte) error { return errors.New("disk full") }
func (brokenStore) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("io error")
}
func (brokenStore) Exists(context.Context, string) (bool, error) { return false, nil }
func (brokenStore) Delete(context.Context, string) error         { return nil }

func TestWAVCacheFailureStillRenders(t *testing.T) {
	s := render.NewService()
	s.Cache = brokenStore{}
	res, err := s.WAV(context.Background(), render.Job{Rhythm: rhythm.MustParse("{2/4}Q;q;"), Tempo: 120})
	if err != nil {
		t.Fatalf("WAV: %v", err)
	}
	if res.Cached || len(res.WAV) <= wav.HeaderSize {
		t.Errorf("result = cached %v, %d bytes", res.Cached, len(res.WAV))
	}
}

func TestWAVWithoutCacheMatchesSamples(t *testing.T) {
	s := &render.Service{Clicks: click.NewRenderer(nil, nil)}
	job := render.Job{Rhythm: rhythm.MustParse("{4/4}Q;!q;h;"), Tempo: 60}
	res, err := s.WAV(context.Background(), job)
	if err != nil {
		t.Fatalf("WAV: %v", err)
	}
	samples, _, _ := s.Samples(job)
	if res.Samples != len(samples) {
		t.Errorf("samples = %d, want %d", res.Samples, len(samples))
	}
	if len(res.WAV) != wav.HeaderSize+2*len(samples) {
		t.Errorf("WAV bytes = %d", len(res.WAV))
	}
}

func TestDescribe(t *testing.T) {
	events, err := timeline.Compile(rhythm.MustParse("{4/4}Q;!q;h;"), 120, timeline.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got := render.Describe(events); got != "3 segments, 2 clicks, 2000 ms" {
		t.Errorf("Describe = %q", got)
	}
}

func TestPatternJob(t *testing.T) {
	ctx := context.Background()
	cache, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s := render.NewService()
	s.Cache = cache
	job := render.Job{Pattern: &timeline.Pattern{Tempo: 120, BeatsPerBar: 4, Bars: 2}}

	res, err := s.WAV(ctx, job)
	if err != nil {
		t.Fatalf("WAV: %v", err)
	}
	if res.Samples != 192000 {
		t.Errorf("samples = %d, want 192000", res.Samples)
	}
	if got := render.Describe(res.Events); got != "4 segments, 8 clicks, 4000 ms" {
		t.Errorf("Describe = %q", got)
	}

	other := job
	other.Pattern = &timeline.Pattern{Tempo: 120, BeatsPerBar: 2, Bars: 4}
	if s.Key(other) == res.Key {
		t.Error("different pattern kept the cache key")
	}
	other.Pattern = &timeline.Pattern{Tempo: 90, BeatsPerBar: 4, Bars: 2}
	if s.Key(other) == res.Key {
		t.Error("pattern tempo change kept the cache key")
	}

	job.Pattern = &timeline.Pattern{Tempo: 120, BeatsPerBar: 0, Bars: 2}
	if _, err := s.WAV(ctx, job); !errors.Is(err, timeline.ErrEmptySegment) {
		t.Errorf("empty pattern error = %v, want ErrEmptySegment", err)
	}
}

func TestVoiceID(t *testing.T) {
	a := render.VoiceID([]float32{0.5, -0.5}, nil)
	if a != render.VoiceID([]float32{0.5, -0.5}, nil) {
		t.Error("VoiceID is not stable")
	}
	for _, other := range []string{
		render.VoiceID([]float32{0.5, -0.25}, nil),
		render.VoiceID([]float32{0.5}, []float32{-0.5}),
		render.VoiceID(nil, []float32{0.5, -0.5}),
	} {
		if other == a {
			t.Errorf("different clicks share voice %s", a)
		}
	}
}

func TestJobValidate(t *testing.T) {
	tests := []struct {
		name string
		job  render.Job
		want error
	}{
		{"ok", render.Job{Tempo: 120}, nil},
		{"tiny tempo", render.Job{Tempo: 1e-300}, timeline.ErrInvalidTempo},
		{"NaN lead-in", render.Job{Tempo: 120, Options: timeline.Options{LeadInMs: math.NaN()}}, timeline.ErrInvalidDuration},
		{"pattern tempo", render.Job{Tempo: 120, Pattern: &timeline.Pattern{Tempo: 0, BeatsPerBar: 4, Bars: 1}}, timeline.ErrInvalidTempo},
		{"pattern ignores job tempo", render.Job{Pattern: &timeline.Pattern{Tempo: 90, BeatsPerBar: 4, Bars: 1}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.job.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}
