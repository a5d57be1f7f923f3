package timeline_test

import (
	"errors"
	"math"
	"testing"

	"github.com/cognitivitydev/Chronal-sub002/pkg/rhythm"
	"github.com/cognitivitydev/Chronal-sub002/pkg/timeline"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestCompile(t *testing.T) {
	r := rhythm.MustParse("{4/4}Q;q;!q;q;")
	events, err := timeline.Compile(r, 120, timeline.Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := []timeline.Event{
		{Kind: timeline.SetTempo, StartMs: 0, EndMs: 500, BeatCount: 1, Tempo: 120, Accent: true, AtomIndex: 0},
		{Kind: timeline.SetTempo, StartMs: 500, EndMs: 1000, BeatCount: 1, Tempo: 120, AtomIndex: 1},
		{Kind: timeline.Pause, StartMs: 1000, EndMs: 1500, AtomIndex: 2},
		{Kind: timeline.SetTempo, StartMs: 1500, EndMs: 2000, BeatCount: 1, Tempo: 120, AtomIndex: 3},
	}
	if len(events) != len(want) {
		t.Fatalf("events = %d, want %d", len(events), len(want))
	}
	for i, e := range events {
		w := want[i]
		if e.Kind != w.Kind || !approx(e.StartMs, w.StartMs) || !approx(e.EndMs, w.EndMs) ||
			e.BeatCount != w.BeatCount || !approx(e.Tempo, w.Tempo) || e.Accent != w.Accent || e.AtomIndex != w.AtomIndex {
			t.Errorf("event %d = %+v, want %+v", i, e, w)
		}
	}
}

func TestCompileBeatUnit(t *testing.T) {
	tests := []struct {
		notation string
		tempo    float64
		ms       []float64
	}{
		{"{6/8}E;e;e;E;e;e;", 120, []float64{500, 500, 500, 500, 500, 500}},
		{"{2/2}H;h;", 60, []float64{1000, 1000}},
		{"{4/4}3:2[E:e:e];h.;", 120, []float64{500.0 / 3, 500.0 / 3, 500.0 / 3, 1500}},
		{"{4/4}Q.;e;h;", 100, []float64{900, 300, 1200}},
	}
	for _, tt := range tests {
		t.Run(tt.notation, func(t *testing.T) {
			events, err := timeline.Compile(rhythm.MustParse(tt.notation), tt.tempo, timeline.Options{})
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			if len(events) != len(tt.ms) {
				t.Fatalf("events = %d, want %d", len(events), len(tt.ms))
			}
			for i, e := range events {
				if !approx(e.Duration(), tt.ms[i]) {
					t.Errorf("event %d duration = %v, want %v", i, e.Duration(), tt.ms[i])
				}
				if e.Kind == timeline.SetTempo && !approx(e.BeatMs(), tt.ms[i]) {
					t.Errorf("event %d beat = %v ms, want %v", i, e.BeatMs(), tt.ms[i])
				}
			}
		})
	}
}

func TestCompileOptions(t *testing.T) {
	r := rhythm.MustParse("{4/4}Q;q;q;q;")

	events, err := timeline.Compile(r, 120, timeline.Options{LeadInMs: 250})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(events) != 5 || events[0].Kind != timeline.Pause || events[0].AtomIndex != -1 {
		t.Fatalf("lead-in events = %+v", events)
	}
	if !approx(events[1].StartMs, 250) || !approx(timeline.End(events), 2250) {
		t.Errorf("lead-in not applied: start %v end %v", events[1].StartMs, timeline.End(events))
	}

	events, err = timeline.Compile(r, 120, timeline.Options{MaxEndMs: 1200})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(events) != 3 || !approx(timeline.End(events), 1200) || !approx(events[2].Duration(), 200) {
		t.Errorf("clamped events = %+v", events)
	}

	events, err = timeline.Compile(r, 120, timeline.Options{Repeat: 3})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(events) != 12 || !approx(timeline.End(events), 6000) {
		t.Errorf("repeat: %d events ending at %v", len(events), timeline.End(events))
	}
	if !events[4].Accent || events[4].AtomIndex != 0 {
		t.Errorf("second pass should restart at atom 0: %+v", events[4])
	}
}

func TestCompileContiguous(t *testing.T) {
	r := rhythm.MustParse("{3/4}Q;3:2[E:!e:e];!q;|{7/8}Q.;e;s;s;!e;e;|{5/4}W;q;")
	events, err := timeline.Compile(r, 137, timeline.Options{LeadInMs: 33, Repeat: 2})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	prev := 0.0
	for i, e := range events {
		if !approx(e.StartMs, prev) {
			t.Fatalf("event %d starts at %v, previous ended at %v", i, e.StartMs, prev)
		}
		if e.Duration() <= 0 {
			t.Fatalf("event %d has duration %v", i, e.Duration())
		}
		prev = e.EndMs
	}
}

func TestCompileErrors(t *testing.T) {
	r := rhythm.MustParse("{4/4}Q;q;q;q;")
	for _, tempo := range []float64{0, -10, math.NaN(), 1e-300, 0.5, 1001, math.Inf(1)} {
		if _, err := timeline.Compile(r, tempo, timeline.Options{}); !errors.Is(err, timeline.ErrInvalidTempo) {
			t.Errorf("tempo %v: error = %v, want ErrInvalidTempo", tempo, err)
		}
	}

	bad, err := rhythm.Parse("{x/4}q;")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := timeline.Compile(bad, 120, timeline.Options{}); !errors.Is(err, timeline.ErrEmptySegment) {
		t.Errorf("error = %v, want ErrEmptySegment", err)
	}
}

func TestCompilePattern(t *testing.T) {
	events, err := timeline.CompilePattern(timeline.Pattern{Tempo: 120, BeatsPerBar: 4, Bars: 2}, timeline.Options{})
	if err != nil {
		t.Fatalf("CompilePattern: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("events = %d, want 4", len(events))
	}
	if !events[0].Accent || events[0].BeatCount != 1 || !approx(events[0].EndMs, 500) {
		t.Errorf("downbeat = %+v", events[0])
	}
	if events[1].Accent || events[1].BeatCount != 3 || !approx(events[1].EndMs, 2000) {
		t.Errorf("bar body = %+v", events[1])
	}
	if !approx(timeline.End(events), 4000) {
		t.Errorf("end = %v, want 4000", timeline.End(events))
	}

	single, err := timeline.CompilePattern(timeline.Pattern{Tempo: 60, BeatsPerBar: 1, Bars: 3}, timeline.Options{})
	if err != nil {
		t.Fatalf("CompilePattern: %v", err)
	}
	if len(single) != 3 {
		t.Errorf("events = %d, want 3", len(single))
	}

	if _, err := timeline.CompilePattern(timeline.Pattern{Tempo: 120}, timeline.Options{}); !errors.Is(err, timeline.ErrEmptySegment) {
		t.Errorf("error = %v, want ErrEmptySegment", err)
	}
}

func TestCompileRejectsDurations(t *testing.T) {
	r := rhythm.MustParse("{4/4}Q;q;q;q;")
	tests := []struct {
		name string
		opts timeline.Options
		want error
	}{
		{"NaN lead-in", timeline.Options{LeadInMs: math.NaN()}, timeline.ErrInvalidDuration},
		{"infinite lead-in", timeline.Options{LeadInMs: math.Inf(1)}, timeline.ErrInvalidDuration},
		{"negative lead-in", timeline.Options{LeadInMs: -1}, timeline.ErrInvalidDuration},
		{"huge lead-in", timeline.Options{LeadInMs: 1e13}, timeline.ErrTooLong},
		{"NaN max end", timeline.Options{MaxEndMs: math.NaN()}, timeline.ErrInvalidDuration},
		{"infinite max end", timeline.Options{MaxEndMs: math.Inf(1)}, timeline.ErrInvalidDuration},
		{"negative max end", timeline.Options{MaxEndMs: -5}, timeline.ErrInvalidDuration},
		{"render limit above ceiling", timeline.Options{MaxRenderMs: timeline.DefaultMaxRenderMs + 1}, timeline.ErrInvalidDuration},
		{"NaN render limit", timeline.Options{MaxRenderMs: math.NaN()}, timeline.ErrInvalidDuration},
		{"repeat past the limit", timeline.Options{Repeat: 1 << 30}, timeline.ErrTooLong},
		{"explicit limit", timeline.Options{MaxRenderMs: 1500}, timeline.ErrTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := timeline.Compile(r, 120, tt.opts); !errors.Is(err, tt.want) {
				t.Errorf("Compile error = %v, want %v", err, tt.want)
			}
			p := timeline.Pattern{Tempo: 120, BeatsPerBar: 4, Bars: 1}
			if _, err := timeline.CompilePattern(p, tt.opts); !errors.Is(err, tt.want) {
				t.Errorf("CompilePattern error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCompileLimitAllowsClampedRepeat(t *testing.T) {
	r := rhythm.MustParse("{4/4}Q;q;q;q;")
	events, err := timeline.Compile(r, 120, timeline.Options{Repeat: 1 << 30, MaxEndMs: 3000})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !approx(timeline.End(events), 3000) {
		t.Errorf("end = %v, want 3000", timeline.End(events))
	}
}

func TestCompileEmptyRhythmRepeat(t *testing.T) {
	events, err := timeline.Compile(rhythm.Rhythm{}, 120, timeline.Options{LeadInMs: 100, Repeat: 1 << 40})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(events) != 1 || events[0].Kind != timeline.Pause {
		t.Errorf("events = %+v, want the lead-in only", events)
	}
}

func TestParsePattern(t *testing.T) {
	p, err := timeline.ParsePattern("3x4", 90)
	if err != nil {
		t.Fatalf("ParsePattern: %v", err)
	}
	if p != (timeline.Pattern{Tempo: 90, BeatsPerBar: 3, Bars: 4}) {
		t.Errorf("pattern = %+v", p)
	}
	for _, s := range []string{"", "4", "4x", "x8", "4x8x", "4x0", "0x4", "4 x 8"} {
		if _, err := timeline.ParsePattern(s, 120); err == nil {
			t.Errorf("ParsePattern(%q) succeeded", s)
		}
	}
}
