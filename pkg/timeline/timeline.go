// Package timeline compiles a rhythm into the segment list consumed by the
// click renderer.
//
// Each note becomes a SetTempo segment holding exactly one beat, with the
// tempo chosen so that the beat lasts as long as the note. Each rest becomes
// a Pause of the same length. The beat unit is the measure's denominator, so
// a quarter note in 4/4 at 120 BPM lasts 500 ms and an eighth note in 6/8 at
// 120 BPM also lasts 500 ms.
package timeline

import (
	"errors"
	"fmt"
	"math"

	"github.com/cognitivitydev/Chronal-sub002/pkg/rhythm"
)

// Accepted tempo range in beats per minute.
const (
	MinTempo = 1
	MaxTempo = 1000
)

// DefaultMaxRenderMs is the longest timeline Compile produces when
// Options.MaxRenderMs is zero, and the largest value it accepts.
const DefaultMaxRenderMs = 20 * 60 * 1000

var (
	// ErrInvalidTempo is returned for a tempo outside [MinTempo, MaxTempo].
	ErrInvalidTempo = errors.New("timeline: tempo out of range")

	// ErrInvalidDuration is returned for a negative or non-finite option
	// or segment length.
	ErrInvalidDuration = errors.New("timeline: invalid duration")

	// ErrTooLong is returned when a timeline would end after the render
	// limit.
	ErrTooLong = errors.New("timeline: timeline too long")

	// ErrEmptySegment is returned when an atom would produce a segment of
	// zero or negative length, typically because its measure has an invalid
	// time signature.
	ErrEmptySegment = errors.New("timeline: segment duration must be positive")
)

// Kind is the kind of a timeline event.
type Kind int

const (
	// SetTempo plays BeatCount clicks at Tempo beats per minute.
	SetTempo Kind = iota
	// Pause is silence.
	Pause
)

// String returns "tempo" or "pause".
func (k Kind) String() string {
	if k == Pause {
		return "pause"
	}
	return "tempo"
}

// Event is one segment of a compiled timeline. Times are in milliseconds
// from the start of playback.
type Event struct {
	Kind      Kind
	StartMs   float64
	EndMs     float64
	BeatCount int
	Tempo     float64
	// Accent selects the accent click for every beat of the segment.
	Accent bool
	// AtomIndex is the global atom index that produced the event, or -1 for
	// lead-in pauses and pattern segments.
	AtomIndex int
}

// Duration returns the length of the event in milliseconds.
func (e Event) Duration() float64 {
	return e.EndMs - e.StartMs
}

// BeatMs returns the interval between clicks of a SetTempo event.
func (e Event) BeatMs() float64 {
	return 60000 / e.Tempo
}

// Options control compilation.
type Options struct {
	// LeadInMs inserts a leading Pause, used to line the metronome up with
	// a backing track.
	LeadInMs float64
	// MaxEndMs clamps the timeline. Events starting at or after it are
	// dropped and the last event is cut short. Zero means no limit.
	MaxEndMs float64
	// Repeat plays the rhythm this many times. Zero and one both mean once.
	Repeat int
	// MaxRenderMs fails compilation when the timeline would run past it.
	// Zero means DefaultMaxRenderMs.
	MaxRenderMs float64
}

// Validate checks that every duration option is finite and in range.
func (o Options) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"lead-in", o.LeadInMs},
		{"max end", o.MaxEndMs},
		{"max render", o.MaxRenderMs},
	} {
		if !(f.v >= 0) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s %v ms", ErrInvalidDuration, f.name, f.v)
		}
	}
	if o.MaxRenderMs > DefaultMaxRenderMs {
		return fmt.Errorf("%w: max render %v ms exceeds %d ms", ErrInvalidDuration, o.MaxRenderMs, DefaultMaxRenderMs)
	}
	return nil
}

// CheckTempo returns ErrInvalidTempo unless tempo is in the accepted range.
func CheckTempo(tempo float64) error {
	if !(tempo >= MinTempo && tempo <= MaxTempo) {
		return fmt.Errorf("%w: %v (want %d to %d)", ErrInvalidTempo, tempo, MinTempo, MaxTempo)
	}
	return nil
}

// Compile turns r into a contiguous, non-overlapping event list at the given
// tempo (beats per minute, one beat being the measure's denominator).
func Compile(r rhythm.Rhythm, tempo float64, opts Options) ([]Event, error) {
	if err := CheckTempo(tempo); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	b := newBuilder(opts)
	if err := b.pause(opts.LeadInMs, -1); err != nil {
		return nil, err
	}
	if r.AtomCount() == 0 {
		return b.events, nil
	}

	for range max(opts.Repeat, 1) {
		for i, pos := range r.Positions() {
			if b.full() {
				return b.events, nil
			}
			a, _ := r.At(pos)
			den := r.Measures[pos.Measure].TimeSignature.Denominator
			ms := a.Duration() * float64(den) * 60000 / tempo
			if !(ms > 0) {
				return nil, fmt.Errorf("%w: atom %d in measure %d (%s)",
					ErrEmptySegment, i, pos.Measure, r.Measures[pos.Measure].TimeSignature)
			}
			if math.IsInf(ms, 0) {
				return nil, fmt.Errorf("%w: atom %d lasts %v ms", ErrInvalidDuration, i, ms)
			}
			var err error
			if a.IsRest() {
				err = b.pause(ms, i)
			} else {
				err = b.add(Event{
					Kind:      SetTempo,
					BeatCount: 1,
					Tempo:     60000 / ms,
					Accent:    a.(rhythm.Note).Stem == rhythm.StemUp,
					AtomIndex: i,
				}, ms)
			}
			if err != nil {
				return nil, err
			}
		}
	}
	return b.events, nil
}

// Pattern is a plain metronome: Bars bars of BeatsPerBar clicks at Tempo,
// with the accent click on each downbeat.
type Pattern struct {
	Tempo       float64
	BeatsPerBar int
	Bars        int
}

// CompilePattern compiles p into two events per bar: an accented downbeat
// and one event spanning the remaining beats.
func CompilePattern(p Pattern, opts Options) ([]Event, error) {
	if err := CheckTempo(p.Tempo); err != nil {
		return nil, err
	}
	if p.BeatsPerBar <= 0 || p.Bars <= 0 {
		return nil, fmt.Errorf("%w: %d bars of %d beats", ErrEmptySegment, p.Bars, p.BeatsPerBar)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	b := newBuilder(opts)
	if err := b.pause(opts.LeadInMs, -1); err != nil {
		return nil, err
	}
	beatMs := 60000 / p.Tempo

	for range max(opts.Repeat, 1) {
		for range p.Bars {
			if b.full() {
				return b.events, nil
			}
			if err := b.add(Event{Kind: SetTempo, BeatCount: 1, Tempo: p.Tempo, Accent: true, AtomIndex: -1}, beatMs); err != nil {
				return nil, err
			}
			if rest := p.BeatsPerBar - 1; rest > 0 {
				if err := b.add(Event{Kind: SetTempo, BeatCount: rest, Tempo: p.Tempo, AtomIndex: -1}, float64(rest)*beatMs); err != nil {
					return nil, err
				}
			}
		}
	}
	return b.events, nil
}

// ParsePattern parses "<beats>x<bars>", e.g. "4x8" for eight bars of four.
func ParsePattern(s string, tempo float64) (Pattern, error) {
	var beats, bars int
	if n, err := fmt.Sscanf(s, "%dx%d", &beats, &bars); err != nil || n != 2 || fmt.Sprintf("%dx%d", beats, bars) != s {
		return Pattern{}, fmt.Errorf("pattern must look like 4x8, got %q", s)
	}
	p := Pattern{Tempo: tempo, BeatsPerBar: beats, Bars: bars}
	if beats <= 0 || bars <= 0 {
		return p, fmt.Errorf("%w: %d bars of %d beats", ErrEmptySegment, bars, beats)
	}
	return p, nil
}

// End returns the end time of the last event, or 0.
func End(events []Event) float64 {
	if len(events) == 0 {
		return 0
	}
	return events[len(events)-1].EndMs
}

type builder struct {
	events []Event
	now    float64
	maxEnd float64
	limit  float64
}

func newBuilder(opts Options) *builder {
	limit := opts.MaxRenderMs
	if limit == 0 {
		limit = DefaultMaxRenderMs
	}
	return &builder{maxEnd: opts.MaxEndMs, limit: limit}
}

func (b *builder) full() bool {
	return b.maxEnd > 0 && b.now >= b.maxEnd
}

func (b *builder) pause(ms float64, atom int) error {
	if ms <= 0 {
		return nil
	}
	return b.add(Event{Kind: Pause, AtomIndex: atom}, ms)
}

func (b *builder) add(e Event, ms float64) error {
	if b.full() {
		return nil
	}
	e.StartMs = b.now
	e.EndMs = b.now + ms
	if b.maxEnd > 0 && e.EndMs > b.maxEnd {
		e.EndMs = b.maxEnd
	}
	if e.EndMs > b.limit {
		return fmt.Errorf("%w: runs past %v ms", ErrTooLong, b.limit)
	}
	b.now = e.EndMs
	b.events = append(b.events, e)
	return nil
}
