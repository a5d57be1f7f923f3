package rhythm

import "fmt"

// Stem is the stem direction of a note. An up stem marks an accented note.
type Stem int

const (
	// StemUp is an accented (emphasized) note.
	StemUp Stem = iota
	// StemDown is an unaccented note.
	StemDown
)

// String returns "up" or "down".
func (s Stem) String() string {
	if s == StemUp {
		return "up"
	}
	return "down"
}

// Element is an entry of a measure: either an Atom or a Tuplet.
type Element interface {
	// Duration returns the element's duration in whole notes.
	Duration() float64

	element()
}

// Atom is the smallest timeable unit: a Note or a Rest.
type Atom interface {
	Element

	// NoteValue returns the base (undotted, unscaled) note value.
	NoteValue() NoteValue

	// DotCount returns the number of augmentation dots.
	DotCount() int

	// TupletRatio returns the ratio of the enclosing tuplet, or the zero
	// Ratio for atoms placed directly in a measure.
	TupletRatio() Ratio

	// IsRest reports whether the atom is a rest.
	IsRest() bool

	// Glyph returns the notation for the atom without tuplet context,
	// e.g. "Q", "e.", "!s".
	Glyph() string

	withRatio(Ratio) Atom
}

// Note is a sounding atom.
type Note struct {
	Value NoteValue
	Dots  int
	Stem  Stem
	Ratio Ratio
}

// Rest is a silent atom.
type Rest struct {
	Value NoteValue
	Dots  int
	Ratio Ratio
}

// Tuplet groups Ratio.Count atoms played in the time of Ratio.Value nominal
// notes. Every contained atom carries the tuplet's Ratio.
type Tuplet struct {
	Ratio Ratio
	Atoms []Atom
}

var (
	_ Atom    = Note{}
	_ Atom    = Rest{}
	_ Element = Tuplet{}
)

func (Note) element()   {}
func (Rest) element()   {}
func (Tuplet) element() {}

func (n Note) Duration() float64    { return AtomDuration(n.Value, n.Dots, n.Ratio) }
func (n Note) NoteValue() NoteValue { return n.Value }
func (n Note) DotCount() int        { return n.Dots }
func (n Note) TupletRatio() Ratio   { return n.Ratio }
func (n Note) IsRest() bool         { return false }

func (n Note) Glyph() string {
	c := n.Value.Letter()
	if n.Stem == StemUp {
		c -= 'a' - 'A'
	}
	return string(c) + dotMark(n.Dots)
}

func (n Note) withRatio(r Ratio) Atom {
	n.Ratio = r
	return n
}

func (r Rest) Duration() float64    { return AtomDuration(r.Value, r.Dots, r.Ratio) }
func (r Rest) NoteValue() NoteValue { return r.Value }
func (r Rest) DotCount() int        { return r.Dots }
func (r Rest) TupletRatio() Ratio   { return r.Ratio }
func (r Rest) IsRest() bool         { return true }

func (r Rest) Glyph() string {
	return "!" + string(r.Value.Letter()) + dotMark(r.Dots)
}

func (r Rest) withRatio(ratio Ratio) Atom {
	r.Ratio = ratio
	return r
}

// Duration returns the sum of the contained atoms' durations.
func (t Tuplet) Duration() float64 {
	var d float64
	for _, a := range t.Atoms {
		d += a.Duration()
	}
	return d
}

func dotMark(dots int) string {
	switch dots {
	case 1:
		return "."
	case 2:
		return ","
	}
	return ""
}

// TimeSignature is a measure's meter, e.g. 3/4.
type TimeSignature struct {
	Numerator   int
	Denominator int
}

// Duration returns Numerator/Denominator in whole notes, or 0 for an invalid
// signature.
func (ts TimeSignature) Duration() float64 {
	if ts.Denominator == 0 {
		return 0
	}
	return float64(ts.Numerator) / float64(ts.Denominator)
}

// Valid reports whether the signature has a positive numerator and a
// power-of-two denominator no finer than 1/1024.
func (ts TimeSignature) Valid() bool {
	return ts.Numerator > 0 && isPowerOfTwo(ts.Denominator) && ts.Denominator <= int(Value1024)
}

// String formats the signature as "n/d".
func (ts TimeSignature) String() string {
	return fmt.Sprintf("%d/%d", ts.Numerator, ts.Denominator)
}

// Measure is a time signature and the elements filling it.
type Measure struct {
	TimeSignature TimeSignature
	Elements      []Element
}

// Duration returns the sum of the element durations.
func (m Measure) Duration() float64 {
	var d float64
	for _, e := range m.Elements {
		d += e.Duration()
	}
	return d
}

// Balanced reports whether the elements fill the time signature exactly.
func (m Measure) Balanced() bool {
	return ApproxEqual(m.Duration(), m.TimeSignature.Duration())
}

// Rhythm is an ordered sequence of measures. Treat it as immutable: edit
// functions return new values and never modify their input.
type Rhythm struct {
	Measures []Measure
}

// Duration returns the total duration of all measures in whole notes.
func (r Rhythm) Duration() float64 {
	var d float64
	for _, m := range r.Measures {
		d += m.Duration()
	}
	return d
}

// Equal reports whether r and o are structurally equal.
func (r Rhythm) Equal(o Rhythm) bool {
	if len(r.Measures) != len(o.Measures) {
		return false
	}
	for i := range r.Measures {
		if !measureEqual(r.Measures[i], o.Measures[i]) {
			return false
		}
	}
	return true
}

func measureEqual(a, b Measure) bool {
	if a.TimeSignature != b.TimeSignature || len(a.Elements) != len(b.Elements) {
		return false
	}
	for i := range a.Elements {
		if !elementEqual(a.Elements[i], b.Elements[i]) {
			return false
		}
	}
	return true
}

func elementEqual(a, b Element) bool {
	ta, aok := a.(Tuplet)
	tb, bok := b.(Tuplet)
	if aok != bok {
		return false
	}
	if !aok {
		return a == b
	}
	if ta.Ratio != tb.Ratio || len(ta.Atoms) != len(tb.Atoms) {
		return false
	}
	for i := range ta.Atoms {
		if ta.Atoms[i] != tb.Atoms[i] {
			return false
		}
	}
	return true
}

// withMeasure returns a copy of r with measure i replaced. Other measures are
// shared with r.
func (r Rhythm) withMeasure(i int, m Measure) Rhythm {
	measures := make([]Measure, len(r.Measures))
	copy(measures, r.Measures)
	measures[i] = m
	return Rhythm{Measures: measures}
}
