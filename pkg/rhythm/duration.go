package rhythm

import (
	"fmt"
	"math"
)

const (
	// Epsilon is the tolerance used when comparing durations.
	Epsilon = 1e-6

	// MinDuration is the shortest representable note value (1/1024).
	MinDuration = 1.0 / 1024

	// MaxDots is the maximum number of augmentation dots on an atom.
	MaxDots = 2
)

// NoteValue is the denominator of a plain (undotted, untupletized) note
// value. It is always a power of two between 1 and 1024.
type NoteValue int

// Note values from a whole note down to a 1024th note.
const (
	Whole        NoteValue = 1
	Half         NoteValue = 2
	Quarter      NoteValue = 4
	Eighth       NoteValue = 8
	Sixteenth    NoteValue = 16
	ThirtySecond NoteValue = 32
	SixtyFourth  NoteValue = 64
	Value128     NoteValue = 128
	Value256     NoteValue = 256
	Value512     NoteValue = 512
	Value1024    NoteValue = 1024
)

// noteLetters is the notation alphabet, indexed by log2 of the note value.
const noteLetters = "whqestxouvm"

// Valid reports whether v is a supported power-of-two note value.
func (v NoteValue) Valid() bool {
	return v >= Whole && v <= Value1024 && v&(v-1) == 0
}

// Duration returns the nominal duration of the value in whole notes.
func (v NoteValue) Duration() float64 {
	return 1 / float64(v)
}

// Letter returns the lowercase notation letter for v.
func (v NoteValue) Letter() byte {
	if !v.Valid() {
		return '?'
	}
	return noteLetters[log2(int(v))]
}

// String returns a human readable name such as "1/4".
func (v NoteValue) String() string {
	return fmt.Sprintf("1/%d", int(v))
}

// ValueForLetter returns the note value for a notation letter. The letter is
// matched case-insensitively.
func ValueForLetter(c byte) (NoteValue, bool) {
	if c >= 'A' && c <= 'Z' {
		c += 'a' - 'A'
	}
	for i := 0; i < len(noteLetters); i++ {
		if noteLetters[i] == c {
			return NoteValue(1 << i), true
		}
	}
	return 0, false
}

// ValueForDuration returns the note value whose nominal duration equals d.
func ValueForDuration(d float64) (NoteValue, bool) {
	for v := Whole; v <= Value1024; v *= 2 {
		if ApproxEqual(v.Duration(), d) {
			return v, true
		}
	}
	return 0, false
}

// DotFactor returns the duration multiplier for the given number of dots:
// 1 for none, 1.5 for one dot, 1.75 for two.
func DotFactor(dots int) float64 {
	f := 1.0
	add := 0.5
	for i := 0; i < dots; i++ {
		f += add
		add /= 2
	}
	return f
}

// Ratio is a tuplet ratio: Count notes in the time of Value. The zero Ratio
// means the atom is not part of a tuplet.
type Ratio struct {
	Count int
	Value int
}

// IsZero reports whether r is the zero Ratio.
func (r Ratio) IsZero() bool {
	return r.Count == 0 && r.Value == 0
}

// Scale returns the duration multiplier Value/Count, or 1 for the zero Ratio.
func (r Ratio) Scale() float64 {
	if r.Count <= 0 || r.Value <= 0 {
		return 1
	}
	return float64(r.Value) / float64(r.Count)
}

// String formats r as "count:value".
func (r Ratio) String() string {
	return fmt.Sprintf("%d:%d", r.Count, r.Value)
}

// AtomDuration returns the duration of an atom with the given value, dots and
// enclosing tuplet ratio, in whole notes.
func AtomDuration(v NoteValue, dots int, r Ratio) float64 {
	return v.Duration() * DotFactor(dots) * r.Scale()
}

// ApproxEqual reports whether two durations are equal within Epsilon.
func ApproxEqual(a, b float64) bool {
	return math.Abs(a-b) < Epsilon
}

func log2(n int) int {
	i := 0
	for n > 1 {
		n >>= 1
		i++
	}
	return i
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
