package rhythm

import "math"

// maxDoublings bounds the search for the power-of-two numerator of a
// duration.
const maxDoublings = 40

// CreateTupletAt builds a tuplet of count identical notes that fills exactly
// the duration of the atom at the global index. The ratio's Value is the
// largest power-of-two multiple of the duration's numerator that does not
// exceed count, so a quarter note split in three becomes 3:2 eighths and a
// dotted quarter split in two becomes 2:3 eighths.
//
// Notes inherit the stem of the original note; a rest yields accented notes.
// The result is not inserted; pass it to ReplaceNote. It returns false if no
// atom exists at the index, count is below 2, the atom already belongs to a
// tuplet, or the notes would be shorter than MinDuration.
func CreateTupletAt(r Rhythm, index, count int) (Tuplet, bool) {
	a, ok := r.AtomAt(index)
	if !ok || !a.TupletRatio().IsZero() {
		return Tuplet{}, false
	}
	stem := StemUp
	if n, isNote := a.(Note); isNote {
		stem = n.Stem
	}
	return tupletFor(a.Duration(), count, stem)
}

// SetTupletCount rebuilds the tuplet containing the atom at the global index
// with count notes, keeping its total duration. It returns r unchanged if the
// atom is not inside a tuplet or no tuplet of that size can fill the
// duration.
func SetTupletCount(r Rhythm, index, count int) Rhythm {
	pos, ok := r.Locate(index)
	if !ok || !pos.InTuplet() {
		return r
	}
	m := r.Measures[pos.Measure]
	old := m.Elements[pos.Element].(Tuplet)
	stem := StemUp
	for _, a := range old.Atoms {
		if n, isNote := a.(Note); isNote {
			stem = n.Stem
			break
		}
	}
	t, ok := tupletFor(old.Duration(), count, stem)
	if !ok {
		return r
	}
	return r.withMeasure(pos.Measure, m.withElement(pos.Element, t))
}

func tupletFor(d float64, count int, stem Stem) (Tuplet, bool) {
	if count < 2 || d <= 0 {
		return Tuplet{}, false
	}
	x := d
	for i := 0; i < maxDoublings && !nearInteger(x); i++ {
		x *= 2
	}
	if !nearInteger(x) {
		return Tuplet{}, false
	}
	baseNum := int(math.Round(x))
	value := baseNum
	for value*2 <= count {
		value *= 2
	}
	v, ok := ValueForDuration(d / float64(value))
	if !ok {
		return Tuplet{}, false
	}
	ratio := Ratio{Count: count, Value: value}
	atoms := make([]Atom, count)
	for i := range atoms {
		atoms[i] = Note{Value: v, Stem: stem, Ratio: ratio}
	}
	return Tuplet{Ratio: ratio, Atoms: atoms}, true
}

func nearInteger(x float64) bool {
	return x >= 1-Epsilon && math.Abs(x-math.Round(x)) < Epsilon
}
