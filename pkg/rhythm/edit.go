package rhythm

// FillRests returns the rests that fill duration d (in whole notes) within a
// scope of the given tuplet ratio. The remainder is decomposed greedily into
// power-of-two rest values, largest first, so the result is the minimal
// binary decomposition and durations strictly decrease (except for repeated
// whole rests when d exceeds a whole note). Decomposition stops when less
// than Epsilon remains or the remainder is finer than MinDuration.
func FillRests(d float64, ratio Ratio) []Atom {
	rests, _ := fillRests(d, ratio)
	return rests
}

// fillRests is FillRests that also returns the part of d (in scaled units)
// that could not be expressed.
func fillRests(d float64, ratio Ratio) ([]Atom, float64) {
	scale := ratio.Scale()
	remaining := d / scale
	var out []Atom
	for remaining > Epsilon {
		v := Whole
		for v.Duration() > remaining+Epsilon && v < Value1024 {
			v *= 2
		}
		if v.Duration() > remaining+Epsilon {
			break
		}
		out = append(out, Rest{Value: v, Ratio: ratio})
		remaining -= v.Duration()
	}
	if remaining < 0 {
		remaining = 0
	}
	return out, remaining * scale
}

// ReplaceNote replaces the atom at the global index with e and pads or trims
// the surrounding scope (the measure, or the tuplet containing the atom) so
// that its duration is unchanged:
//
//   - a shorter replacement is followed by rests covering the freed time;
//   - a longer replacement absorbs the following elements of the scope, and
//     any overshoot is filled with rests.
//
// Inside a tuplet e must be an atom. When isScaled is false the tuplet's
// ratio is attached to it, so callers can pass a plain note value; when
// isScaled is true e must already carry the tuplet's ratio.
//
// ReplaceNote returns r unchanged when the index is out of range, e is not a
// valid element for the scope, or the scope has too little duration left.
func ReplaceNote(r Rhythm, index int, e Element, isScaled bool) Rhythm {
	pos, ok := r.Locate(index)
	if !ok || !validElement(e) {
		return r
	}
	m := r.Measures[pos.Measure]

	if pos.InTuplet() {
		t := m.Elements[pos.Element].(Tuplet)
		a, ok := e.(Atom)
		if !ok {
			return r
		}
		if isScaled {
			if a.TupletRatio() != t.Ratio {
				return r
			}
		} else {
			a = a.withRatio(t.Ratio)
		}
		scope := make([]Element, len(t.Atoms))
		for i, ta := range t.Atoms {
			scope[i] = ta
		}
		elems, ok := replaceInScope(scope, pos.Inner, a, t.Ratio)
		if !ok {
			return r
		}
		atoms := make([]Atom, len(elems))
		for i, el := range elems {
			atoms[i] = el.(Atom)
		}
		return r.withMeasure(pos.Measure, m.withElement(pos.Element, Tuplet{Ratio: t.Ratio, Atoms: atoms}))
	}

	switch e := e.(type) {
	case Tuplet:
		e = e.normalized()
		elems, ok := replaceInScope(m.Elements, pos.Element, e, Ratio{})
		if !ok {
			return r
		}
		return r.withMeasure(pos.Measure, Measure{TimeSignature: m.TimeSignature, Elements: elems})
	case Atom:
		if !e.TupletRatio().IsZero() {
			return r
		}
		elems, ok := replaceInScope(m.Elements, pos.Element, e, Ratio{})
		if !ok {
			return r
		}
		return r.withMeasure(pos.Measure, Measure{TimeSignature: m.TimeSignature, Elements: elems})
	}
	return r
}

// replaceInScope replaces elems[at] with e, keeping the scope's total
// duration. It never modifies elems.
func replaceInScope(elems []Element, at int, e Element, ratio Ratio) ([]Element, bool) {
	old := elems[at].Duration()
	nd := e.Duration()

	out := make([]Element, 0, len(elems)+4)
	out = append(out, elems[:at]...)
	out = append(out, e)

	switch {
	case ApproxEqual(nd, old):
		out = append(out, elems[at+1:]...)
		return out, true

	case nd < old:
		rests, left := fillRests(old-nd, ratio)
		if left > Epsilon {
			return nil, false
		}
		out = appendAtoms(out, rests)
		out = append(out, elems[at+1:]...)
		return out, true

	default:
		acc := old
		next := at + 1
		for acc < nd-Epsilon && next < len(elems) {
			acc += elems[next].Duration()
			next++
		}
		if acc < nd-Epsilon {
			return nil, false
		}
		if !ApproxEqual(acc, nd) {
			rests, left := fillRests(acc-nd, ratio)
			if left > Epsilon {
				return nil, false
			}
			out = appendAtoms(out, rests)
		}
		out = append(out, elems[next:]...)
		return out, true
	}
}

// SetTimeSignature changes the time signature of measure i. Extending a
// measure appends rests for the added time; shortening keeps the leading
// elements that still fit, drops the first one that overflows and everything
// after it, and fills the remainder with rests. An equal duration only
// changes the signature.
//
// It returns r unchanged for an out-of-range measure or an invalid
// signature.
func SetTimeSignature(r Rhythm, i int, ts TimeSignature) Rhythm {
	if i < 0 || i >= len(r.Measures) || !ts.Valid() {
		return r
	}
	m := r.Measures[i]
	oldD := m.Duration()
	newD := ts.Duration()

	switch {
	case ApproxEqual(oldD, newD):
		elems := make([]Element, len(m.Elements))
		copy(elems, m.Elements)
		return r.withMeasure(i, Measure{TimeSignature: ts, Elements: elems})

	case newD > oldD:
		rests, left := fillRests(newD-oldD, Ratio{})
		if left > Epsilon {
			return r
		}
		elems := make([]Element, 0, len(m.Elements)+len(rests))
		elems = append(elems, m.Elements...)
		elems = appendAtoms(elems, rests)
		return r.withMeasure(i, Measure{TimeSignature: ts, Elements: elems})

	default:
		remaining := newD
		var elems []Element
		for _, e := range m.Elements {
			d := e.Duration()
			if remaining-d < -Epsilon {
				break
			}
			elems = append(elems, e)
			remaining -= d
		}
		if remaining < -Epsilon {
			return r
		}
		rests, left := fillRests(remaining, Ratio{})
		if left > Epsilon {
			return r
		}
		elems = appendAtoms(elems, rests)
		return r.withMeasure(i, Measure{TimeSignature: ts, Elements: elems})
	}
}

// withElement returns a copy of m with element i replaced.
func (m Measure) withElement(i int, e Element) Measure {
	elems := make([]Element, len(m.Elements))
	copy(elems, m.Elements)
	elems[i] = e
	return Measure{TimeSignature: m.TimeSignature, Elements: elems}
}

// normalized returns t with its ratio attached to every atom.
func (t Tuplet) normalized() Tuplet {
	atoms := make([]Atom, len(t.Atoms))
	for i, a := range t.Atoms {
		atoms[i] = a.withRatio(t.Ratio)
	}
	return Tuplet{Ratio: t.Ratio, Atoms: atoms}
}

func appendAtoms(elems []Element, atoms []Atom) []Element {
	for _, a := range atoms {
		elems = append(elems, a)
	}
	return elems
}

func validElement(e Element) bool {
	switch e := e.(type) {
	case Tuplet:
		if len(e.Atoms) == 0 || e.Ratio.Count <= 0 || e.Ratio.Value <= 0 {
			return false
		}
		for _, a := range e.Atoms {
			if !validAtom(a) {
				return false
			}
		}
		return true
	case Atom:
		return validAtom(e)
	}
	return false
}

func validAtom(a Atom) bool {
	return a != nil && a.NoteValue().Valid() && a.DotCount() >= 0 && a.DotCount() <= MaxDots
}
