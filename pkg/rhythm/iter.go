package rhythm

import "iter"

// Position addresses an atom inside a Rhythm. Inner is the index inside the
// tuplet at Measures[Measure].Elements[Element], or -1 when the atom sits
// directly in the measure.
type Position struct {
	Measure int
	Element int
	Inner   int
}

// InTuplet reports whether the position points into a tuplet.
func (p Position) InTuplet() bool {
	return p.Inner >= 0
}

// Atoms returns a sequence of (global index, atom) pairs in pre-order:
// measures in order, elements in order, and the atoms of a tuplet before the
// element that follows it. The sequence is lazy, can be ranged over any
// number of times and always reflects the same snapshot.
func (r Rhythm) Atoms() iter.Seq2[int, Atom] {
	return func(yield func(int, Atom) bool) {
		r.each(func(i int, _ Position, a Atom) bool {
			return yield(i, a)
		})
	}
}

// Positions is like Atoms but yields each atom's Position instead of the
// atom.
func (r Rhythm) Positions() iter.Seq2[int, Position] {
	return func(yield func(int, Position) bool) {
		r.each(func(i int, p Position, _ Atom) bool {
			return yield(i, p)
		})
	}
}

func (r Rhythm) each(fn func(int, Position, Atom) bool) {
	idx := 0
	for mi, m := range r.Measures {
		for ei, e := range m.Elements {
			switch e := e.(type) {
			case Tuplet:
				for ti, a := range e.Atoms {
					if !fn(idx, Position{mi, ei, ti}, a) {
						return
					}
					idx++
				}
			case Atom:
				if !fn(idx, Position{mi, ei, -1}, e) {
					return
				}
				idx++
			}
		}
	}
}

// AtomCount returns the number of atoms in r.
func (r Rhythm) AtomCount() int {
	n := 0
	for _, m := range r.Measures {
		for _, e := range m.Elements {
			if t, ok := e.(Tuplet); ok {
				n += len(t.Atoms)
			} else {
				n++
			}
		}
	}
	return n
}

// AtomAt returns the atom at the given global index.
func (r Rhythm) AtomAt(index int) (Atom, bool) {
	pos, ok := r.Locate(index)
	if !ok {
		return nil, false
	}
	return r.At(pos)
}

// At returns the atom at pos.
func (r Rhythm) At(pos Position) (Atom, bool) {
	if pos.Measure < 0 || pos.Measure >= len(r.Measures) {
		return nil, false
	}
	elems := r.Measures[pos.Measure].Elements
	if pos.Element < 0 || pos.Element >= len(elems) {
		return nil, false
	}
	switch e := elems[pos.Element].(type) {
	case Tuplet:
		if pos.Inner < 0 || pos.Inner >= len(e.Atoms) {
			return nil, false
		}
		return e.Atoms[pos.Inner], true
	case Atom:
		if pos.InTuplet() {
			return nil, false
		}
		return e, true
	}
	return nil, false
}

// Locate converts a global atom index into a Position with a single forward
// walk over the measures.
func (r Rhythm) Locate(index int) (Position, bool) {
	if index < 0 {
		return Position{}, false
	}
	idx := 0
	for mi, m := range r.Measures {
		for ei, e := range m.Elements {
			if t, ok := e.(Tuplet); ok {
				if index < idx+len(t.Atoms) {
					return Position{mi, ei, index - idx}, true
				}
				idx += len(t.Atoms)
				continue
			}
			if idx == index {
				return Position{mi, ei, -1}, true
			}
			idx++
		}
	}
	return Position{}, false
}

// IndexOf returns the global index of the atom at pos, or -1.
func (r Rhythm) IndexOf(pos Position) int {
	for i, p := range r.Positions() {
		if p == pos {
			return i
		}
	}
	return -1
}
