package rhythm

// Beat is a display unit for beat markers: one per sounding note.
type Beat struct {
	// Duration is the note's duration in whole notes.
	Duration float64
	// IsHigh is true for accented notes.
	IsHigh bool
	// MeasureIndex is the measure the note belongs to.
	MeasureIndex int
	// AtomIndex is the note's global atom index.
	AtomIndex int
}

// Beats derives the beat markers of r. Rests do not produce a beat.
func Beats(r Rhythm) []Beat {
	var beats []Beat
	r.each(func(i int, pos Position, a Atom) bool {
		if n, ok := a.(Note); ok {
			beats = append(beats, Beat{
				Duration:     n.Duration(),
				IsHigh:       n.Stem == StemUp,
				MeasureIndex: pos.Measure,
				AtomIndex:    i,
			})
		}
		return true
	})
	return beats
}
