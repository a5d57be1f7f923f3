// Package rhythm provides the symbolic rhythm model used by the metronome:
// notes, rests, tuplets, dotted values and time signatures, together with the
// textual notation that is persisted in presets and the edit operations that
// keep every measure's duration intact.
//
// Durations are fractions of a whole note (a 4/4 measure lasts 1.0, a quarter
// note 0.25). A Rhythm is an immutable value: every edit returns a new Rhythm
// that shares all untouched measures with its input, so a Rhythm may be
// handed to a renderer while the editor keeps working on newer versions.
//
// Notation grammar:
//
//	rhythm  := measure ("|" measure)*
//	measure := "{" INT "/" INT "}" element*
//	element := atom ";" | tuplet ";"
//	atom    := "!"? LETTER dotmark?
//	tuplet  := INT ":" INT "[" atom (":" atom)* "]"
//	dotmark := "." | ","
//
// Letters map to note values (w h q e s t x o u v m for 1/1 down to 1/1024).
// An uppercase letter is an accented note (stem up), lowercase is unaccented,
// and a leading "!" marks a rest.
//
// Example usage:
//
//	r, err := rhythm.ParseStrict("{4/4}Q;q;q;q;")
//	if err != nil {
//	    return err
//	}
//	r = rhythm.ReplaceNote(r, 1, rhythm.Note{Value: rhythm.Eighth}, false)
//	fmt.Println(r) // {4/4}Q;e;!e;q;q;
package rhythm
