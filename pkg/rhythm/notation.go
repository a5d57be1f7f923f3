package rhythm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel errors.
var (
	// ErrSyntax is returned for notation that does not follow the grammar.
	ErrSyntax = errors.New("rhythm: syntax error")

	// ErrTimeSignature is returned by ParseStrict and Validate for a missing,
	// malformed or zero time signature.
	ErrTimeSignature = errors.New("rhythm: invalid time signature")

	// ErrUnbalanced is returned by Validate when a measure's elements do not
	// add up to its time signature.
	ErrUnbalanced = errors.New("rhythm: unbalanced measure")

	// ErrTuplet is returned by Validate for an empty tuplet or a tuplet
	// with a non-positive ratio.
	ErrTuplet = errors.New("rhythm: invalid tuplet")
)

const (
	measureSep = "|"
	elementEnd = ";"
	tupletSep  = ":"
	restMark   = '!'
)

// Parse parses the rhythm notation. A time signature that cannot be parsed
// becomes 0/0 instead of failing; use ParseStrict or Validate to reject it.
// Any other malformed input returns an error wrapping ErrSyntax.
func Parse(text string) (Rhythm, error) {
	return parse(text, false)
}

// ParseStrict is like Parse but also fails with ErrTimeSignature when a
// measure's time signature is malformed or zero.
func ParseStrict(text string) (Rhythm, error) {
	return parse(text, true)
}

// MustParse is like ParseStrict but panics on error. It is intended for
// tests and package-level presets.
func MustParse(text string) Rhythm {
	r, err := ParseStrict(text)
	if err != nil {
		panic(err)
	}
	return r
}

func parse(text string, strict bool) (Rhythm, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Rhythm{}, nil
	}
	parts := strings.Split(text, measureSep)
	measures := make([]Measure, 0, len(parts))
	for i, part := range parts {
		m, err := parseMeasure(part, strict)
		if err != nil {
			return Rhythm{}, fmt.Errorf("measure %d: %w", i, err)
		}
		measures = append(measures, m)
	}
	return Rhythm{Measures: measures}, nil
}

func parseMeasure(s string, strict bool) (Measure, error) {
	ts, body, ok := splitTimeSignature(s)
	if !ok && strict {
		return Measure{}, fmt.Errorf("%w: %q", ErrTimeSignature, s)
	}
	if body == "" {
		return Measure{TimeSignature: ts}, nil
	}
	if !strings.HasSuffix(body, elementEnd) {
		return Measure{}, fmt.Errorf("%w: missing %q after %q", ErrSyntax, elementEnd, body)
	}
	fields := strings.Split(strings.TrimSuffix(body, elementEnd), elementEnd)
	elems := make([]Element, 0, len(fields))
	for i, f := range fields {
		e, err := parseElement(f)
		if err != nil {
			return Measure{}, fmt.Errorf("element %d: %w", i, err)
		}
		elems = append(elems, e)
	}
	return Measure{TimeSignature: ts, Elements: elems}, nil
}

// splitTimeSignature splits "{n/d}body". ok is false when the signature is
// missing, malformed or zero, in which case ts is 0/0.
func splitTimeSignature(s string) (ts TimeSignature, body string, ok bool) {
	end := strings.IndexByte(s, '}')
	if !strings.HasPrefix(s, "{") || end < 0 {
		if end >= 0 {
			return TimeSignature{}, s[end+1:], false
		}
		return TimeSignature{}, s, false
	}
	body = s[end+1:]
	num, den, found := strings.Cut(s[1:end], "/")
	if !found {
		return TimeSignature{}, body, false
	}
	n, err1 := strconv.Atoi(strings.TrimSpace(num))
	d, err2 := strconv.Atoi(strings.TrimSpace(den))
	if err1 != nil || err2 != nil {
		return TimeSignature{}, body, false
	}
	ts = TimeSignature{Numerator: n, Denominator: d}
	return ts, body, n > 0 && d > 0
}

// ParseElement parses a single atom or tuplet, with or without the trailing
// ";". Atoms outside a tuplet have the zero Ratio.
func ParseElement(s string) (Element, error) {
	return parseElement(strings.TrimSuffix(strings.TrimSpace(s), elementEnd))
}

func parseElement(s string) (Element, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty element", ErrSyntax)
	}
	if s[0] >= '0' && s[0] <= '9' {
		return parseTuplet(s)
	}
	return parseAtom(s, Ratio{})
}

func parseTuplet(s string) (Element, error) {
	open := strings.IndexByte(s, '[')
	if open < 0 || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("%w: malformed tuplet %q", ErrSyntax, s)
	}
	cs, vs, found := strings.Cut(s[:open], tupletSep)
	if !found {
		return nil, fmt.Errorf("%w: tuplet ratio %q", ErrSyntax, s[:open])
	}
	count, err1 := strconv.Atoi(cs)
	value, err2 := strconv.Atoi(vs)
	if err1 != nil || err2 != nil || count <= 0 || value <= 0 {
		return nil, fmt.Errorf("%w: tuplet ratio %q", ErrSyntax, s[:open])
	}
	ratio := Ratio{Count: count, Value: value}
	inner := s[open+1 : len(s)-1]
	if inner == "" {
		return nil, fmt.Errorf("%w: empty tuplet %q", ErrSyntax, s)
	}
	fields := strings.Split(inner, tupletSep)
	atoms := make([]Atom, 0, len(fields))
	for _, f := range fields {
		a, err := parseAtom(f, ratio)
		if err != nil {
			return nil, err
		}
		atoms = append(atoms, a)
	}
	return Tuplet{Ratio: ratio, Atoms: atoms}, nil
}

func parseAtom(s string, ratio Ratio) (Atom, error) {
	orig := s
	rest := false
	if s != "" && s[0] == restMark {
		rest = true
		s = s[1:]
	}
	if s == "" {
		return nil, fmt.Errorf("%w: empty atom %q", ErrSyntax, orig)
	}
	v, ok := ValueForLetter(s[0])
	if !ok {
		return nil, fmt.Errorf("%w: unknown note letter %q", ErrSyntax, s[0])
	}
	if len(s) > 2 {
		return nil, fmt.Errorf("%w: trailing characters in %q", ErrSyntax, orig)
	}
	dots := 0
	if len(s) == 2 {
		switch s[1] {
		case '.':
			dots = 1
		case ',':
			dots = 2
		}
	}
	if rest {
		return Rest{Value: v, Dots: dots, Ratio: ratio}, nil
	}
	stem := StemDown
	if s[0] >= 'A' && s[0] <= 'Z' {
		stem = StemUp
	}
	return Note{Value: v, Dots: dots, Stem: stem, Ratio: ratio}, nil
}

// Serialize returns the notation for r. It is the inverse of Parse for any
// Rhythm produced by Parse or by the edit functions.
func Serialize(r Rhythm) string {
	var b strings.Builder
	for i, m := range r.Measures {
		if i > 0 {
			b.WriteString(measureSep)
		}
		writeMeasure(&b, m)
	}
	return b.String()
}

// String returns the notation for r.
func (r Rhythm) String() string {
	return Serialize(r)
}

// FormatElement returns the notation for a single element, including the
// trailing ";".
func FormatElement(e Element) string {
	var b strings.Builder
	writeElement(&b, e)
	return b.String()
}

func writeMeasure(b *strings.Builder, m Measure) {
	b.WriteByte('{')
	b.WriteString(strconv.Itoa(m.TimeSignature.Numerator))
	b.WriteByte('/')
	b.WriteString(strconv.Itoa(m.TimeSignature.Denominator))
	b.WriteByte('}')
	for _, e := range m.Elements {
		writeElement(b, e)
	}
}

func writeElement(b *strings.Builder, e Element) {
	switch e := e.(type) {
	case Tuplet:
		b.WriteString(e.Ratio.String())
		b.WriteByte('[')
		for i, a := range e.Atoms {
			if i > 0 {
				b.WriteString(tupletSep)
			}
			b.WriteString(a.Glyph())
		}
		b.WriteByte(']')
	case Atom:
		b.WriteString(e.Glyph())
	}
	b.WriteString(elementEnd)
}

// Validate reports every structural problem in r: invalid time signatures,
// empty or malformed tuplets and measures whose elements do not fill their
// time signature. It returns nil for a well-formed rhythm.
func Validate(r Rhythm) error {
	var errs []error
	for i, m := range r.Measures {
		if !m.TimeSignature.Valid() {
			errs = append(errs, fmt.Errorf("measure %d: %w: %s", i, ErrTimeSignature, m.TimeSignature))
			continue
		}
		for j, e := range m.Elements {
			t, ok := e.(Tuplet)
			if !ok {
				continue
			}
			if len(t.Atoms) == 0 || t.Ratio.Count <= 0 || t.Ratio.Value <= 0 {
				errs = append(errs, fmt.Errorf("measure %d element %d: %w", i, j, ErrTuplet))
			}
		}
		if !m.Balanced() {
			errs = append(errs, fmt.Errorf("measure %d: %w: %.6g of %s", i, ErrUnbalanced, m.Duration(), m.TimeSignature))
		}
	}
	return errors.Join(errs...)
}
