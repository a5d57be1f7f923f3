package preset

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cognitivitydev/Chronal-sub002/pkg/rhythm"
	"github.com/cognitivitydev/Chronal-sub002/pkg/timeline"
)

var (
	// ErrNotFound is returned when no preset has the requested ID.
	ErrNotFound = errors.New("preset: not found")

	// ErrInvalid is returned when a preset fails validation.
	ErrInvalid = errors.New("preset: invalid")
)

// Preset is a saved rhythm with its tempo and lead-in.
type Preset struct {
	ID        string    `json:"id" yaml:"id" msgpack:"id"`
	Name      string    `json:"name" yaml:"name" msgpack:"name"`
	Notation  string    `json:"notation" yaml:"notation" msgpack:"notation"`
	Tempo     float64   `json:"tempo" yaml:"tempo" msgpack:"tempo"`
	LeadInMs  float64   `json:"lead_in_ms,omitempty" yaml:"lead_in_ms,omitempty" msgpack:"lead_in_ms,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at" msgpack:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at" msgpack:"updated_at"`
}

// Rhythm parses the preset notation. Invalid time signatures are errors.
func (p *Preset) Rhythm() (rhythm.Rhythm, error) {
	return rhythm.ParseStrict(p.Notation)
}

// Validate reports whether the preset can be stored.
func (p *Preset) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalid)
	}
	if err := timeline.CheckTempo(p.Tempo); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := (timeline.Options{LeadInMs: p.LeadInMs}).Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	r, err := p.Rhythm()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := rhythm.Validate(r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Store persists presets by ID.
type Store interface {
	// Get returns the preset with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (*Preset, error)

	// Put validates and stores p. An empty ID is assigned a new UUID and
	// the timestamps are maintained by the store. p is updated in place.
	Put(ctx context.Context, p *Preset) error

	// Delete removes the preset with the given ID or returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// List yields every preset ordered by ID.
	List(ctx context.Context) iter.Seq2[*Preset, error]

	Close() error
}

// Find resolves ref as an ID first and then as a case-insensitive name.
func Find(ctx context.Context, s Store, ref string) (*Preset, error) {
	p, err := s.Get(ctx, ref)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return p, err
	}
	for p, err := range s.List(ctx) {
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(p.Name, ref) {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

// Collect drains a List sequence into a slice.
func Collect(seq iter.Seq2[*Preset, error]) ([]*Preset, error) {
	var out []*Preset
	for p, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, p)
	}
	return out, nil
}

// stamp validates p and fills in the ID and timestamps. created is the
// CreatedAt of an existing record, or zero when p is new.
func stamp(p *Preset, created time.Time, now time.Time) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	switch {
	case !created.IsZero():
		p.CreatedAt = created
	case p.CreatedAt.IsZero():
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	return nil
}

// Open returns the store selected by driver: "badger" (the default) or
// "memory". dir is required for badger.
func Open(driver, dir string) (Store, error) {
	switch driver {
	case "", "badger":
		return NewBadger(BadgerOptions{Dir: dir})
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("preset: unknown driver %q", driver)
	}
}
