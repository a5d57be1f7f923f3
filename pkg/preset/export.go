package preset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
)

// exportVersion is written into every export document.
const exportVersion = 1

// Bundle is the document produced by ExportJSON and ExportYAML.
type Bundle struct {
	Version int       `json:"version" yaml:"version"`
	Presets []*Preset `json:"presets" yaml:"presets"`
}

// ExportJSON writes presets as an indented JSON bundle.
func ExportJSON(w io.Writer, presets []*Preset) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Bundle{Version: exportVersion, Presets: nonNil(presets)})
}

// ExportYAML writes presets as a YAML bundle.
func ExportYAML(w io.Writer, presets []*Preset) error {
	data, err := yaml.Marshal(Bundle{Version: exportVersion, Presets: nonNil(presets)})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ImportJSON reads a bundle written by ExportJSON. A bare JSON array of
// presets is accepted as well. Every preset is validated.
func ImportJSON(r io.Reader) ([]*Preset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var presets []*Preset
	if len(data) > 0 && firstNonSpace(data) == '[' {
		err = json.Unmarshal(data, &presets)
	} else {
		var b Bundle
		err = json.Unmarshal(data, &b)
		if err == nil && b.Version > exportVersion {
			return nil, fmt.Errorf("preset: unsupported export version %d", b.Version)
		}
		presets = b.Presets
	}
	if err != nil {
		return nil, fmt.Errorf("preset: decode import: %w", err)
	}
	for i, p := range presets {
		if p == nil {
			return nil, fmt.Errorf("%w: entry %d is null", ErrInvalid, i)
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d (%s): %w", i, p.Name, err)
		}
	}
	return presets, nil
}

// ImportInto stores every preset from r in s and returns how many were
// written. Nothing is written unless the whole document is valid.
func ImportInto(ctx context.Context, s Store, r io.Reader) (int, error) {
	presets, err := ImportJSON(r)
	if err != nil {
		return 0, err
	}
	for i, p := range presets {
		if err := s.Put(ctx, p); err != nil {
			return i, err
		}
	}
	return len(presets), nil
}

func nonNil(presets []*Preset) []*Preset {
	if presets == nil {
		return []*Preset{}
	}
	return presets
}

func firstNonSpace(data []byte) byte {
	for _, c := range data {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return c
	}
	return 0
}
