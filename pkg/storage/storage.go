// Package storage keeps rendered click tracks so that repeated renders of
// the same rhythm can be served without running the renderer again.
//
// Names are forward-slash separated and relative to the store root. Local
// writes to disk and S3Store writes to any S3-compatible object store.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
)

// ErrInvalidName is returned for names that are empty, absolute or escape
// the store root.
var ErrInvalidName = errors.New("storage: invalid name")

// RenderStore stores rendered WAV files by name.
//
// Implementations must be safe for concurrent use.
type RenderStore interface {
	// Put stores data under name, replacing any previous content.
	Put(ctx context.Context, name string, data []byte) error

	// Open opens the named render for reading. The caller must close the
	// returned ReadCloser. A missing render yields an error wrapping
	// os.ErrNotExist.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Exists reports whether name is stored.
	Exists(ctx context.Context, name string) (bool, error)

	// Delete removes name. Deleting a missing render is not an error.
	Delete(ctx context.Context, name string) error
}

// CleanName validates name and returns its canonical form.
func CleanName(name string) (string, error) {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	clean := path.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return clean, nil
}

// RenderKey returns a content-addressed name for a render of notation with
// the given numeric parameters (tempo, lead-in, sample rate and so on). The
// same inputs always map to the same name.
func RenderKey(notation string, params ...float64) string {
	h := sha256.New()
	io.WriteString(h, notation)
	for _, p := range params {
		h.Write([]byte{0})
		io.WriteString(h, strconv.FormatFloat(p, 'g', -1, 64))
	}
	sum := hex.EncodeToString(h.Sum(nil))
	return sum[:2] + "/" + sum[2:32] + ".wav"
}

// ReadAll reads the named render into memory.
func ReadAll(ctx context.Context, s RenderStore, name string) ([]byte, error) {
	rc, err := s.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
