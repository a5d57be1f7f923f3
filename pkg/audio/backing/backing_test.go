package backing

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/cognitivitydev/Chronal-sub002/pkg/audio/resampler"
	chwav "github.com/cognitivitydev/Chronal-sub002/pkg/audio/wav"
)

func TestKindFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Kind
		err  bool
	}{
		{"song.mp3", MP3, false},
		{"/a/b/Song.MP3", MP3, false},
		{"take.wav", WAV, false},
		{"take.flac", 0, true},
		{"noext", 0, true},
	}
	for _, tt := range tests {
		got, err := KindFromPath(tt.path)
		if (err != nil) != tt.err || got != tt.want {
			t.Errorf("KindFromPath(%q) = %v, %v", tt.path, got, err)
		}
		if err != nil && !errors.Is(err, ErrUnsupported) {
			t.Errorf("error %v does not wrap ErrUnsupported", err)
		}
	}
}

// stereoWAV encodes an interleaved stereo 16-bit file at the given rate.
func stereoWAV(t *testing.T, rate int, frames [][2]int) []byte {
	t.Helper()
	var b chwav.Buffer
	enc := wav.NewEncoder(&b, rate, 16, 2, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: rate},
		SourceBitDepth: 16,
	}
	for _, f := range frames {
		buf.Data = append(buf.Data, f[0], f[1])
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return b.Bytes()
}

func TestDecodeWAV(t *testing.T) {
	frames := make([][2]int, 2400)
	for i := range frames {
		frames[i] = [2]int{16384, 0}
	}
	data := stereoWAV(t, 24000, frames)

	track, err := Decode(bytes.NewReader(data), WAV, resampler.QualityLinear)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if track.SourceRate != 24000 || track.SourceChannels != 2 {
		t.Errorf("source = %d Hz, %d channels", track.SourceRate, track.SourceChannels)
	}
	if len(track.Samples) != 4800 {
		t.Fatalf("samples = %d, want 4800", len(track.Samples))
	}
	for i, s := range track.Samples {
		if math.Abs(float64(s)-0.25) > 1e-6 {
			t.Fatalf("sample %d = %v, want 0.25", i, s)
		}
	}
	if d := track.Duration().Milliseconds(); d != 100 {
		t.Errorf("Duration = %dms, want 100ms", d)
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode(bytes.NewReader([]byte("garbage")), WAV, resampler.QualityLinear); !errors.Is(err, ErrUnsupported) {
		t.Errorf("wav error = %v, want ErrUnsupported", err)
	}
	if _, err := Decode(bytes.NewReader([]byte("garbage")), MP3, resampler.QualityLinear); err == nil {
		t.Error("garbage mp3 decoded")
	}
	if _, err := Decode(bytes.NewReader(nil), Kind(9), resampler.QualityLinear); !errors.Is(err, ErrUnsupported) {
		t.Errorf("error = %v, want ErrUnsupported", err)
	}
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backing.wav")
	if err := os.WriteFile(path, stereoWAV(t, 48000, [][2]int{{100, 300}, {-200, -400}}), 0o644); err != nil {
		t.Fatal(err)
	}
	track, err := Open(path, resampler.QualityLinear)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	want := []float32{200.0 / 32768, -300.0 / 32768}
	if len(track.Samples) != len(want) {
		t.Fatalf("samples = %d, want %d", len(track.Samples), len(want))
	}
	for i := range want {
		if math.Abs(float64(track.Samples[i]-want[i])) > 1e-6 {
			t.Errorf("sample %d = %v, want %v", i, track.Samples[i], want[i])
		}
	}
	if _, err := Open(filepath.Join(t.TempDir(), "x.ogg"), resampler.QualityLinear); !errors.Is(err, ErrUnsupported) {
		t.Errorf("error = %v, want ErrUnsupported", err)
	}
}
