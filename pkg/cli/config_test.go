package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cognitivitydev/Chronal-sub002/pkg/audio/resampler"
	"github.com/cognitivitydev/Chronal-sub002/pkg/preset"
	"github.com/cognitivitydev/Chronal-sub002/pkg/storage"
	"github.com/cognitivitydev/Chronal-sub002/pkg/timeline"
)

func TestLoadConfigMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}
	if cfg.Tempo != 120 || cfg.ClickGain != 1 || cfg.ChunkMs != 20 {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.Path() != path {
		t.Errorf("Path = %q, want %q", cfg.Path(), path)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("loading a missing config created the file")
	}
}

func TestConfigSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}
	cfg.Tempo = 96
	cfg.LeadInMs = 250
	cfg.ResampleQuality = "high"
	cfg.Renders.S3 = storage.S3Config{Bucket: "clicks", Prefix: "r"}
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := fi.Mode().Perm(); perm != 0o600 {
		t.Errorf("mode = %o, want 600", perm)
	}

	got, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Tempo != 96 || got.LeadInMs != 250 || got.Quality() != resampler.QualityHigh {
		t.Errorf("reloaded = %+v", got)
	}
	if got.Renders.S3.Bucket != "clicks" || got.Renders.S3.Prefix != "r" {
		t.Errorf("s3 = %+v", got.Renders.S3)
	}
}

func TestLoadConfigPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("tempo: 90\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}
	if cfg.Tempo != 90 || cfg.ChunkMs != 20 || cfg.Presets.Driver != "badger" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", "tempo: [\n"},
		{"negative tempo", "tempo: -1\n"},
		{"gain out of range", "click_gain: 2\n"},
		{"bad quality", "resample_quality: best\n"},
		{"bad driver", "presets:\n  driver: sqlite\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.body), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadConfigFrom(path); err == nil {
				t.Error("LoadConfigFrom succeeded")
			}
		})
	}
}

func TestConfigSet(t *testing.T) {
	cfg := DefaultConfig()
	for key, value := range map[string]string{
		"tempo":             "140",
		"click_gain":        "0.5",
		"chunk_ms":          "10",
		"renders.s3.bucket": "b",
		"presets.driver":    "memory",
	} {
		if err := cfg.Set(key, value); err != nil {
			t.Fatalf("Set(%s): %v", key, err)
		}
	}
	if cfg.Tempo != 140 || cfg.ClickGain != 0.5 || cfg.ChunkMs != 10 ||
		cfg.Renders.S3.Bucket != "b" || cfg.Presets.Driver != "memory" {
		t.Errorf("cfg = %+v", cfg)
	}

	if err := cfg.Set("nope", "1"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Set(nope) error = %v, want ErrUnknownKey", err)
	}
	if err := cfg.Set("tempo", "fast"); err == nil {
		t.Error("Set(tempo, fast) succeeded")
	}
	for key, value := range map[string]string{
		"tempo":           "0",
		"lead_in_ms":      "NaN",
		"max_duration_ms": "+Inf",
	} {
		if err := cfg.Set(key, value); err == nil {
			t.Errorf("Set(%s, %s) succeeded", key, value)
		}
	}
	if err := cfg.Set("tempo", "5000"); !errors.Is(err, timeline.ErrInvalidTempo) {
		t.Errorf("Set(tempo, 5000) error = %v, want ErrInvalidTempo", err)
	}
	if cfg.Tempo != 140 {
		t.Errorf("failed Set changed tempo to %v", cfg.Tempo)
	}
}

func TestKeysAreSettable(t *testing.T) {
	for _, k := range Keys() {
		cfg := DefaultConfig()
		err := cfg.set(k, "1")
		if errors.Is(err, ErrUnknownKey) {
			t.Errorf("Keys lists %q but set rejects it", k)
		}
	}
}

func TestConfigDirFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	got, err := ConfigDir()
	if err != nil || got != dir {
		t.Fatalf("ConfigDir = %q, %v", got, err)
	}
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.PresetDir() != filepath.Join(dir, "presets") {
		t.Errorf("PresetDir = %q", cfg.PresetDir())
	}
	if cfg.RenderDir() != filepath.Join(dir, "renders") {
		t.Errorf("RenderDir = %q", cfg.RenderDir())
	}
}

func TestOpenStores(t *testing.T) {
	t.Setenv(EnvConfigDir, t.TempDir())
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Presets.Driver = "memory"
	ps, err := cfg.OpenPresets()
	if err != nil {
		t.Fatalf("OpenPresets: %v", err)
	}
	if _, ok := ps.(*preset.Memory); !ok {
		t.Errorf("OpenPresets = %T, want *preset.Memory", ps)
	}
	ps.Close()

	cfg.Presets.Driver = "badger"
	ps, err = cfg.OpenPresets()
	if err != nil {
		t.Fatalf("OpenPresets badger: %v", err)
	}
	if _, ok := ps.(*preset.Badger); !ok {
		t.Errorf("OpenPresets = %T, want *preset.Badger", ps)
	}
	ps.Close()

	rs, err := cfg.OpenRenders()
	if err != nil {
		t.Fatalf("OpenRenders: %v", err)
	}
	if _, ok := rs.(*storage.Local); !ok {
		t.Errorf("OpenRenders = %T, want *storage.Local", rs)
	}

	cfg.Renders.S3.Bucket = "clicks"
	rs, err = cfg.OpenRenders()
	if err != nil {
		t.Fatalf("OpenRenders s3: %v", err)
	}
	if _, ok := rs.(*storage.S3Store); !ok {
		t.Errorf("OpenRenders = %T, want *storage.S3Store", rs)
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tempo = 0
	cfg.ChunkMs = 0
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate succeeded")
	}
	for _, want := range []string{"tempo", "chunk_ms"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
