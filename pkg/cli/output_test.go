package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/cognitivitydev/Chronal-sub002/pkg/rhythm"
)

func TestOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	data := map[string]any{"name": "test", "value": 123}
	if err := Output(&buf, data, FormatJSON); err != nil {
		t.Fatalf("Output error: %v", err)
	}
	var result map[string]any
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}
	if result["name"] != "test" {
		t.Errorf("name = %v, want %q", result["name"], "test")
	}
}

func TestOutput_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Output(&buf, map[string]any{"name": "test"}, ""); err != nil {
		t.Fatalf("Output error: %v", err)
	}
	if !strings.Contains(buf.String(), "name: test") {
		t.Errorf("Output should contain 'name: test', got: %s", buf.String())
	}
}

func TestOutput_Raw(t *testing.T) {
	tests := []struct {
		name   string
		result any
		want   string
	}{
		{"string", "{4/4}W;", "{4/4}W;\n"},
		{"string with newline", "{4/4}W;\n", "{4/4}W;\n"},
		{"bytes", []byte("abc"), "abc"},
		{"stringer", rhythm.MustParse("{2/4}Q;q;"), "{2/4}Q;q;\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Output(&buf, tt.result, FormatRaw); err != nil {
				t.Fatalf("Output: %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("Output = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestOutput_RawFallsBackToYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Output(&buf, map[string]int{"beats": 4}, FormatRaw); err != nil {
		t.Fatalf("Output: %v", err)
	}
	if got := buf.String(); got != "beats: 4\n" {
		t.Errorf("Output = %q", got)
	}
}

func TestOutput_Unsupported(t *testing.T) {
	if err := Output(&bytes.Buffer{}, 1, "xml"); err == nil {
		t.Error("Output(xml) succeeded")
	}
	if _, err := ParseOutputFormat("xml"); err == nil {
		t.Error("ParseOutputFormat(xml) succeeded")
	}
	if f, err := ParseOutputFormat(""); err != nil || f != FormatYAML {
		t.Errorf("ParseOutputFormat(\"\") = %v, %v", f, err)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		ms   float64
		want string
	}{
		{500, "500ms"},
		{1500, "1.5s"},
		{61500, "1m1.5s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.ms); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestRenderBeats(t *testing.T) {
	r := rhythm.MustParse("{4/4}Q;q;!q;q;|{2/4}h;")
	out := RenderBeats(r, NewStyles(DefaultTheme))
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2:\n%s", len(lines), out)
	}
	if n := strings.Count(lines[0], AccentMark); n != 1 {
		t.Errorf("accent marks in measure 1 = %d, want 1", n)
	}
	if n := strings.Count(lines[0], BeatMark); n != 2 {
		t.Errorf("beat marks in measure 1 = %d, want 2", n)
	}
	if n := strings.Count(lines[0], RestMark); n != 4 {
		t.Errorf("rest cells in measure 1 = %d, want 4", n)
	}
	if !strings.Contains(lines[0], "4/4") || !strings.Contains(lines[1], "2/4") {
		t.Errorf("missing time signatures:\n%s", out)
	}
	if n := strings.Count(lines[1], SustainMark); n != 7 {
		t.Errorf("sustain cells in measure 2 = %d, want 7", n)
	}
}
