package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

var rfc3339Prefix = regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`)

// decodeLines parses JSON log output into one map per line.
func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("Log line is not JSON: %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo || cfg.Pretty || cfg.Output != os.Stderr {
		t.Errorf("DefaultConfig() = %+v, want info level JSON on stderr", cfg)
	}
}

// TestConfiguredLevelFilters runs level names through ParseLevel and Setup
// the way the service does with LOG_LEVEL.
func TestConfiguredLevelFilters(t *testing.T) {
	tests := []struct {
		name string
		want []string
	}{
		{"debug", []string{"Count probe", "Collection fetched", "Collection failed", "Snapshot save failed"}},
		{"info", []string{"Collection fetched", "Collection failed", "Snapshot save failed"}},
		{"WARNING", []string{"Collection failed", "Snapshot save failed"}},
		{"error", []string{"Snapshot save failed"}},
		{"verbose", []string{"Collection fetched", "Collection failed", "Snapshot save failed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, _ := ParseLevel(tt.name)
			buf := &bytes.Buffer{}
			logger := Setup(Config{Level: level, Output: buf})

			logger.Debug().Int("offset", 512).Msg("Count probe")
			logger.Info().Int("count", 140).Msg("Collection fetched")
			logger.Warn().Str("collection_id", "c1").Msg("Collection failed")
			logger.Error().Str("snapshot", "latest").Msg("Snapshot save failed")

			var got []string
			for _, line := range decodeLines(t, buf) {
				got = append(got, line["message"].(string))
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("Level %q logged %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    LogLevel
		expected zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelInfo, zerolog.InfoLevel},
		{LevelWarn, zerolog.WarnLevel},
		{"WARNING", zerolog.WarnLevel},
		{LevelError, zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseLevelName(t *testing.T) {
	tests := []struct {
		input  string
		want   LogLevel
		wantOK bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{" warning ", LevelWarn, true},
		{"error", LevelError, true},
		{"trace", LevelInfo, false},
		{"", LevelInfo, false},
	}

	for _, tt := range tests {
		got, ok := ParseLevel(tt.input)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseLevel(%q) = %q, %v, want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestNewLogger_ComponentAndFields(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})

	NewLogger("index-builder").Warn().
		Str("match_id", "m1").
		Str("kind", "faction_no_id").
		Msg("Skipping faction without identifier")

	lines := decodeLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("Expected one log line, got %d", len(lines))
	}
	line := lines[0]
	if line["component"] != "index-builder" || line["match_id"] != "m1" || line["level"] != "warn" {
		t.Errorf("Unexpected log line %v", line)
	}

	ts, ok := line["time"].(string)
	if !ok {
		t.Fatalf("Expected a time field, got %v", line)
	}
	if _, err := time.Parse(time.RFC3339, ts); err != nil {
		t.Errorf("time %q is not RFC3339: %v", ts, err)
	}
}

func TestSetup_PrettyOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := Setup(Config{Level: LevelInfo, Pretty: true, Output: buf})
	logger.Info().Str("collection_id", "c1").Msg("Collection is empty")

	output := buf.String()
	if strings.HasPrefix(output, "{") {
		t.Errorf("Pretty output should not be JSON, got %q", output)
	}
	if !strings.Contains(output, "Collection is empty") || !strings.Contains(output, "collection_id") {
		t.Errorf("Expected message and field in console output, got %q", output)
	}
	if !rfc3339Prefix.MatchString(output) {
		t.Errorf("Expected an RFC3339 timestamp in console output, got %q", output)
	}
}

func TestSetup_NilOutputWritesToStderr(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() error = %v", err)
	}
	stderr := os.Stderr
	os.Stderr = w
	defer func() { os.Stderr = stderr }()

	logger := Setup(Config{Level: LevelInfo})
	logger.Info().Msg("Server stopped")
	w.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !strings.Contains(string(data), "Server stopped") {
		t.Errorf("Expected stderr to carry the log line, got %q", data)
	}
}
