package sysutil

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetLogLevel_AllVariants(t *testing.T) {
	orig := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(orig) })

	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"  DeBuG  ", zerolog.DebugLevel}, // case + trim
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel}, // empty -> info
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel}, // alias
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"unknown", zerolog.InfoLevel}, // default
	}

	for _, tc := range cases {
		SetLogLevel(tc.in)
		if got := zerolog.GlobalLevel(); got != tc.want {
			t.Fatalf("SetLogLevel(%q) -> %v; want %v", tc.in, got, tc.want)
		}
	}
}

func TestIsTruthy(t *testing.T) {
	trues := []string{"1", "true", "TRUE", " yes ", "Y", "on", "On"}
	falses := []string{"", "0", "false", "no", "off", "n", "  ", "random"}

	for _, v := range trues {
		if !IsTruthy(v) {
			t.Fatalf("IsTruthy(%q) = false; want true", v)
		}
	}
	for _, v := range falses {
		if IsTruthy(v) {
			t.Fatalf("IsTruthy(%q) = true; want false", v)
		}
	}
}

func TestFirstNonEmpty(t *testing.T) {
	// no args -> ""
	if got := FirstNonEmpty(); got != "" {
		t.Fatalf("FirstNonEmpty() = %q; want \"\"", got)
	}
	// only empties -> ""
	if got := FirstNonEmpty(" ", "\t", "\n"); got != "" {
		t.Fatalf("FirstNonEmpty(empties) = %q; want \"\"", got)
	}
	// picks first non-empty (preserves original spacing)
	if got := FirstNonEmpty("   ", "  hello  ", "world"); got != "  hello  " {
		t.Fatalf("FirstNonEmpty(...) = %q; want %q", got, "  hello  ")
	}
	// first already non-empty
	if got := FirstNonEmpty("alpha", "beta"); got != "alpha" {
		t.Fatalf("FirstNonEmpty(...) = %q; want %q", got, "alpha")
	}
}

func restoreZerolog(t *testing.T) {
	t.Helper()
	lvl := zerolog.GlobalLevel()
	field := zerolog.LevelFieldName
	marshal := zerolog.LevelFieldMarshalFunc
	tf := zerolog.TimeFieldFormat
	global := log.Logger
	ctxLogger := zerolog.DefaultContextLogger
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(lvl)
		zerolog.LevelFieldName = field
		zerolog.LevelFieldMarshalFunc = marshal
		zerolog.TimeFieldFormat = tf
		log.Logger = global
		zerolog.DefaultContextLogger = ctxLogger
	})
}

func TestConfigureLogger_JSONSeverity(t *testing.T) {
	restoreZerolog(t)
	var buf bytes.Buffer
	logger := ConfigureLogger(&buf, "warn", false)

	logger.Info().Msg("dropped")
	log.Warn().Str("artifact_id", "a1").Msg("page failed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected only the warn line, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if entry["severity"] != "WARN" || entry["artifact_id"] != "a1" || entry["time"] == nil {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if zerolog.DefaultContextLogger == nil {
		t.Fatalf("default context logger not installed")
	}
}

func TestConfigureLogger_Pretty(t *testing.T) {
	restoreZerolog(t)
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	logger := ConfigureLogger(&buf, "debug", true)
	logger.Debug().Msg("hello console")

	out := buf.String()
	if !strings.Contains(out, "hello console") || strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Fatalf("expected console output, got %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("NO_COLOR ignored: %q", out)
	}
}
