package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestNew_Defaults_ToInfoAndConsole(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "", "")

	if l.GetLevel().String() != "info" {
		t.Fatalf("expected level=info, got %s", l.GetLevel().String())
	}

	l.Info().Msg("hello")
	out := buf.String()
	if out == "" {
		t.Fatalf("expected output")
	}
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Fatalf("expected console output, got json-like: %q", out)
	}
	if !strings.Contains(out, "hello") {
		t.Fatalf("expected message in output, got: %q", out)
	}
}

func TestNew_InvalidLogLevel_FallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "not-a-level", "console")

	if l.GetLevel().String() != "info" {
		t.Fatalf("expected level=info fallback, got %s", l.GetLevel().String())
	}

	l.Debug().Msg("debug-should-not-print")
	l.Info().Msg("info-should-print")
	out := buf.String()

	if strings.Contains(out, "debug-should-not-print") {
		t.Fatalf("did not expect debug output at info level, got: %q", out)
	}
	if !strings.Contains(out, "info-should-print") {
		t.Fatalf("expected info output, got: %q", out)
	}
}

func TestNew_JSONFormat_OutputsJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "DEBUG", "json")

	if l.GetLevel().String() != "debug" {
		t.Fatalf("expected level=debug, got %s", l.GetLevel().String())
	}

	l.Info().Str("k", "v").Msg("hello")
	out := strings.TrimSpace(buf.String())

	if !strings.HasPrefix(out, "{") || !strings.HasSuffix(out, "}") {
		t.Fatalf("expected json object line, got: %q", out)
	}
	if !strings.Contains(out, `"message":"hello"`) {
		t.Fatalf("expected message field, got: %q", out)
	}
	if !strings.Contains(out, `"k":"v"`) {
		t.Fatalf("expected k field, got: %q", out)
	}
	if !strings.Contains(out, `"time":`) {
		t.Fatalf("expected timestamp, got: %q", out)
	}
}

func TestWithCtx_ReturnsAttachedLogger(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, "info", "json").With().Str("request_id", "rid-1").Logger()
	ctx := base.WithContext(context.Background())

	l := WithCtx(ctx)
	l.Info().Msg("scoped")

	if !strings.Contains(buf.String(), `"request_id":"rid-1"`) {
		t.Fatalf("expected request_id on scoped logger, got: %q", buf.String())
	}
}

func TestWithCtx_NoLogger_IsSilent(t *testing.T) {
	l := WithCtx(context.Background())
	// must not panic
	l.Info().Msg("dropped")
}
