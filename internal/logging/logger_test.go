package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestSanitizeRedactsSecrets(t *testing.T) {
	cases := []struct {
		in   string
		leak string
	}{
		{`request url api_key=abc123def`, "abc123def"},
		{`header X-Emby-Token: supersecret`, "supersecret"},
		{`config password="hunter2"`, "hunter2"},
		{`token: tk-998877`, "tk-998877"},
	}
	for _, tc := range cases {
		got := sanitize(tc.in)
		if strings.Contains(got, tc.leak) {
			t.Errorf("sanitize(%q) leaked secret: %q", tc.in, got)
		}
		if !strings.Contains(got, "[REDACTED]") {
			t.Errorf("sanitize(%q) = %q, expected redaction marker", tc.in, got)
		}
	}
}

func TestSanitizeLeavesPlainTextAlone(t *testing.T) {
	in := "Jellyfin server reachable, 3 active sessions"
	if got := sanitize(in); got != in {
		t.Errorf("sanitize changed harmless text: %q", got)
	}
}

func TestLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{Level: LevelInfo, Format: "json", Output: &buf})

	log.Info("poll complete", "count", 2)

	out := buf.String()
	if !strings.Contains(out, `"msg":"poll complete"`) || !strings.Contains(out, `"count":2`) {
		t.Errorf("unexpected json output: %s", out)
	}
}

func TestLoggerLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{Level: LevelWarn, Format: "text", Output: &buf})

	log.Debug("hidden")
	log.Info("also hidden")
	log.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("below-threshold messages were logged: %s", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("warn message missing: %s", out)
	}
}

func TestWithCarriesAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{Level: LevelInfo, Format: "json", Output: &buf})

	log.With("component", "poller").Info("tick")

	if !strings.Contains(buf.String(), `"component":"poller"`) {
		t.Errorf("attached attr missing: %s", buf.String())
	}
}

func TestLoggerSanitizesArgs(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{Level: LevelInfo, Format: "json", Output: &buf})

	log.Info("startup", "url", "http://host/Sessions?api_key=abc123def")

	if strings.Contains(buf.String(), "abc123def") {
		t.Errorf("arg secret leaked: %s", buf.String())
	}
}
