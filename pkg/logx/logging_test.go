package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerWithFields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWriter(&buf, "debug").With(String("comp", "watcher"))
	log.Info("cycle done", Int("new", 2), Bool("baseline", true))

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("decode log line: %v (%q)", err, buf.String())
	}
	if m["comp"] != "watcher" {
		t.Fatalf("comp = %v, want watcher", m["comp"])
	}
	if m["new"] != float64(2) {
		t.Fatalf("new = %v, want 2", m["new"])
	}
	if m["message"] != "cycle done" {
		t.Fatalf("message = %v", m["message"])
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWriter(&buf, "warn")
	log.Debug("hidden")
	log.Info("hidden too")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %q", buf.String())
	}
	if log.Enabled(LevelDebug) {
		t.Fatal("debug should be disabled at warn")
	}
	log.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("warn line missing: %q", buf.String())
	}
}

func TestZeroLoggerIsNop(t *testing.T) {
	t.Parallel()
	var l Logger
	if !l.IsZero() {
		t.Fatal("zero logger should report IsZero")
	}
	// must not panic
	l.Error("nothing", Err(errors.New("x")))
}

func TestKVLogger(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	kv := KVLogger{L: NewWriter(&buf, "debug")}
	kv.Error(errors.New("boom"), "job panicked", "entry", 3, "dangling")

	out := buf.String()
	for _, want := range []string{`"entry":3`, `"dangling":"<missing>"`, `"err":"boom"`, `"level":"warn"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %s", out, want)
		}
	}
}

func TestValidLevel(t *testing.T) {
	t.Parallel()
	for _, s := range []string{"", "debug", "INFO", "warning"} {
		if !ValidLevel(s) {
			t.Fatalf("ValidLevel(%q) = false", s)
		}
	}
	if ValidLevel("loud") {
		t.Fatal("ValidLevel(loud) = true")
	}
}

func TestServiceApplyKeepsLiveLoggers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.log")
	svc, log := New(Config{Level: "info", File: FileConfig{Enabled: true, Path: path}})
	defer svc.Close()

	child := log.With(String("comp", "watcher"))
	child.Debug("dropped at info")
	child.Info("first")

	svc.Apply(Config{Level: "debug", File: FileConfig{Enabled: true, Path: path}})
	child.Debug("second")

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(b)
	if strings.Contains(out, "dropped at info") {
		t.Fatalf("debug line written at info level: %q", out)
	}
	for _, want := range []string{`"message":"first"`, `"message":"second"`, `"comp":"watcher"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log %q missing %s", out, want)
		}
	}
}

func TestStackTrace(t *testing.T) {
	t.Parallel()
	st := StackTrace(1, 4)
	if !strings.Contains(st, "TestStackTrace") {
		t.Fatalf("stack does not include the caller: %q", st)
	}
	if n := strings.Count(st, "\n  "); n > 4 {
		t.Fatalf("stack has %d frames, want <= 4", n)
	}
}
