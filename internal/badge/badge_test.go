package badge

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/godbus/dbus/v5"

	logx "afterschool/pkg/logx"
)

func TestFileBadgeWritesCount(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "unread")
	f, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	for _, n := range []int{3, 0} {
		if err := f.SetBadge(context.Background(), n); err != nil {
			t.Fatalf("SetBadge(%d): %v", n, err)
		}
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "0\n" {
		t.Fatalf("file = %q, want %q", b, "0\n")
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestFileBadgeRequiresPath(t *testing.T) {
	t.Parallel()
	if _, err := NewFile(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestLogBadgeSkipsRepeats(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := NewLog(logx.NewWriter(&buf, "info"))
	ctx := context.Background()
	for _, n := range []int{2, 2, 0} {
		_ = l.SetBadge(ctx, n)
	}
	if got := strings.Count(buf.String(), "unread badge"); got != 2 {
		t.Fatalf("logged %d lines, want 2: %s", got, buf.String())
	}
}

type fakeEmitter struct {
	path dbus.ObjectPath
	name string
	vals []interface{}
	err  error
}

func (f *fakeEmitter) Emit(path dbus.ObjectPath, name string, values ...interface{}) error {
	f.path, f.name, f.vals = path, name, values
	return f.err
}

func TestDBusBadgeEmitsLauncherUpdate(t *testing.T) {
	t.Parallel()
	fe := &fakeEmitter{}
	d := newDBus(fe, "")
	if err := d.SetBadge(context.Background(), 4); err != nil {
		t.Fatalf("SetBadge: %v", err)
	}
	if fe.name != launcherSignal || !strings.HasPrefix(string(fe.path), launcherPathBase) || !fe.path.IsValid() {
		t.Fatalf("unexpected signal %s on %s", fe.name, fe.path)
	}
	if len(fe.vals) != 2 || fe.vals[0] != defaultAppURI {
		t.Fatalf("unexpected values: %v", fe.vals)
	}
	props := fe.vals[1].(map[string]dbus.Variant)
	if props["count"].Value() != int64(4) || props["count-visible"].Value() != true {
		t.Fatalf("unexpected props: %v", props)
	}

	_ = d.SetBadge(context.Background(), 0)
	props = fe.vals[1].(map[string]dbus.Variant)
	if props["count-visible"].Value() != false {
		t.Fatal("zero count must hide the badge")
	}
}

func TestDBusBadgeError(t *testing.T) {
	t.Parallel()
	boom := errors.New("bus gone")
	d := newDBus(&fakeEmitter{err: boom}, "application://x.desktop")
	if err := d.SetBadge(context.Background(), 1); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestNewUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{Driver: "neon"}, logx.Nop()); err == nil {
		t.Fatal("expected error")
	}
	d, err := New(Config{}, logx.Nop())
	if err != nil || d.Name() != "log" {
		t.Fatalf("default driver: %v, %v", d, err)
	}
}
