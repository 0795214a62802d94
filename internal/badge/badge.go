// Package badge keeps an unread counter in sync outside the process.
package badge

import (
	"fmt"
	"strings"

	"afterschool/internal/watcher"
	logx "afterschool/pkg/logx"
)

// Driver is a watcher.BadgeUpdater that owns resources.
type Driver interface {
	watcher.BadgeUpdater
	Name() string
	Close() error
}

type Config struct {
	Driver string // dbus | file | log
	AppURI string // dbus: launcher entry, e.g. application://afterschool.desktop
	Path   string // file: destination path
}

func New(cfg Config, log logx.Logger) (Driver, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "log":
		return NewLog(log), nil
	case "dbus":
		d, err := NewDBus(cfg.AppURI)
		if err != nil {
			return nil, fmt.Errorf("badge dbus: %w", err)
		}
		return d, nil
	case "file":
		d, err := NewFile(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("badge file: %w", err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown badge driver %q", cfg.Driver)
	}
}
