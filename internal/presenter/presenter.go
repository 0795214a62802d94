// Package presenter shows local notifications for newly seen feed items.
//
// Drivers:
//   - dbus: org.freedesktop.Notifications on the session bus
//   - telegram: mirrors notifications to a chat (optionally a forum thread)
//   - log: writes one structured log line per notification
//
// Every driver returned by New is wrapped in a token-bucket limiter.
package presenter

import (
	"fmt"
	"strings"

	"afterschool/internal/watcher"
	logx "afterschool/pkg/logx"
)

// Driver is a watcher.Presenter that owns resources.
type Driver interface {
	watcher.Presenter
	Name() string
	Close() error
}

// Config selects and configures a driver.
type Config struct {
	Driver     string // dbus | telegram | log
	AppName    string
	Icon       string
	ExpireMS   int
	RatePerSec int
	Telegram   TelegramConfig
}

const defaultAppName = "afterschool"

// New builds the configured driver wrapped in a rate limiter.
func New(cfg Config, log logx.Logger) (Driver, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	if strings.TrimSpace(cfg.AppName) == "" {
		cfg.AppName = defaultAppName
	}

	var (
		d   Driver
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "log":
		d = NewLog(log)
	case "dbus":
		var dd *DBus
		if dd, err = NewDBus(cfg); err == nil {
			d = dd
		}
	case "telegram":
		var td *Telegram
		if td, err = NewTelegram(cfg.Telegram); err == nil {
			d = td
		}
	default:
		return nil, fmt.Errorf("unknown presenter driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("presenter %s: %w", cfg.Driver, err)
	}
	return NewLimited(d, cfg.RatePerSec), nil
}

// FormatText renders a presentation as plain text: the title, then the body
// on its own line when present.
func FormatText(p watcher.Presentation) string {
	title := strings.TrimSpace(p.Title)
	body := strings.TrimSpace(p.Body)
	if body == "" {
		return title
	}
	return title + "\n" + body
}
