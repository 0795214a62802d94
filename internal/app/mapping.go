package app

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"afterschool/internal/badge"
	"afterschool/internal/config"
	"afterschool/internal/control"
	"afterschool/internal/feed"
	"afterschool/internal/presenter"
	"afterschool/internal/watcher"
	logx "afterschool/pkg/logx"
)

const defaultAPITimeout = 10 * time.Second

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapAPITimeout(cfg *config.Config) (time.Duration, error) {
	return config.ParseDuration("api.timeout", cfg.API.Timeout, defaultAPITimeout)
}

func mapWatcherConfig(cfg *config.Config) (watcher.Config, error) {
	w := cfg.Watcher
	interval := watcher.DefaultInterval
	if strings.TrimSpace(w.Interval) != "" {
		d, err := config.ParseInterval(w.Interval)
		if err != nil {
			return watcher.Config{}, fmt.Errorf("watcher.interval: %w", err)
		}
		interval = d
	}
	if w.PageSize < 0 {
		return watcher.Config{}, fmt.Errorf("watcher.page_size must be >= 0")
	}
	overlap, err := watcher.ParseOverlap(w.Overlap)
	if err != nil {
		return watcher.Config{}, fmt.Errorf("watcher.overlap: %w", err)
	}

	q := feed.DefaultQuery()
	if w.PageSize > 0 {
		q.PageSize = w.PageSize
	}
	if w.UnreadOnly != nil {
		q.UnreadOnly = *w.UnreadOnly
	}
	return watcher.Config{
		Interval:      interval,
		Query:         q,
		Overlap:       overlap,
		TitleFallback: w.TitleFallback,
	}, nil
}

func mapPresenterConfig(cfg *config.Config) (presenter.Config, error) {
	p := cfg.Presenter
	if p.RatePerSec < 0 {
		return presenter.Config{}, fmt.Errorf("presenter.rate_per_sec must be >= 0")
	}
	if p.ExpireMS < 0 {
		return presenter.Config{}, fmt.Errorf("presenter.expire_ms must be >= 0")
	}
	driver := strings.ToLower(strings.TrimSpace(p.Driver))
	switch driver {
	case "", "log", "dbus":
	case "telegram":
		if strings.TrimSpace(p.Telegram.Token) == "" || p.Telegram.ChatID == 0 {
			return presenter.Config{}, fmt.Errorf("presenter.telegram.token and chat_id are required for the telegram driver")
		}
	default:
		return presenter.Config{}, fmt.Errorf("presenter.driver: unknown %q", p.Driver)
	}
	return presenter.Config{
		Driver:     driver,
		AppName:    p.AppName,
		Icon:       p.Icon,
		ExpireMS:   p.ExpireMS,
		RatePerSec: p.RatePerSec,
		Telegram: presenter.TelegramConfig{
			Token:    p.Telegram.Token,
			ChatID:   p.Telegram.ChatID,
			ThreadID: p.Telegram.ThreadID,
			APIURL:   p.Telegram.APIURL,
		},
	}, nil
}

func mapBadgeConfig(cfg *config.Config) (badge.Config, error) {
	b := cfg.Badge
	driver := strings.ToLower(strings.TrimSpace(b.Driver))
	switch driver {
	case "", "log", "dbus":
	case "file":
		if strings.TrimSpace(b.Path) == "" {
			return badge.Config{}, fmt.Errorf("badge.path is required for the file driver")
		}
	default:
		return badge.Config{}, fmt.Errorf("badge.driver: unknown %q", b.Driver)
	}
	return badge.Config{Driver: driver, AppURI: b.AppURI, Path: b.Path}, nil
}

func mapControlConfig(cfg *config.Config) (control.Config, error) {
	c := control.Config{Addr: strings.TrimSpace(cfg.Control.Addr), Token: cfg.Control.Token, Pprof: cfg.Control.Pprof}
	if c.Addr == "" {
		c.Addr = control.DefaultAddr
	}
	host, _, err := net.SplitHostPort(c.Addr)
	if err != nil {
		return control.Config{}, fmt.Errorf("control.addr: %w", err)
	}
	if cfg.Control.Enabled && !isLoopback(host) && strings.TrimSpace(c.Token) == "" {
		return control.Config{}, fmt.Errorf("control.token is required when control.addr is not a loopback address")
	}
	return c, nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// validate rejects configs that would fail at startup or on hot reload.
func validate(cfg *config.Config) error {
	raw := strings.TrimSpace(cfg.API.BaseURL)
	if raw == "" {
		return fmt.Errorf("api.base_url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url: invalid %q", raw)
	}
	if _, err := mapAPITimeout(cfg); err != nil {
		return err
	}
	if _, err := mapWatcherConfig(cfg); err != nil {
		return err
	}
	if _, err := mapPresenterConfig(cfg); err != nil {
		return err
	}
	if _, err := mapBadgeConfig(cfg); err != nil {
		return err
	}
	if _, err := mapControlConfig(cfg); err != nil {
		return err
	}
	if lvl := strings.TrimSpace(cfg.Logging.Level); lvl != "" && !logx.ValidLevel(lvl) {
		return fmt.Errorf("logging.level: unknown %q", lvl)
	}
	return nil
}
