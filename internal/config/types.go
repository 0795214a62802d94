package config

// Config is the on-disk configuration (JSON or YAML).
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	API       APIConfig       `json:"api"`
	Session   SessionConfig   `json:"session"`
	Watcher   WatcherConfig   `json:"watcher"`
	Presenter PresenterConfig `json:"presenter"`
	Badge     BadgeConfig     `json:"badge"`
	Control   ControlConfig   `json:"control"`
	Logging   LoggingConfig   `json:"logging"`
}

// APIConfig points at the after-school REST API that serves the notification feed.
type APIConfig struct {
	BaseURL string `json:"base_url"`
	// Path of the feed endpoint, relative to BaseURL. Default "/notifications".
	FeedPath string `json:"feed_path,omitempty"`
	Timeout  string `json:"timeout,omitempty"` // default "10s"
}

// SessionConfig carries the credentials of the signed-in user.
//
// The watcher is only enabled while the token is present and, if it is a JWT,
// not expired. Never log Token.
type SessionConfig struct {
	Token string `json:"token"`
}

// WatcherConfig controls the notification watcher.
//
// Defaults (when fields are omitted/zero):
//   - interval: "45s"
//   - page_size: 10
//   - unread_only: true
//   - overlap: "skip"
type WatcherConfig struct {
	Enabled bool `json:"enabled"`

	// Interval accepts "45s", "interval:45s", "every:45s", "@every 45s" or "HH:MM".
	Interval string `json:"interval,omitempty"`

	PageSize   int   `json:"page_size,omitempty"`
	UnreadOnly *bool `json:"unread_only,omitempty"`

	// Overlap is "skip" (drop a tick while a cycle is still in flight) or "allow".
	Overlap string `json:"overlap,omitempty"`

	// TitleFallback replaces empty item titles. Default "New notification".
	TitleFallback string `json:"title_fallback,omitempty"`
}

// PresenterConfig selects how new notifications are shown.
//
// Driver values:
//   - "dbus": freedesktop desktop notifications (session bus)
//   - "telegram": forward to a Telegram chat (mirror to a phone)
//   - "log": log only (default)
type PresenterConfig struct {
	Driver     string                  `json:"driver"`
	AppName    string                  `json:"app_name,omitempty"`
	Icon       string                  `json:"icon,omitempty"`
	ExpireMS   int                     `json:"expire_ms,omitempty"`
	RatePerSec int                     `json:"rate_per_sec,omitempty"` // default 3
	Telegram   PresenterTelegramConfig `json:"telegram,omitempty"`
}

type PresenterTelegramConfig struct {
	Token    string `json:"token"` // do not log
	ChatID   int64  `json:"chat_id"`
	ThreadID int    `json:"thread_id,omitempty"`
	// APIURL overrides the Bot API endpoint (self-hosted bot API server).
	APIURL string `json:"api_url,omitempty"`
}

// BadgeConfig selects how the unread count is surfaced.
//
// Driver values:
//   - "dbus": Unity LauncherEntry count (most Linux docks)
//   - "file": write the integer to Path
//   - "log": log only (default)
type BadgeConfig struct {
	Driver string `json:"driver"`
	// AppURI identifies the launcher entry, e.g. "application://afterschool.desktop".
	AppURI string `json:"app_uri,omitempty"`
	Path   string `json:"path,omitempty"`
}

// ControlConfig controls the local HTTP control API (lifecycle + enable input).
//
// Security note: prefer a loopback address. If you bind elsewhere, set a token.
type ControlConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`  // default "127.0.0.1:7341"
	Token   string `json:"token,omitempty"` // optional bearer token (do not log)
	// Pprof exposes /debug/pprof on the control listener (behind Token).
	Pprof bool `json:"pprof,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}
