package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"afterschool/internal/feed"
)

// AppState is the host application's lifecycle state.
type AppState string

const (
	AppActive     AppState = "active"
	AppInactive   AppState = "inactive"
	AppBackground AppState = "background"
)

// ParseAppState accepts "active", "inactive" and "background" (case-insensitive).
func ParseAppState(s string) (AppState, error) {
	switch st := AppState(strings.ToLower(strings.TrimSpace(s))); st {
	case AppActive, AppInactive, AppBackground:
		return st, nil
	default:
		return "", fmt.Errorf("unknown app state %q", s)
	}
}

// Phase is the controller's state-machine phase.
type Phase string

const (
	PhaseDisabled  Phase = "disabled"
	PhasePolling   Phase = "polling"
	PhaseSuspended Phase = "suspended"
)

// OverlapPolicy decides what happens when a tick fires while a cycle is still running.
type OverlapPolicy int

const (
	OverlapSkipIfRunning OverlapPolicy = iota
	OverlapAllow
)

// ParseOverlap accepts "skip" (default when empty) and "allow".
func ParseOverlap(s string) (OverlapPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "skip":
		return OverlapSkipIfRunning, nil
	case "allow":
		return OverlapAllow, nil
	default:
		return 0, fmt.Errorf("unknown overlap policy %q (use skip or allow)", s)
	}
}

// Fetcher returns one page of the feed in any shape feed.Normalize accepts.
type Fetcher interface {
	Fetch(ctx context.Context, q feed.Query) (json.RawMessage, error)
}

// Presenter shows one local notification.
type Presenter interface {
	Present(ctx context.Context, p Presentation) error
}

// BadgeUpdater sets the unread badge.
type BadgeUpdater interface {
	SetBadge(ctx context.Context, count int) error
}

// Presentation is what a Presenter receives for one new item.
type Presentation struct {
	Title string
	Body  string
	Data  PresentationData
	// Channel is empty when the item names none.
	Channel  string
	Priority string
}

// PresentationData is the payload attached to a presented notification so a
// tap can be routed back to the item.
type PresentationData struct {
	NotificationID string         `json:"notificationId"`
	Type           string         `json:"type"`
	Data           map[string]any `json:"data"`
}

// Config controls a Controller.
type Config struct {
	Interval        time.Duration // default 45s
	Query           feed.Query    // default feed.DefaultQuery()
	Overlap         OverlapPolicy
	TitleFallback   string   // default DefaultTitle
	InitialAppState AppState // default AppActive
}

const (
	DefaultInterval = 45 * time.Second
	DefaultTitle    = "New notification"
)

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Query == (feed.Query{}) {
		c.Query = feed.DefaultQuery()
	}
	if strings.TrimSpace(c.TitleFallback) == "" {
		c.TitleFallback = DefaultTitle
	}
	if c.InitialAppState == "" {
		c.InitialAppState = AppActive
	}
	return c
}

// CycleReport summarizes one poll cycle.
type CycleReport struct {
	ID        string        `json:"id"`
	Trigger   string        `json:"trigger"`
	StartedAt time.Time     `json:"started_at"`
	Took      time.Duration `json:"took"`

	Shape    string   `json:"shape,omitempty"`
	Items    int      `json:"items"`
	Baseline bool     `json:"baseline"` // this cycle established the baseline
	NewIDs   []string `json:"new_ids,omitempty"`
	Unread   int      `json:"unread"`

	Presented   int `json:"presented"`
	PresentErrs int `json:"present_errors"`

	Err      string `json:"err,omitempty"`       // fetch failure; state unchanged
	BadgeErr string `json:"badge_err,omitempty"` // swallowed
	Stale    bool   `json:"stale,omitempty"`     // disabled/re-enabled mid-cycle; results dropped
	Skipped  bool   `json:"skipped,omitempty"`   // overlap policy skipped this tick
}

// Status is a point-in-time view of a Controller.
type Status struct {
	Phase       Phase        `json:"phase"`
	Enabled     bool         `json:"enabled"`
	AppState    AppState     `json:"app_state"`
	HasBaseline bool         `json:"has_baseline"`
	KnownIDs    int          `json:"known_ids"`
	Epoch       uint64       `json:"epoch"`
	InFlight    int          `json:"in_flight"`
	Interval    string       `json:"interval"`
	FailStreak  int          `json:"fail_streak"`
	LastCycle   *CycleReport `json:"last_cycle,omitempty"`
}
