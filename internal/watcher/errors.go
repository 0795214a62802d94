package watcher

import (
	"errors"
	"fmt"
)

// ErrDisabled is returned by PollNow while the watcher is disabled.
var ErrDisabled = errors.New("watcher disabled")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("watcher closed")

// FetchError wraps a feed fetch failure (network, status, or parse).
// A cycle that fails with it leaves the known ids and baseline untouched.
type FetchError struct{ Err error }

func (e *FetchError) Error() string { return "fetch notifications: " + e.Err.Error() }
func (e *FetchError) Unwrap() error { return e.Err }

// PresentationError wraps a failure to present one item.
type PresentationError struct {
	ItemID string
	Err    error
}

func (e *PresentationError) Error() string {
	return fmt.Sprintf("present notification %q: %v", e.ItemID, e.Err)
}
func (e *PresentationError) Unwrap() error { return e.Err }

// BadgeError wraps a failure to set the unread badge.
type BadgeError struct {
	Count int
	Err   error
}

func (e *BadgeError) Error() string { return fmt.Sprintf("set badge %d: %v", e.Count, e.Err) }
func (e *BadgeError) Unwrap() error { return e.Err }
