//go:build !unix

package app

import "context"

// lifecycleSignals is a no-op where SIGUSR1/SIGUSR2 do not exist; use the
// control API instead.
func (a *App) lifecycleSignals(context.Context) error { return nil }
