//go:build unix

package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"afterschool/internal/watcher"
	logx "afterschool/pkg/logx"
)

// lifecycleSignals maps SIGUSR1 to background and SIGUSR2 to active, so a
// desktop session script can report screen lock and unlock.
func (a *App) lifecycleSignals(ctx context.Context) error {
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-ch:
			st := watcher.AppActive
			if sig == syscall.SIGUSR1 {
				st = watcher.AppBackground
			}
			a.log.Debug("lifecycle signal", logx.String("signal", sig.String()), logx.String("state", string(st)))
			a.watcher.AppStateChanged(st)
		}
	}
}
