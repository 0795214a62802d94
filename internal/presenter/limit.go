package presenter

import (
	"context"

	"golang.org/x/time/rate"

	"afterschool/internal/watcher"
)

const defaultRatePerSec = 3

// Limited throttles Present calls of the wrapped driver.
type Limited struct {
	next    Driver
	limiter *rate.Limiter
}

// NewLimited wraps d. ratePerSec <= 0 uses the default.
func NewLimited(d Driver, ratePerSec int) *Limited {
	if ratePerSec <= 0 {
		ratePerSec = defaultRatePerSec
	}
	// burst = rate so a small batch after a long idle goes out at once.
	return &Limited{next: d, limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec)}
}

// Present waits for a token (honoring ctx) and forwards to the driver.
func (l *Limited) Present(ctx context.Context, p watcher.Presentation) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}
	return l.next.Present(ctx, p)
}

func (l *Limited) Name() string   { return l.next.Name() }
func (l *Limited) Close() error   { return l.next.Close() }
func (l *Limited) Unwrap() Driver { return l.next }
