package badge

import (
	"context"
	"sync"

	logx "afterschool/pkg/logx"
)

// Log reports badge changes as log lines. Repeated counts are not logged.
type Log struct {
	log logx.Logger

	mu   sync.Mutex
	last int
	set  bool
}

func NewLog(log logx.Logger) *Log {
	return &Log{log: log.With(logx.String("comp", "badge"))}
}

func (l *Log) Name() string { return "log" }
func (l *Log) Close() error { return nil }

func (l *Log) SetBadge(_ context.Context, n int) error {
	l.mu.Lock()
	changed := !l.set || l.last != n
	l.last, l.set = n, true
	l.mu.Unlock()
	if changed {
		l.log.Info("unread badge", logx.Int("count", n))
	}
	return nil
}
