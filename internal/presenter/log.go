package presenter

import (
	"context"

	"afterschool/internal/watcher"
	logx "afterschool/pkg/logx"
)

// Log presents notifications as log lines.
type Log struct {
	log logx.Logger
}

func NewLog(log logx.Logger) *Log {
	return &Log{log: log.With(logx.String("comp", "presenter"))}
}

func (l *Log) Name() string { return "log" }
func (l *Log) Close() error { return nil }

func (l *Log) Present(_ context.Context, p watcher.Presentation) error {
	fields := []logx.Field{
		logx.String("id", p.Data.NotificationID),
		logx.String("title", p.Title),
		logx.String("body", p.Body),
	}
	if p.Data.Type != "" {
		fields = append(fields, logx.String("type", p.Data.Type))
	}
	if p.Channel != "" {
		fields = append(fields, logx.String("channel", p.Channel))
	}
	if p.Priority != "" {
		fields = append(fields, logx.String("priority", p.Priority))
	}
	l.log.Info("notification", fields...)
	return nil
}
