package logx

import (
	"io"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

type Level = zerolog.Level

const (
	LevelTrace = zerolog.TraceLevel
	LevelDebug = zerolog.DebugLevel
	LevelInfo  = zerolog.InfoLevel
	LevelWarn  = zerolog.WarnLevel
	LevelError = zerolog.ErrorLevel
)

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

func init() {
	zerolog.TimeFieldFormat = timeFormat
	zerolog.ErrorFieldName = "err"
}

// source yields the zerolog logger a Logger writes through.
type source interface {
	zl() zerolog.Logger
}

type fixed zerolog.Logger

func (f fixed) zl() zerolog.Logger { return zerolog.Logger(f) }

// Logger is a value type; copies are cheap. The zero value discards
// everything.
type Logger struct {
	src    source
	fields []Field
}

func Nop() Logger { return Logger{src: fixed(zerolog.Nop())} }

// NewWriter returns a JSON logger on w that is not tied to a Service.
func NewWriter(w io.Writer, level string) Logger {
	return Logger{src: fixed(newZerolog(w, level))}
}

func (l Logger) IsZero() bool { return l.src == nil && len(l.fields) == 0 }

func (l Logger) zl() zerolog.Logger {
	if l.src == nil {
		return zerolog.Nop()
	}
	return l.src.zl()
}

func (l Logger) Enabled(level Level) bool { return level >= l.zl().GetLevel() }

// With returns a child logger that adds fields to every line.
func (l Logger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	child := l
	child.fields = make([]Field, 0, len(l.fields)+len(fields))
	child.fields = append(append(child.fields, l.fields...), fields...)
	return child
}

func (l Logger) Trace(msg string, fields ...Field) { l.emit(LevelTrace, msg, fields) }
func (l Logger) Debug(msg string, fields ...Field) { l.emit(LevelDebug, msg, fields) }
func (l Logger) Info(msg string, fields ...Field)  { l.emit(LevelInfo, msg, fields) }
func (l Logger) Warn(msg string, fields ...Field)  { l.emit(LevelWarn, msg, fields) }
func (l Logger) Error(msg string, fields ...Field) { l.emit(LevelError, msg, fields) }

func (l Logger) emit(level Level, msg string, fields []Field) {
	zl := l.zl()
	e := zl.WithLevel(level)
	if e == nil {
		return
	}
	// emit <- Info/Debug/... <- call site
	if _, file, line, ok := runtime.Caller(2); ok {
		e.Str(zerolog.CallerFieldName, filepath.Base(file)+":"+strconv.Itoa(line))
	}
	for _, set := range [][]Field{l.fields, fields} {
		for _, f := range set {
			if f != nil {
				f(e)
			}
		}
	}
	e.Msg(msg)
}

// StackTrace renders up to max frames of the calling goroutine, one
// "function\n  file:line" pair per frame.
func StackTrace(skip, max int) string {
	if max <= 0 {
		max = 16
	}
	pcs := make([]uintptr, max)
	frames := runtime.CallersFrames(pcs[:runtime.Callers(skip, pcs)])
	lines := make([]string, 0, max)
	for len(lines) < max {
		fr, more := frames.Next()
		if fr.File != "" {
			lines = append(lines, fr.Function+"\n  "+fr.File+":"+strconv.Itoa(fr.Line))
		}
		if !more {
			break
		}
	}
	return strings.Join(lines, "\n")
}

// ValidLevel reports whether s names a level. Empty means the default.
func ValidLevel(s string) bool {
	_, ok := lookupLevel(s)
	return ok || strings.TrimSpace(s) == ""
}

func lookupLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, true
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	}
	return LevelInfo, false
}

func newZerolog(w io.Writer, level string) zerolog.Logger {
	lvl, _ := lookupLevel(level)
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
