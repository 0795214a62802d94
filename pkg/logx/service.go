package logx

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

const defaultLogFile = "./notifwatch.log"

type Config struct {
	Level   string
	Console bool
	File    FileConfig
}

type FileConfig struct {
	Enabled bool
	Path    string
}

// Service owns the process sinks. Apply may be called at any time; loggers
// obtained from New pick up the change on their next line.
type Service struct {
	mu   sync.Mutex
	file *os.File

	cur atomic.Pointer[zerolog.Logger]
}

func New(cfg Config) (*Service, Logger) {
	s := &Service{}
	s.Apply(cfg)
	return s, Logger{src: s}
}

func (s *Service) zl() zerolog.Logger {
	if p := s.cur.Load(); p != nil {
		return *p
	}
	return zerolog.Nop()
}

// Apply rebuilds the sinks. A log file that cannot be opened is reported on
// stderr and skipped; console output is used when nothing else is left.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sinks []io.Writer
	if cfg.Console {
		sinks = append(sinks, consoleWriter(os.Stdout))
	}

	prev := s.file
	s.file = nil
	if cfg.File.Enabled {
		path := strings.TrimSpace(cfg.File.Path)
		if path == "" {
			path = defaultLogFile
		}
		if prev != nil && prev.Name() == path {
			s.file, prev = prev, nil
		} else if f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "logx: open %s: %v\n", path, err)
		} else {
			s.file = f
		}
		if s.file != nil {
			sinks = append(sinks, zerolog.SyncWriter(s.file))
		}
	}
	if len(sinks) == 0 {
		sinks = append(sinks, consoleWriter(os.Stdout))
	}

	zl := newZerolog(zerolog.MultiLevelWriter(sinks...), cfg.Level)
	s.cur.Store(&zl)

	// Lines already in flight may still hold the old file; closing it late
	// only loses those.
	if prev != nil {
		_ = prev.Close()
	}
}

func (s *Service) Close() error {
	s.mu.Lock()
	f := s.file
	s.file = nil
	s.mu.Unlock()
	if f == nil {
		return nil
	}
	return f.Close()
}

func consoleWriter(w io.Writer) io.Writer {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: timeFormat}
	cw.FormatCaller = func(i interface{}) string {
		s, _ := i.(string)
		return s
	}
	return cw
}
