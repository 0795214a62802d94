package watcher

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "afterschool/pkg/logx"
)

// fixedDelay is a cron.Schedule that fires every d. Unlike cron.Every it does
// not round to whole seconds.
type fixedDelay time.Duration

func (d fixedDelay) Next(t time.Time) time.Time { return t.Add(time.Duration(d)) }

// Scheduler owns the repeating poll trigger.
//
// Start runs the job once right away and then every interval; Stop cancels the
// trigger. Stop does not wait for or abort a job that is already running.
type Scheduler struct {
	mu       sync.Mutex
	interval time.Duration
	log      logx.Logger

	c      *cron.Cron
	starts uint64
}

func NewScheduler(interval time.Duration, log logx.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Scheduler{interval: interval, log: log}
}

func (s *Scheduler) Interval() time.Duration { return s.interval }

// Start cancels any armed trigger, runs job immediately (in its own
// goroutine) and arms a new repeating trigger.
func (s *Scheduler) Start(job func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	kv := logx.KVLogger{L: s.log}
	c := cron.New(
		cron.WithLogger(kv),
		cron.WithChain(cron.Recover(kv)),
	)
	c.Schedule(fixedDelay(s.interval), cron.FuncJob(job))
	c.Start()
	s.c = c
	s.starts++

	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("poll job panicked", logx.Any("panic", r), logx.Stack(logx.StackTrace(3, 16)))
			}
		}()
		job()
	}()
	s.log.Debug("scheduler started", logx.Duration("interval", s.interval))
}

// Stop cancels the trigger. It is idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopLocked() {
		s.log.Debug("scheduler stopped")
	}
}

func (s *Scheduler) stopLocked() bool {
	if s.c == nil {
		return false
	}
	// Stop returns a context that ends when running jobs finish; we do not wait.
	_ = s.c.Stop()
	s.c = nil
	return true
}

// Running reports whether a trigger is armed.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c != nil
}

// Starts counts Start calls since construction.
func (s *Scheduler) Starts() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}
