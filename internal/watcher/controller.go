package watcher

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"afterschool/internal/eventbus"
	"afterschool/internal/feed"
	logx "afterschool/pkg/logx"
)

const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// Event kinds published on the bus.
const (
	EventPhase     = "watcher.phase"
	EventCycle     = "watcher.cycle"
	EventPresented = "watcher.presented"
)

// PhaseChange is the payload of EventPhase.
type PhaseChange struct {
	From   Phase  `json:"from"`
	To     Phase  `json:"to"`
	Reason string `json:"reason"`
}

// Presented is the payload of EventPresented.
type Presented struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Channel string `json:"channel,omitempty"`
}

// Deps are the collaborators of a Controller. Presenter, Badge and Bus may be nil.
type Deps struct {
	Fetcher   Fetcher
	Presenter Presenter
	Badge     BadgeUpdater
	Log       logx.Logger
	Bus       eventbus.Bus
}

// state is owned by Controller and guarded by Controller.mu.
type state struct {
	phase       Phase
	enabled     bool
	appState    AppState
	knownIDs    map[string]struct{}
	hasBaseline bool
	epoch       uint64
}

// Controller is the watcher state machine. It is safe for concurrent use.
//
// The mutex is never held across a fetch or presenter call.
type Controller struct {
	cfg       Config
	fetcher   Fetcher
	presenter Presenter
	badge     BadgeUpdater
	log       logx.Logger
	bus       eventbus.Bus
	sched     *Scheduler

	// ctx is the parent of scheduled cycles; canceled by Close.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	inFlight atomic.Int32

	mu         sync.Mutex
	st         state
	// running counts in-flight cycles of the current epoch; the overlap
	// guard ignores cycles a reset has already made stale.
	running    int
	last       *CycleReport
	failStreak int
	closed     bool
}

func New(cfg Config, deps Deps) *Controller {
	cfg = cfg.withDefaults()
	log := deps.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		cfg:       cfg,
		fetcher:   deps.Fetcher,
		presenter: deps.Presenter,
		badge:     deps.Badge,
		log:       log,
		bus:       deps.Bus,
		sched:     NewScheduler(cfg.Interval, log.With(logx.String("comp", "scheduler"))),
		ctx:       ctx,
		cancel:    cancel,
		st: state{
			phase:    PhaseDisabled,
			appState: cfg.InitialAppState,
			knownIDs: map[string]struct{}{},
		},
	}
}

// SetEnabled turns the watcher on or off.
//
// Enabling resets the known ids and baseline and starts polling unless the
// app is backgrounded. Disabling stops the trigger and clears state before it
// returns; a cycle still in flight will find its epoch outdated and drop its
// results.
func (c *Controller) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.st.enabled == enabled {
		return
	}
	c.st.enabled = enabled
	c.resetLocked()

	if !enabled {
		c.sched.Stop()
		c.setPhaseLocked(PhaseDisabled, "disabled")
		return
	}
	if c.st.appState == AppBackground {
		c.setPhaseLocked(PhaseSuspended, "enabled while backgrounded")
		return
	}
	c.setPhaseLocked(PhasePolling, "enabled")
	c.sched.Start(c.scheduledJob)
}

// AppStateChanged feeds a host lifecycle transition into the state machine.
//
// Going to background suspends polling. Coming back to active from inactive
// or background restarts the scheduler, which polls immediately.
func (c *Controller) AppStateChanged(next AppState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	prev := c.st.appState
	c.st.appState = next

	switch {
	case next == AppBackground:
		if c.st.phase == PhasePolling {
			c.sched.Stop()
			c.setPhaseLocked(PhaseSuspended, "app backgrounded")
		}
	case next == AppActive && (prev == AppInactive || prev == AppBackground):
		if c.st.phase == PhaseDisabled {
			return
		}
		c.setPhaseLocked(PhasePolling, "app resumed")
		c.sched.Start(c.scheduledJob)
	}
}

// PollNow runs one cycle synchronously regardless of the app state.
// It returns the FetchError if the fetch failed.
func (c *Controller) PollNow(ctx context.Context) (CycleReport, error) {
	c.mu.Lock()
	closed, enabled := c.closed, c.st.enabled
	c.mu.Unlock()
	switch {
	case closed:
		return CycleReport{}, ErrClosed
	case !enabled:
		return CycleReport{}, ErrDisabled
	}
	return c.runCycle(ctx, TriggerManual)
}

// Status returns a snapshot of the controller.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{
		Phase:       c.st.phase,
		Enabled:     c.st.enabled,
		AppState:    c.st.appState,
		HasBaseline: c.st.hasBaseline,
		KnownIDs:    len(c.st.knownIDs),
		Epoch:       c.st.epoch,
		InFlight:    int(c.inFlight.Load()),
		Interval:    c.cfg.Interval.String(),
		FailStreak:  c.failStreak,
	}
	if c.last != nil {
		cp := *c.last
		st.LastCycle = &cp
	}
	return st
}

// KnownIDs returns a copy of the current known-id set.
func (c *Controller) KnownIDs() map[string]struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]struct{}, len(c.st.knownIDs))
	for id := range c.st.knownIDs {
		out[id] = struct{}{}
	}
	return out
}

// Close stops the watcher, discards its state and waits (up to ctx) for
// in-flight cycles, whose context is canceled.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.sched.Stop()
	c.st.enabled = false
	c.resetLocked()
	c.setPhaseLocked(PhaseDisabled, "closed")
	c.mu.Unlock()

	c.cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) resetLocked() {
	c.st.epoch++
	c.st.knownIDs = map[string]struct{}{}
	c.st.hasBaseline = false
	c.failStreak = 0
	c.running = 0
}

func (c *Controller) setPhaseLocked(to Phase, reason string) {
	from := c.st.phase
	c.st.phase = to
	if from == to {
		return
	}
	c.log.Info("watcher phase changed",
		logx.String("from", string(from)),
		logx.String("to", string(to)),
		logx.String("reason", reason),
	)
	c.publish(EventPhase, PhaseChange{From: from, To: to, Reason: reason})
}

func (c *Controller) scheduledJob() {
	_, _ = c.runCycle(c.ctx, TriggerScheduled)
}

// current reports whether a cycle begun under epoch may still write results.
func (c *Controller) current(epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.st.epoch == epoch && c.st.phase != PhaseDisabled
}

// runCycle performs fetch -> normalize -> diff -> present -> badge.
//
// Every failure is contained here: a fetch failure leaves state untouched,
// presentation and badge failures are counted and logged.
func (c *Controller) runCycle(ctx context.Context, trigger string) (CycleReport, error) {
	rep := CycleReport{ID: uuid.NewString(), Trigger: trigger, StartedAt: time.Now()}
	log := c.log.With(logx.String("cycle", rep.ID), logx.String("trigger", trigger))

	c.mu.Lock()
	runnable := !c.closed && c.st.phase != PhaseDisabled &&
		(trigger == TriggerManual || c.st.phase == PhasePolling)
	if !runnable {
		c.mu.Unlock()
		rep.Stale = true
		return rep, nil
	}
	c.wg.Add(1)
	defer c.wg.Done()
	if c.cfg.Overlap == OverlapSkipIfRunning && c.running > 0 {
		c.mu.Unlock()
		rep.Skipped = true
		log.Debug("poll skipped: previous cycle still running")
		return rep, nil
	}
	c.running++
	c.inFlight.Add(1)
	epoch := c.st.epoch
	c.mu.Unlock()
	defer c.release(epoch)

	if c.fetcher == nil {
		return c.finish(log, rep), nil
	}
	payload, err := c.fetcher.Fetch(ctx, c.cfg.Query)
	if err != nil {
		ferr := &FetchError{Err: err}
		rep.Err = ferr.Error()
		c.noteFetchFailure(log, ferr, epoch)
		return c.finish(log, rep), ferr
	}
	items, shape := feed.NormalizeShape(payload)
	rep.Shape, rep.Items = shape, len(items)

	c.mu.Lock()
	if c.closed || c.st.epoch != epoch || c.st.phase == PhaseDisabled {
		c.mu.Unlock()
		rep.Stale = true
		return c.finish(log, rep), nil
	}
	d := Diff(items, c.st.knownIDs, c.st.hasBaseline)
	rep.Baseline = !c.st.hasBaseline
	c.st.knownIDs = d.NextKnownIDs
	c.st.hasBaseline = d.NextHasBaseline
	recovered := c.failStreak
	c.failStreak = 0
	c.mu.Unlock()

	if recovered > 0 {
		log.Info("notification feed recovered", logx.Int("failed_polls", recovered))
	}

	for _, it := range d.NewlyAdded {
		rep.NewIDs = append(rep.NewIDs, it.ID)
	}
	// One at a time, in feed order.
	for _, it := range d.NewlyAdded {
		if !c.current(epoch) {
			rep.Stale = true
			return c.finish(log, rep), nil
		}
		if err := c.present(ctx, it); err != nil {
			rep.PresentErrs++
			log.Debug("presentation failed", logx.Err(err))
			continue
		}
		rep.Presented++
	}

	if !c.current(epoch) {
		rep.Stale = true
		return c.finish(log, rep), nil
	}
	rep.Unread = UnreadCount(items)
	if err := c.setBadge(ctx, rep.Unread); err != nil {
		rep.BadgeErr = err.Error()
		log.Debug("badge update failed", logx.Err(err))
	}
	return c.finish(log, rep), nil
}

func (c *Controller) release(epoch uint64) {
	c.inFlight.Add(-1)
	c.mu.Lock()
	if c.st.epoch == epoch && c.running > 0 {
		c.running--
	}
	c.mu.Unlock()
}

func (c *Controller) present(ctx context.Context, it feed.Item) error {
	if c.presenter == nil {
		return nil
	}
	p := BuildPresentation(it, c.cfg.TitleFallback)
	if err := c.presenter.Present(ctx, p); err != nil {
		return &PresentationError{ItemID: it.ID, Err: err}
	}
	c.publish(EventPresented, Presented{ID: it.ID, Title: p.Title, Channel: p.Channel})
	return nil
}

func (c *Controller) setBadge(ctx context.Context, n int) error {
	if c.badge == nil {
		return nil
	}
	if err := c.badge.SetBadge(ctx, n); err != nil {
		return &BadgeError{Count: n, Err: err}
	}
	return nil
}

func (c *Controller) noteFetchFailure(log logx.Logger, err error, epoch uint64) {
	c.mu.Lock()
	if c.st.epoch != epoch {
		c.mu.Unlock()
		log.Debug("notification poll failed in a stale cycle", logx.Err(err))
		return
	}
	c.failStreak++
	n := c.failStreak
	c.mu.Unlock()
	if n == 1 {
		log.Warn("notification poll failed", logx.Err(err))
		return
	}
	log.Debug("notification poll failed", logx.Err(err), logx.Int("streak", n))
}

func (c *Controller) finish(log logx.Logger, rep CycleReport) CycleReport {
	rep.Took = time.Since(rep.StartedAt)

	c.mu.Lock()
	cp := rep
	c.last = &cp
	c.mu.Unlock()

	c.publish(EventCycle, rep)
	if rep.Err == "" && !rep.Stale {
		log.Debug("poll cycle done",
			logx.Int("items", rep.Items),
			logx.Bool("baseline", rep.Baseline),
			logx.Int("new", len(rep.NewIDs)),
			logx.Int("presented", rep.Presented),
			logx.Int("unread", rep.Unread),
			logx.Duration("took", rep.Took),
		)
	}
	return rep
}

func (c *Controller) publish(kind string, payload any) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(eventbus.Event{Kind: kind, At: time.Now(), Payload: payload})
}
