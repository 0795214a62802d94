// Package app wires the notification watcher to its drivers, the control API,
// config hot reload, lifecycle signals and systemd.
package app

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"afterschool/internal/badge"
	"afterschool/internal/config"
	"afterschool/internal/control"
	"afterschool/internal/eventbus"
	"afterschool/internal/feed"
	"afterschool/internal/presenter"
	"afterschool/internal/runtime/supervisor"
	"afterschool/internal/session"
	"afterschool/internal/watcher"
	logx "afterschool/pkg/logx"
)

const (
	eventHistory       = 200
	sessionCheckPeriod = 15 * time.Second
)

type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service

	bus    eventbus.Bus
	events *eventbus.Ring

	session   *session.Store
	gate      *enableGate
	presenter presenter.Driver
	badge     badge.Driver
	watcher   *watcher.Controller
	control   *control.Server

	enabledMu sync.Mutex
	enabled   bool
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error { return validate(cfg) })
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	// validate already ran; these cannot fail here.
	timeout, _ := mapAPITimeout(cfg)
	wcfg, _ := mapWatcherConfig(cfg)
	pcfg, _ := mapPresenterConfig(cfg)
	bcfg, _ := mapBadgeConfig(cfg)

	sess := session.NewStore()
	sess.Set(cfg.Session.Token)

	client := feed.NewClient(cfg.API.BaseURL, &http.Client{Timeout: timeout},
		feed.WithFeedPath(cfg.API.FeedPath),
		feed.WithTokenSource(sess.Token),
	)

	pres, err := presenter.New(pcfg, log)
	if err != nil {
		logSvc.Close()
		return nil, err
	}
	bdg, err := badge.New(bcfg, log)
	if err != nil {
		_ = pres.Close()
		logSvc.Close()
		return nil, err
	}

	fetcher := &sessionFetcher{next: client, sess: sess}
	bus := eventbus.New()
	w := watcher.New(wcfg, watcher.Deps{
		Fetcher:   fetcher,
		Presenter: pres,
		Badge:     bdg,
		Log:       log.With(logx.String("comp", "watcher")),
		Bus:       bus,
	})

	a := &App{
		cfgm:      cfgm,
		log:       log.With(logx.String("comp", "app")),
		logs:      logSvc,
		bus:       bus,
		events:    eventbus.NewRing(eventHistory),
		session:   sess,
		gate:      &enableGate{config: cfg.Watcher.Enabled},
		presenter: pres,
		badge:     bdg,
		watcher:   w,
	}
	fetcher.rejected = a.sessionRejected
	if cfg.Control.Enabled {
		ccfg, _ := mapControlConfig(cfg)
		a.control = control.New(ccfg, control.Deps{
			Watcher: w,
			Enabler: a,
			Events:  a.events,
			Health:  a.health,
			Log:     log,
		})
	}
	return a, nil
}

// Watcher exposes the controller (status, manual polls).
func (a *App) Watcher() *watcher.Controller { return a.watcher }

// Done is closed when the app supervisor context is canceled (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))),
		supervisor.WithCancelOnError(true),
	)

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go("events.record", func(c context.Context) error {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return nil
			case e, ok := <-events:
				if !ok {
					return nil
				}
				a.events.Add(e)
				a.log.Trace("event", logx.String("kind", e.Kind), logx.Time("at", e.At))
			}
		}
	})

	a.syncEnabled("startup")

	sub := a.cfgm.Subscribe(8)
	a.sup.Go("config.reload", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
		return nil
	})
	a.sup.GoRestart("config.watch", a.cfgm.Watch)
	a.sup.Go("session.expiry", a.sessionLoop)
	a.sup.Go("lifecycle.signals", a.lifecycleSignals)
	if a.control != nil {
		a.sup.GoRestart("control.api", a.control.Run, supervisor.WithMaxRestarts(5))
	}

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Warn("systemd notify failed", logx.Err(err))
	} else if sent {
		a.log.Debug("systemd notified ready")
	}
	if interval, err := daemon.SdWatchdogEnabled(false); err == nil && interval > 0 {
		a.sup.Go("systemd.watchdog", func(c context.Context) error {
			return a.watchdogLoop(c, interval/2)
		})
	}

	st := a.watcher.Status()
	a.log.Info("app started",
		logx.String("phase", string(st.Phase)),
		logx.String("interval", st.Interval),
		logx.String("presenter", a.presenter.Name()),
		logx.String("badge", a.badge.Name()),
	)
	return nil
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	a.sup.Cancel()

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()
		if err := fn(stepCtx); err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	}

	step("watcher", 3*time.Second, a.watcher.Close)
	step("supervisor", 3*time.Second, a.sup.Wait)
	step("presenter", time.Second, func(context.Context) error { return a.presenter.Close() })
	step("badge", time.Second, func(context.Context) error { return a.badge.Close() })

	a.log.Info("stopped")
	if a.logs != nil {
		a.logs.Close()
	}
	return nil
}

// SetOverride implements control.Enabler.
func (a *App) SetOverride(v *bool) bool {
	a.gate.setOverride(v)
	return a.syncEnabled("control override")
}

// syncEnabled pushes the effective enable flag to the watcher and returns it.
func (a *App) syncEnabled(reason string) bool {
	auth := a.session.Authenticated()
	eff := a.gate.effective(auth)

	a.enabledMu.Lock()
	changed := eff != a.enabled
	a.enabled = eff
	a.watcher.SetEnabled(eff)
	a.enabledMu.Unlock()

	if changed {
		a.log.Info("watcher enable flag changed",
			logx.Bool("enabled", eff),
			logx.Bool("authenticated", auth),
			logx.String("reason", reason),
		)
	}
	return eff
}

// sessionLoop re-evaluates the enable flag so an expiring token turns the
// watcher off.
func (a *App) sessionLoop(ctx context.Context) error {
	t := time.NewTicker(sessionCheckPeriod)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			a.syncEnabled("session check")
		}
	}
}

// sessionRejected runs inside a poll cycle after the feed answered 401/403.
func (a *App) sessionRejected() {
	a.log.Warn("feed rejected the session token; watcher disabled until the token changes")
	a.syncEnabled("session rejected")
}

func (a *App) watchdogLoop(ctx context.Context, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
				return fmt.Errorf("watchdog notify: %w", err)
			}
		}
	}
}

func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	last := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case next, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: keep only the latest config.
		drain:
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						next = newer
					}
				default:
					break drain
				}
			}
			a.applyConfig(last, next)
			last = next
		}
	}
}

// applyConfig applies what can change at runtime (logging, session token,
// enable switch) and warns about the rest.
func (a *App) applyConfig(prev, next *config.Config) {
	sections, attrs := config.SummarizeChange(prev, next)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}

	a.logs.Apply(mapLogConfig(next))

	if prev.Session.Token != next.Session.Token {
		a.session.Set(next.Session.Token)
	}
	a.gate.setConfig(next.Watcher.Enabled)
	a.syncEnabled("config reload")

	if restart := restartRequired(prev, next); len(restart) > 0 {
		a.log.Warn("config changed; restart required for changes to take effect",
			logx.String("sections", strings.Join(restart, ",")))
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

// restartRequired lists sections whose changes are only picked up at startup.
func restartRequired(prev, next *config.Config) []string {
	var out []string
	if !reflect.DeepEqual(prev.API, next.API) {
		out = append(out, "api")
	}
	pw, nw := prev.Watcher, next.Watcher
	pw.Enabled, nw.Enabled = false, false
	if !reflect.DeepEqual(pw, nw) {
		out = append(out, "watcher")
	}
	if !reflect.DeepEqual(prev.Presenter, next.Presenter) {
		out = append(out, "presenter")
	}
	if !reflect.DeepEqual(prev.Badge, next.Badge) {
		out = append(out, "badge")
	}
	if !reflect.DeepEqual(prev.Control, next.Control) {
		out = append(out, "control")
	}
	return out
}

// health is served by the control API.
func (a *App) health() any {
	out := map[string]any{"tasks": a.sup.Tasks(), "config": a.cfgm.Path()}
	if err := a.sup.Err(); err != nil {
		out["err"] = err.Error()
	}
	if d, ok := a.session.Until(); ok {
		out["session_expires_in"] = d.Round(time.Second).String()
	}
	return out
}
