package app

import "sync"

// enableGate combines the inputs of the watcher's enable flag: the config
// switch, a manual override from the control API and whether the session is
// authenticated. The override replaces the config switch; neither can enable
// the watcher without a session.
type enableGate struct {
	mu       sync.Mutex
	config   bool
	override *bool
}

func (g *enableGate) setConfig(v bool) {
	g.mu.Lock()
	g.config = v
	g.mu.Unlock()
}

func (g *enableGate) setOverride(v *bool) {
	g.mu.Lock()
	if v == nil {
		g.override = nil
	} else {
		b := *v
		g.override = &b
	}
	g.mu.Unlock()
}

func (g *enableGate) effective(authenticated bool) bool {
	if !authenticated {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.override != nil {
		return *g.override
	}
	return g.config
}
