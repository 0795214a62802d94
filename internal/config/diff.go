package config

import (
	"reflect"
	"strings"

	logx "afterschool/pkg/logx"
)

// SummarizeChange lists the top-level sections that differ between two configs
// together with safe fields for logging. Secrets (tokens) are never included;
// only whether they are set.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	var (
		changed []string
		attrs   []logx.Field
	)
	if !reflect.DeepEqual(oldCfg.API, newCfg.API) {
		changed = append(changed, "api")
		attrs = append(attrs, logx.String("api.base_url", strings.TrimSpace(newCfg.API.BaseURL)))
	}
	if oldCfg.Session.Token != newCfg.Session.Token {
		changed = append(changed, "session")
		attrs = append(attrs, logx.Bool("session.token_set", strings.TrimSpace(newCfg.Session.Token) != ""))
	}
	if !reflect.DeepEqual(oldCfg.Watcher, newCfg.Watcher) {
		changed = append(changed, "watcher")
		attrs = append(attrs,
			logx.Bool("watcher.enabled", newCfg.Watcher.Enabled),
			logx.String("watcher.interval", strings.TrimSpace(newCfg.Watcher.Interval)),
		)
	}
	if !reflect.DeepEqual(oldCfg.Presenter, newCfg.Presenter) {
		changed = append(changed, "presenter")
		attrs = append(attrs, logx.String("presenter.driver", newCfg.Presenter.Driver))
	}
	if oldCfg.Badge != newCfg.Badge {
		changed = append(changed, "badge")
		attrs = append(attrs, logx.String("badge.driver", newCfg.Badge.Driver))
	}
	if oldCfg.Control != newCfg.Control {
		changed = append(changed, "control")
		attrs = append(attrs,
			logx.Bool("control.enabled", newCfg.Control.Enabled),
			logx.String("control.addr", newCfg.Control.Addr),
			logx.Bool("control.token_set", newCfg.Control.Token != ""),
		)
	}
	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}
	return changed, attrs
}
