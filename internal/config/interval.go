package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var reHHMM = regexp.MustCompile(`^\s*(\d{1,3}):(\d{2})\s*$`)

// ParseInterval parses a fixed poll interval.
//
// Supported forms:
//   - Go duration: "45s", "2m30s"
//   - Prefixed: "interval:45s", "every:45s"
//   - Cron descriptor: "@every 45s"
//   - HH:MM: "00:05" (5 minutes), "01:30" (1 hour 30 minutes)
//
// Calendar cron expressions are rejected: the watcher needs a constant delay.
func ParseInterval(raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("interval required")
	}

	low := strings.ToLower(s)
	for _, p := range []string{"interval:", "every:"} {
		if strings.HasPrefix(low, p) {
			s = strings.TrimSpace(s[len(p):])
			low = strings.ToLower(s)
			break
		}
	}

	if strings.HasPrefix(low, "@") {
		sched, err := cron.ParseStandard(s)
		if err != nil {
			return 0, fmt.Errorf("invalid interval %q: %w", raw, err)
		}
		every, ok := sched.(cron.ConstantDelaySchedule)
		if !ok {
			return 0, fmt.Errorf("invalid interval %q: only @every is supported", raw)
		}
		return every.Delay, nil
	}

	if reHHMM.MatchString(s) {
		return parseHHMMDuration(s)
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q (use duration like '45s', '@every 45s' or HH:MM)", raw)
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval must be > 0")
	}
	return d, nil
}

func parseHHMMDuration(v string) (time.Duration, error) {
	m := reHHMM.FindStringSubmatch(v)
	if len(m) != 3 {
		return 0, fmt.Errorf("invalid HH:MM %q", v)
	}
	var hh int
	for i := 0; i < len(m[1]); i++ {
		hh = hh*10 + int(m[1][i]-'0')
	}
	mm := int(m[2][0]-'0')*10 + int(m[2][1]-'0')
	if mm > 59 {
		return 0, fmt.Errorf("invalid minutes in %q", v)
	}
	d := time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
	if d <= 0 {
		return 0, fmt.Errorf("interval must be > 0")
	}
	return d, nil
}
