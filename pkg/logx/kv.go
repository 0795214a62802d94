package logx

import "fmt"

// KVLogger adapts Logger to libraries that log with alternating key/value
// pairs (robfig/cron's cron.Logger interface, for example).
//
// Info is emitted at debug level: cron reports every wake-up through it.
type KVLogger struct {
	L Logger
}

func (k KVLogger) Info(msg string, keysAndValues ...interface{}) {
	k.L.Debug(msg, kvFields(keysAndValues)...)
}

func (k KVLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	k.L.Warn(msg, append(kvFields(keysAndValues), Err(err))...)
}

func kvFields(kv []interface{}) []Field {
	out := make([]Field, 0, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		if i+1 >= len(kv) {
			out = append(out, String(key, "<missing>"))
			break
		}
		out = append(out, Any(key, kv[i+1]))
	}
	return out
}
