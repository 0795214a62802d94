// Package logx is the structured logger used across afterschool.
//
// Logger wraps zerolog. Loggers handed out by a Service follow its sinks, so a
// config reload that changes the level or the log file reaches every
// component without rebuilding them.
package logx
