package logger

import "time"

// NoopLogger discards every log event. It is the default logger for library
// components when the caller does not provide one.
type NoopLogger struct{}

var _ Logger = NoopLogger{}

// NewNoop returns a logger that drops all events.
func NewNoop() NoopLogger {
	return NoopLogger{}
}

func (NoopLogger) Info() LogEvent  { return noopEvent{} }
func (NoopLogger) Error() LogEvent { return noopEvent{} }
func (NoopLogger) Debug() LogEvent { return noopEvent{} }
func (NoopLogger) Warn() LogEvent  { return noopEvent{} }

func (n NoopLogger) WithFields(_ map[string]any) Logger { return n }

type noopEvent struct{}

func (noopEvent) Msg(string)          {}
func (noopEvent) Msgf(string, ...any) {}

func (e noopEvent) Err(error) LogEvent                 { return e }
func (e noopEvent) Str(string, string) LogEvent        { return e }
func (e noopEvent) Int(string, int) LogEvent           { return e }
func (e noopEvent) Bool(string, bool) LogEvent         { return e }
func (e noopEvent) Dur(string, time.Duration) LogEvent { return e }
func (e noopEvent) Interface(string, any) LogEvent     { return e }
