package session

import "go.uber.org/zap"

// Level classifies a debug sink record (spec.md §3: "an optional debug
// sink (message, level)").
type Level int

// Debug sink severities, ordered least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// DebugSink receives a free-form message and its severity. It follows the
// teacher library's functional-hook tracing style
// (client.ClientTrace.Error in github.com/damianoneill/net/v2/netconf/client/trace.go)
// rather than an interface, so a caller can plug in a single closure.
type DebugSink func(message string, level Level)

// NoOpDebugSink discards every record. It is the default when a session
// is created without one.
var NoOpDebugSink DebugSink = func(string, Level) {}

// ZapDebugSink adapts a *zap.Logger to the DebugSink contract, the
// structured-logging backend SPEC_FULL.md's ambient-stack section wires
// in (promoted from the teacher's plain `log.Printf` hooks, the same way
// luma-pharos backs its own request logging with go.uber.org/zap).
func ZapDebugSink(logger *zap.Logger) DebugSink {
	if logger == nil {
		return NoOpDebugSink
	}
	return func(message string, level Level) {
		switch level {
		case LevelDebug:
			logger.Debug(message)
		case LevelInfo:
			logger.Info(message)
		case LevelWarn:
			logger.Warn(message)
		case LevelError:
			logger.Error(message)
		}
	}
}
