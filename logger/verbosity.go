package logger

import "go.uber.org/zap/zapcore"

// CLI verbosity, counted from repeated -v flags.
const (
	VerbosityUser  = 0 // warnings and errors
	VerbosityInfo  = 1 // stream open/close, config changes
	VerbosityDebug = 2 // stream arguments, reacquisition detail
	VerbosityTrace = 3 // one line per RX batch and TX send
)

// VerbosityToLevel maps a -v count to a zap level. Anything past -vv is
// DebugLevel; trace lines are switched on separately with ShouldLogTrace.
func VerbosityToLevel(verbosity int) zapcore.Level {
	switch {
	case verbosity <= VerbosityUser:
		return zapcore.WarnLevel
	case verbosity == VerbosityInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// ShouldLogTrace reports whether per-batch lines are wanted (-vvv).
func ShouldLogTrace(verbosity int) bool {
	return verbosity >= VerbosityTrace
}

// LevelName describes a -v count for status output.
func LevelName(verbosity int) string {
	switch {
	case verbosity < VerbosityUser:
		return "Unknown"
	case verbosity == VerbosityUser:
		return "User"
	case verbosity == VerbosityInfo:
		return "Info (-v)"
	case verbosity == VerbosityDebug:
		return "Debug (-vv)"
	case verbosity == VerbosityTrace:
		return "Trace (-vvv)"
	default:
		return "Trace (-vvv+)"
	}
}
