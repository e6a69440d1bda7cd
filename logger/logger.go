package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the process-wide logger; a no-op until Initialize
	Logger *zap.SugaredLogger
	// JSONOutput records whether the last Initialize chose JSON
	JSONOutput bool

	// level is shared by every logger built from Logger, so SetVerbosity
	// reaches named children too
	level  = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	output = zapcore.Lock(os.Stdout)
)

func init() {
	Logger = zap.NewNop().Sugar()
}

// Initialize sets up the global logger at info level
func Initialize(jsonOutput bool) error {
	return InitializeWithLevel(jsonOutput, zapcore.InfoLevel)
}

// InitializeWithVerbosity sets up the global logger with a level derived from -v flag counts
func InitializeWithVerbosity(jsonOutput bool, verbosity int) error {
	return InitializeWithLevel(jsonOutput, VerbosityToLevel(verbosity))
}

// InitializeWithLevel sets up the global logger at an explicit level. JSON
// output uses zap's production encoder; otherwise the minimal console
// encoder colours lines with the current theme.
func InitializeWithLevel(jsonOutput bool, lvl zapcore.Level) error {
	JSONOutput = jsonOutput
	if theme := os.Getenv("RFBRIDGE_LOG_THEME"); theme != "" {
		SetTheme(theme)
	}

	var enc zapcore.Encoder
	if jsonOutput {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(cfg)
	} else {
		enc = newMinimalEncoder()
	}

	level.SetLevel(lvl)
	Logger = zap.New(zapcore.NewCore(enc, output, level), zap.ErrorOutput(zapcore.Lock(os.Stderr))).Sugar()
	return nil
}

// SetVerbosity changes the level of the global logger and of every logger
// already derived from it.
func SetVerbosity(verbosity int) {
	level.SetLevel(VerbosityToLevel(verbosity))
}

// Cleanup flushes any buffered log entries
func Cleanup() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

// Infow logs an info message with structured fields
func Infow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Infow(msg, keysAndValues...)
	}
}

// Errorw logs an error message with structured fields
func Errorw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Errorw(msg, keysAndValues...)
	}
}

// Warnw logs a warning message with structured fields
func Warnw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Warnw(msg, keysAndValues...)
	}
}

// Debugw logs a debug message with structured fields
func Debugw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Debugw(msg, keysAndValues...)
	}
}
