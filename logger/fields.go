package logger

import (
	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across rfbridge.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity
	FieldComponent  = "component"
	FieldInstanceID = "instance_id"
	FieldStreamID   = "stream_id"
	FieldConnection = "connection_id"
	FieldConnHash   = "connection_hash"
	FieldBlockID    = "block_id"
	FieldPort       = "port"
	FieldDirection  = "direction"
	FieldStreamArgs = "stream_args"
	FieldGraph      = "graph"
	FieldConfigFile = "file"
	FieldConfigKey  = "key"

	// Data path
	FieldSamples   = "samples"
	FieldRequested = "requested"
	FieldFilled    = "filled"
	FieldEOB       = "eob"
	FieldEOS       = "eos"
	FieldAttempt   = "attempt"

	// Configuration
	FieldFFTSize      = "fft_size"
	FieldPrevious     = "previous"
	FieldMagnitudeOut = "magnitude_out"

	// Timing
	FieldTimeout    = "timeout"
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError     = "error"
	FieldErrorCode = "error_code"

	// Symbols
	FieldSymbol = "symbol"
)

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	c := &Component{
//	    logger: logger.ComponentLogger("bridge"),
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// ChildLogger creates a child logger with additional context.
//
// Example:
//
//	rxLog := logger.ChildLogger(baseLogger, logger.FieldDirection, "rx")
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return parent.With(keysAndValues...)
}
