package logger

import (
	"github.com/teranos/rfbridge/sym"
	"go.uber.org/zap"
)

// Symbol-aware logging helpers.
// These wrap a logger with the symbol as a structured field, not in the message,
// which keeps RX and TX lines queryable by direction.
//
// Usage:
//
//	rxLog := logger.AddRXSymbol(base)
//	rxLog.Warnw("Overflow while streaming", logger.FieldSamples, n)

// AddRXSymbol wraps a logger with the RX symbol (⇣)
func AddRXSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.RX)
}

// AddTXSymbol wraps a logger with the TX symbol (⇡)
func AddTXSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.TX)
}

// AddSRISymbol wraps a logger with the SRI symbol (≋)
func AddSRISymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.SRI)
}

// AddGateSymbol wraps a logger with the configuration gate symbol (⊡)
func AddGateSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.Gate)
}

// OpenInfow logs an info message with the Open symbol (✿)
func OpenInfow(l *zap.SugaredLogger, msg string, keysAndValues ...interface{}) {
	if l != nil {
		fields := append([]interface{}{FieldSymbol, sym.Open}, keysAndValues...)
		l.Infow(msg, fields...)
	}
}

// CloseInfow logs an info message with the Close symbol (❀)
func CloseInfow(l *zap.SugaredLogger, msg string, keysAndValues ...interface{}) {
	if l != nil {
		fields := append([]interface{}{FieldSymbol, sym.Close}, keysAndValues...)
		l.Infow(msg, fields...)
	}
}

// WithSymbol returns a logger with the given symbol as a field.
func WithSymbol(symbol string) *zap.SugaredLogger {
	return Logger.With(FieldSymbol, symbol)
}
