package logger

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/teranos/rfbridge/errors"
	"github.com/teranos/rfbridge/sym"
)

// stripANSI removes ANSI color codes from a string for testing
func stripANSI(str string) string {
	ansiRegex := regexp.MustCompile(`\x1b\[[0-9;]*m`)
	return ansiRegex.ReplaceAllString(str, "")
}

func encode(t *testing.T, enc zapcore.Encoder, ent zapcore.Entry, fields ...zapcore.Field) string {
	t.Helper()
	buf, err := enc.EncodeEntry(ent, fields)
	require.NoError(t, err)
	return stripANSI(buf.String())
}

// The minimal encoder must never silently drop a field.
func TestMinimalEncoderNeverDiscardsFields(t *testing.T) {
	entry := zapcore.Entry{
		Level:      zapcore.InfoLevel,
		Time:       time.Date(2026, 1, 2, 13, 4, 35, 0, time.UTC),
		LoggerName: "bridge.rx",
		Message:    "Batch pushed",
	}

	tests := []struct {
		field    zapcore.Field
		mustFind string
	}{
		{zap.String(FieldStreamID, "tone"), "stream_id=tone"},
		{zap.Int(FieldSamples, 512), "samples=512"},
		{zap.Uint32(FieldFFTSize, 1024), "fft_size=1024"},
		{zap.Bool(FieldEOB, true), "eob=true"},
		{zap.Float64("xdelta", 0.5), "xdelta=0.5"},
		{zap.Duration(FieldTimeout, 3*time.Second), "timeout=3s"},
		{zap.Error(errors.New("usb dropped")), "error=usb dropped"},
		{zap.String("random_field_xyz", "important"), "random_field_xyz=important"},
	}

	for _, tt := range tests {
		out := encode(t, newMinimalEncoder(), entry, tt.field)
		assert.Contains(t, out, tt.mustFind)
	}
}

func TestMinimalEncoderLayout(t *testing.T) {
	entry := zapcore.Entry{
		Level:      zapcore.WarnLevel,
		Time:       time.Date(2026, 1, 2, 13, 4, 35, 0, time.UTC),
		LoggerName: "bridge.rx",
		Message:    "Overflow while streaming",
	}

	out := encode(t, newMinimalEncoder(), entry,
		zap.String(FieldSymbol, sym.RX),
		zap.Int(FieldSamples, 64),
		zap.String(FieldStreamID, "tone"),
	)

	assert.Equal(t, "13:04:35  WARN  b.rx  ⇣ Overflow while streaming  stream_id=tone samples=64\n", out)
}

func TestMinimalEncoderKeepsContextFields(t *testing.T) {
	enc := newMinimalEncoder()
	enc.AddString(FieldDirection, "tx")
	enc.AddUint32(FieldPort, 1)

	clone := enc.Clone()
	entry := zapcore.Entry{Level: zapcore.InfoLevel, Time: time.Now(), Message: "sent"}

	out := encode(t, clone, entry, zap.Int(FieldSamples, 8))
	assert.Contains(t, out, "direction=tx")
	assert.Contains(t, out, "port=1")
	assert.Contains(t, out, "samples=8")
}

func TestAbbreviateName(t *testing.T) {
	assert.Equal(t, "b.rx", abbreviateName("bridge.rx"))
	assert.Equal(t, "worker", abbreviateName("worker"))
	assert.Equal(t, "a.watcher", abbreviateName("am.watcher"))
}

func TestSetTheme(t *testing.T) {
	defer SetTheme("everforest")

	SetTheme("gruvbox")
	assert.Equal(t, "gruvbox", currentTheme)

	SetTheme("solarized")
	assert.Equal(t, "gruvbox", currentTheme, "unknown themes are ignored")
}
