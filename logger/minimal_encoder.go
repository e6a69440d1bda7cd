package logger

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	colorReset = "\x1b[0m"
	colorBold  = "\x1b[1m"
)

// palette holds the ANSI colors for one theme
type palette struct {
	fg     string
	time   string
	name   string
	key    string
	number string
	id     string
	warn   string
	warnBg string
	err    string
	errBg  string
}

var themes = map[string]palette{
	// Gruvbox Dark (warm, muted)
	"gruvbox": {
		fg:     "\x1b[38;5;223m",
		time:   "\x1b[38;5;108m",
		name:   "\x1b[38;5;208m",
		key:    "\x1b[38;5;245m",
		number: "\x1b[38;5;175m",
		id:     "\x1b[38;5;109m",
		warn:   "\x1b[38;5;214m",
		warnBg: "\x1b[48;5;58m",
		err:    "\x1b[38;5;167m",
		errBg:  "\x1b[48;5;88m",
	},
	// Everforest Dark (forest greens)
	"everforest": {
		fg:     "\x1b[38;5;223m",
		time:   "\x1b[38;5;107m",
		name:   "\x1b[38;5;108m",
		key:    "\x1b[38;5;65m",
		number: "\x1b[38;5;108m",
		id:     "\x1b[38;5;109m",
		warn:   "\x1b[38;5;179m",
		warnBg: "\x1b[48;5;58m",
		err:    "\x1b[38;5;167m",
		errBg:  "\x1b[48;5;52m",
	},
}

// Current active theme
var currentTheme = "everforest"

// SetTheme configures the color scheme for log output
func SetTheme(theme string) {
	if _, ok := themes[theme]; ok {
		currentTheme = theme
	}
}

func colors() palette {
	return themes[currentTheme]
}

// idKeys are rendered in the ID color
var idKeys = map[string]bool{
	FieldStreamID:   true,
	FieldBlockID:    true,
	FieldInstanceID: true,
	FieldConnection: true,
}

// minimalEncoder implements a calm, compact console encoder with theme support
// Format: "13:04:35  b.rx  ⇣ Overflow while streaming  stream_id=tone samples=512"
type minimalEncoder struct {
	zapcore.Encoder // base encoder for context fields added via With
	ctx             []zapcore.Field
}

func newMinimalEncoder() *minimalEncoder {
	return &minimalEncoder{
		Encoder: zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
	}
}

func (enc *minimalEncoder) Clone() zapcore.Encoder {
	ctx := make([]zapcore.Field, len(enc.ctx))
	copy(ctx, enc.ctx)
	return &minimalEncoder{
		Encoder: enc.Encoder.Clone(),
		ctx:     ctx,
	}
}

// AddString and friends capture With() fields so they are rendered on every line.
func (enc *minimalEncoder) AddString(key, value string) {
	enc.ctx = append(enc.ctx, zap.String(key, value))
}

func (enc *minimalEncoder) AddInt64(key string, value int64) {
	enc.ctx = append(enc.ctx, zap.Int64(key, value))
}

func (enc *minimalEncoder) AddBool(key string, value bool) {
	enc.ctx = append(enc.ctx, zap.Bool(key, value))
}

func (enc *minimalEncoder) AddFloat64(key string, value float64) {
	enc.ctx = append(enc.ctx, zap.Float64(key, value))
}

func (enc *minimalEncoder) AddInt32(key string, value int32) {
	enc.ctx = append(enc.ctx, zap.Int32(key, value))
}

func (enc *minimalEncoder) AddUint64(key string, value uint64) {
	enc.ctx = append(enc.ctx, zap.Uint64(key, value))
}

func (enc *minimalEncoder) AddUint32(key string, value uint32) {
	enc.ctx = append(enc.ctx, zap.Uint32(key, value))
}

func (enc *minimalEncoder) AddDuration(key string, value time.Duration) {
	enc.ctx = append(enc.ctx, zap.Duration(key, value))
}

func (enc *minimalEncoder) AddReflected(key string, value interface{}) error {
	enc.ctx = append(enc.ctx, zap.Any(key, value))
	return nil
}

func (enc *minimalEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	c := colors()
	final := buffer.NewPool().Get()

	final.AppendString(c.time)
	final.AppendString(ent.Time.Format("15:04:05"))
	final.AppendString(colorReset)

	// Level: only shown for non-info entries
	if ent.Level != zapcore.InfoLevel {
		final.AppendString("  ")
		final.AppendString(levelColorString(ent.Level, c))
	}

	if ent.LoggerName != "" {
		final.AppendString("  ")
		final.AppendString(c.name)
		final.AppendString(abbreviateName(ent.LoggerName))
		final.AppendString(colorReset)
	}

	all := make([]zapcore.Field, 0, len(enc.ctx)+len(fields))
	all = append(all, enc.ctx...)
	all = append(all, fields...)

	// The symbol, when present, prefixes the message
	final.AppendString("  ")
	for _, f := range all {
		if f.Key == FieldSymbol {
			final.AppendString(getFieldValue(f))
			final.AppendString(" ")
		}
	}
	final.AppendString(c.fg)
	final.AppendString(ent.Message)
	final.AppendString(colorReset)

	if rendered := renderFields(all, c); rendered != "" {
		final.AppendString("  ")
		final.AppendString(rendered)
	}

	final.AppendString("\n")
	return final, nil
}

// levelColorString returns bold + colored + background for WARN/ERROR
func levelColorString(level zapcore.Level, c palette) string {
	switch level {
	case zapcore.DebugLevel:
		return c.key + "DEBUG" + colorReset
	case zapcore.WarnLevel:
		return colorBold + c.warnBg + c.warn + "WARN" + colorReset
	case zapcore.ErrorLevel:
		return colorBold + c.errBg + c.err + "ERROR" + colorReset
	default:
		return colorBold + c.errBg + c.err + level.CapitalString() + colorReset
	}
}

// abbreviateName shortens component names: bridge.rx -> b.rx
func abbreviateName(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) > 1 && parts[0] != "" {
		return string(parts[0][0]) + "." + strings.Join(parts[1:], ".")
	}
	return name
}

// getFieldValue extracts the value from a zap field, handling different field types
func getFieldValue(field zapcore.Field) string {
	switch field.Type {
	case zapcore.StringType:
		return field.String
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type:
		return fmt.Sprintf("%d", field.Integer)
	case zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
		return fmt.Sprintf("%d", uint64(field.Integer))
	case zapcore.BoolType:
		return fmt.Sprintf("%t", field.Integer == 1)
	case zapcore.Float64Type:
		return fmt.Sprintf("%g", math.Float64frombits(uint64(field.Integer)))
	case zapcore.Float32Type:
		return fmt.Sprintf("%g", math.Float32frombits(uint32(field.Integer)))
	case zapcore.DurationType:
		return time.Duration(field.Integer).String()
	case zapcore.ErrorType:
		if err, ok := field.Interface.(error); ok {
			return err.Error()
		}
	}
	if field.Interface != nil {
		return fmt.Sprintf("%v", field.Interface)
	}
	return ""
}

// renderFields prints every field except the symbol as key=value, IDs first
func renderFields(fields []zapcore.Field, c palette) string {
	var ids, rest []string
	for _, f := range fields {
		if f.Key == FieldSymbol {
			continue
		}
		val := getFieldValue(f)
		if idKeys[f.Key] {
			ids = append(ids, c.key+f.Key+"="+colorReset+c.id+val+colorReset)
			continue
		}
		color := c.fg
		if isNumeric(f.Type) {
			color = c.number
		}
		rest = append(rest, c.key+f.Key+"="+colorReset+color+val+colorReset)
	}
	sort.Strings(ids)
	return strings.Join(append(ids, rest...), " ")
}

func isNumeric(t zapcore.FieldType) bool {
	switch t {
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type,
		zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type,
		zapcore.Float64Type, zapcore.Float32Type, zapcore.DurationType:
		return true
	}
	return false
}
