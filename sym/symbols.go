// Package sym defines canonical symbols for rfbridge data-path operations and
// lifecycle markers. These symbols are stable across logs, CLI output, and
// documentation.
package sym

// Data-path symbols.
const (
	RX   = "⇣" // rx: hardware to software (recv from the last block)
	TX   = "⇡" // tx: software to hardware (send into the first block)
	SRI  = "≋" // sri: stream descriptor propagation
	Gate = "⊡" // gate: validated block configuration
	AM   = "≡" // am: configuration and settings
)

// Lifecycle symbols.
const (
	Open  = "✿" // stream acquisition and thread start
	Close = "❀" // stream release and thread stop
)

// entry binds a glyph to its command word and description.
type entry struct {
	glyph       string
	command     string
	description string
}

// registry is the canonical list of symbols.
var registry = []entry{
	{RX, "rx", "Receive batches from hardware and push them downstream"},
	{TX, "tx", "Send ingress packets into hardware"},
	{SRI, "sri", "Derive and push stream descriptors"},
	{Gate, "gate", "Validate and apply block configuration"},
	{AM, "am", "Configuration and settings"},
	{Open, "open", "Acquire streams and start worker loops"},
	{Close, "close", "Stop worker loops and release streams"},
}

// SymbolToCommand maps glyph strings to their text command equivalents.
var SymbolToCommand = map[string]string{}

// CommandToSymbol maps text commands to their canonical glyph strings.
var CommandToSymbol = map[string]string{}

// CommandDescriptions provides human-readable explanations per command word.
var CommandDescriptions = map[string]string{}

func init() {
	for _, e := range registry {
		SymbolToCommand[e.glyph] = e.command
		CommandToSymbol[e.command] = e.glyph
		CommandDescriptions[e.command] = e.description
	}
}

// ForDirection returns the glyph for a stream direction name ("rx" or "tx").
func ForDirection(direction string) string {
	if g, ok := CommandToSymbol[direction]; ok {
		return g
	}
	return ""
}
