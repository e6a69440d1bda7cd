package sym

import (
	"testing"
	"unicode/utf8"
)

func TestSymbolToCommandAndCommandToSymbolAreBidirectional(t *testing.T) {
	for symbol, cmd := range SymbolToCommand {
		got, ok := CommandToSymbol[cmd]
		if !ok {
			t.Errorf("SymbolToCommand has %q → %q, but CommandToSymbol has no entry for %q", symbol, cmd, cmd)
			continue
		}
		if got != symbol {
			t.Errorf("bidirectional mismatch: SymbolToCommand[%q] = %q, but CommandToSymbol[%q] = %q", symbol, cmd, cmd, got)
		}
	}
}

func TestMapsHaveSameSize(t *testing.T) {
	if len(SymbolToCommand) != len(CommandToSymbol) {
		t.Errorf("map size mismatch: SymbolToCommand has %d entries, CommandToSymbol has %d",
			len(SymbolToCommand), len(CommandToSymbol))
	}
	if len(CommandDescriptions) != len(registry) {
		t.Errorf("expected %d descriptions, got %d", len(registry), len(CommandDescriptions))
	}
}

func TestSymbolsAreSingleRune(t *testing.T) {
	for _, e := range registry {
		if n := utf8.RuneCountInString(e.glyph); n != 1 {
			t.Errorf("symbol %q for %q has %d runes, want 1", e.glyph, e.command, n)
		}
	}
}

func TestForDirection(t *testing.T) {
	if got := ForDirection("rx"); got != RX {
		t.Errorf("ForDirection(rx) = %q, want %q", got, RX)
	}
	if got := ForDirection("tx"); got != TX {
		t.Errorf("ForDirection(tx) = %q, want %q", got, TX)
	}
	if got := ForDirection("sideways"); got != "" {
		t.Errorf("ForDirection(sideways) = %q, want empty", got)
	}
}
