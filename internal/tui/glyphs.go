package tui

import (
	"os"
	"strings"
	"sync"
)

// Some fonts render box and arrow glyphs poorly, so the UI chrome can fall
// back to plain ASCII. Status glyphs follow the same choice.

type glyphSet int

const (
	glyphSetUnicode glyphSet = iota
	glyphSetASCII
)

var (
	glyphsMu      sync.RWMutex
	currentGlyphs = glyphSetUnicode
)

// applyGlyphPreference applies the configured glyph set, then lets
// TASKDECK_TUI_GLYPHS override it. Unknown values are ignored.
func applyGlyphPreference(ascii bool) {
	if ascii {
		setGlyphs(glyphSetASCII)
	} else {
		setGlyphs(glyphSetUnicode)
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("TASKDECK_TUI_GLYPHS"))) {
	case "unicode", "utf8":
		setGlyphs(glyphSetUnicode)
	case "ascii":
		setGlyphs(glyphSetASCII)
	}
}

func setGlyphs(gs glyphSet) {
	glyphsMu.Lock()
	currentGlyphs = gs
	glyphsMu.Unlock()
}

func glyphs() glyphSet {
	glyphsMu.RLock()
	gs := currentGlyphs
	glyphsMu.RUnlock()
	return gs
}

func asciiGlyphs() bool { return glyphs() == glyphSetASCII }

func glyphCursor() string {
	if asciiGlyphs() {
		return ">"
	}
	return "▸"
}

// glyphInFlight marks a row whose command has not completed.
func glyphInFlight() string {
	if asciiGlyphs() {
		return "~"
	}
	return "⟳"
}

func glyphHRule() string {
	if asciiGlyphs() {
		return "-"
	}
	return "─"
}

func glyphEllipsis() string {
	if asciiGlyphs() {
		return "..."
	}
	return "…"
}
