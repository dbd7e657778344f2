package tui

import "testing"

func TestGlyphs_ConfigAndEnv(t *testing.T) {
	t.Setenv("TASKDECK_TUI_GLYPHS", "")
	applyGlyphPreference(false)
	if got := glyphs(); got != glyphSetUnicode {
		t.Fatalf("expected unicode glyphs by default; got %v", got)
	}

	applyGlyphPreference(true)
	if got := glyphs(); got != glyphSetASCII {
		t.Fatalf("expected ascii glyphs from config; got %v", got)
	}

	t.Setenv("TASKDECK_TUI_GLYPHS", "unicode")
	applyGlyphPreference(true)
	if got := glyphs(); got != glyphSetUnicode {
		t.Fatalf("expected env to override config; got %v", got)
	}

	t.Setenv("TASKDECK_TUI_GLYPHS", "bogus")
	applyGlyphPreference(true)
	if got := glyphs(); got != glyphSetASCII {
		t.Fatalf("expected unknown env value to be ignored; got %v", got)
	}
	if glyphCursor() != ">" || glyphInFlight() != "~" {
		t.Fatalf("expected ascii chrome glyphs")
	}
	setGlyphs(glyphSetUnicode)
}
