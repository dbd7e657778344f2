package tui

import (
	"strings"
	"testing"
)

func TestMarkdownStyle_RespectsTUITheme(t *testing.T) {
	t.Setenv("TASKDECK_TUI_MD_STYLE", "")
	t.Setenv("COLORFGBG", "")
	t.Setenv("TASKDECK_TUI_DARKBG", "")

	t.Setenv("TASKDECK_TUI_THEME", "light")
	if got := markdownStyle(); got != "light" {
		t.Fatalf("expected light; got %q", got)
	}

	t.Setenv("TASKDECK_TUI_THEME", "dark")
	if got := markdownStyle(); got != "dark" {
		t.Fatalf("expected dark; got %q", got)
	}

	t.Setenv("TASKDECK_TUI_MD_STYLE", "light")
	if got := markdownStyle(); got != "light" {
		t.Fatalf("expected md style override; got %q", got)
	}
}

func TestMarkdownStyle_COLORFGBG(t *testing.T) {
	t.Setenv("TASKDECK_TUI_MD_STYLE", "")
	t.Setenv("TASKDECK_TUI_THEME", "")
	t.Setenv("TASKDECK_TUI_DARKBG", "")

	t.Setenv("COLORFGBG", "0;15")
	if got := markdownStyle(); got != "light" {
		t.Fatalf("expected light for bg 15; got %q", got)
	}
	t.Setenv("COLORFGBG", "15;0")
	if got := markdownStyle(); got != "dark" {
		t.Fatalf("expected dark for bg 0; got %q", got)
	}
}

func TestRenderHelp_ListsKeys(t *testing.T) {
	t.Setenv("TASKDECK_TUI_THEME", "dark")
	out := renderMarkdown(helpMarkdown, 80)
	for _, want := range []string{"Cancel", "Reset", "Settings"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected help to mention %q; got:\n%s", want, out)
		}
	}
	if renderMarkdown("   ", 80) != "" {
		t.Fatalf("expected empty output for blank markdown")
	}
}
