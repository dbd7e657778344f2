package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func TestRenderModalBox_UsesLightBackground_WhenThemeForcedLight(t *testing.T) {
	oldProfile := lipgloss.ColorProfile()
	oldBG := lipgloss.HasDarkBackground()
	lipgloss.SetColorProfile(termenv.ANSI256)
	t.Cleanup(func() {
		lipgloss.SetColorProfile(oldProfile)
		lipgloss.SetHasDarkBackground(oldBG)
	})

	t.Setenv("TASKDECK_TUI_THEME", "light")
	t.Setenv("TASKDECK_TUI_DARKBG", "")
	applyThemePreference()
	if lipgloss.HasDarkBackground() {
		t.Fatalf("expected HasDarkBackground=false after forcing light theme")
	}

	out := renderModalBox(80, "Title", "Body")
	// colorSurfaceBg is ac("255","235").
	if !strings.Contains(out, "48;5;255") {
		t.Fatalf("expected modal to include light background (48;5;255); got: %q", out)
	}
}

func TestRenderConfirmModal_ShowsBodyAndButtons(t *testing.T) {
	out := renderConfirmModal(80, "Confirm delete", "Delete this task?", "Yes", "No", confirmFocusCancel)
	for _, want := range []string{"Confirm delete", "Delete this task?", "Yes", "No", "y: confirm"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in modal; got:\n%s", want, out)
		}
	}
	if confirmFocusCancel.toggle() != confirmFocusConfirm || confirmFocusConfirm.toggle() != confirmFocusCancel {
		t.Fatalf("expected focus to toggle between the two buttons")
	}
}

func TestModalBodyWidth_Bounds(t *testing.T) {
	if got := modalBodyWidth(10); got != 20 {
		t.Fatalf("expected minimum width 20, got %d", got)
	}
	if got := modalBodyWidth(300); got != 72 {
		t.Fatalf("expected maximum width 72, got %d", got)
	}
}
