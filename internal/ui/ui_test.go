package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/wayseat/internal/trace"
	"github.com/bnema/wayseat/internal/wire"
)

func sampleEvents() []trace.Event {
	return []trace.Event{
		{Seq: 1, ClientName: "terminal", Object: 2, Interface: wire.SeatInterface, Name: "capabilities", Args: []any{uint32(7)}},
		{Seq: 2, ClientName: "terminal", Object: 3, Interface: wire.PointerInterface, Name: "enter", Args: []any{uint32(1), uint32(10), 1.5, 2.0}},
		{Seq: 3, ClientName: "browser", Object: 2, Interface: wire.SeatInterface, Name: "capabilities", Args: []any{uint32(7)}},
		{Seq: 4, ClientName: "terminal", Object: 4, Interface: wire.KeyboardInterface, Name: "key", Args: []any{uint32(2), uint32(0), uint32(30), uint32(1)}},
	}
}

func TestFormatHelpers(t *testing.T) {
	assert.Contains(t, FormatWarning("no expect steps"), IconWarning+" no expect steps")
	assert.Contains(t, FormatStatus(true, "up"), "●")
	assert.Contains(t, FormatStatus(false, "down"), "○")
	assert.Contains(t, FormatResult(true, "replay", ""), IconSuccess)
	assert.Contains(t, FormatResult(false, "replay", "2 failed"), "2 failed")
	assert.Contains(t, FormatAppHeader("REPLAY", "basics"), "basics")
	assert.Equal(t, 10, len([]rune(stripANSI(CreateSeparator(10, "")))))
}

// stripANSI drops escape sequences so widths can be compared.
func stripANSI(s string) string {
	var b strings.Builder
	skip := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			skip = true
		case skip && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			skip = false
		case !skip:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func TestComponents(t *testing.T) {
	sb := NewStatusBar("wayseat")
	sb.Width = 60
	sb.Status = "replaying"
	view := sb.View()
	assert.Contains(t, view, "wayseat")
	assert.Contains(t, view, "replaying")

	panel := InfoPanel{Title: "Result", Content: []string{"12 steps", "40 events"}}
	assert.Contains(t, panel.View(), "40 events")

	help := ControlsHelp{Controls: []Control{{Key: "q", Desc: "quit"}, {Key: "tab", Desc: "next"}}}
	assert.Contains(t, help.View(), "Controls:")
	assert.Equal(t, "[q] quit │ [tab] next", help.Inline())
}

func TestEventTable(t *testing.T) {
	out := EventTable(sampleEvents())
	for _, want := range []string{"SEQ", "wl_pointer@3", "enter", "1, 10, 1.5, 2", "browser"} {
		assert.Contains(t, out, want)
	}
}

func TestSummaryTable(t *testing.T) {
	out := SummaryTable(sampleEvents())
	assert.Contains(t, out, "INTERFACE")

	lines := strings.Split(out, "\n")
	var browser string
	for _, l := range lines {
		if strings.Contains(l, "browser") {
			browser = l
		}
	}
	require.NotEmpty(t, browser)
	assert.Contains(t, browser, "wl_seat")
	assert.Contains(t, browser, "1")
}

func TestInspectorModel(t *testing.T) {
	m := NewInspectorModel("basics", sampleEvents())
	assert.Equal(t, "\n  Initializing...", m.View())

	_, cmd := m.Update(tea.WindowSizeMsg{Width: 100, Height: 20})
	assert.Nil(t, cmd)
	assert.Len(t, m.Visible(), 4)
	assert.Contains(t, m.View(), "WAYSEAT TRACE - basics")

	// Interfaces are sorted after "all"
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	visible := m.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, wire.KeyboardInterface, visible[0].Interface)

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Len(t, m.Visible(), 1)
	assert.Equal(t, wire.PointerInterface, m.Visible()[0].Interface)

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Len(t, m.Visible(), 2)

	// Clients too: browser comes first
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	require.Len(t, m.Visible(), 1)
	assert.Equal(t, "browser", m.Visible()[0].ClientName)
	assert.Contains(t, m.View(), "client: browser")

	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Empty(t, m.Visible())
	assert.Contains(t, m.View(), "No events match")

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	assert.Contains(t, m.View(), "Controls:")

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
