package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// StatusBar is a one-line title bar with a status on the right
type StatusBar struct {
	Width     int
	Title     string
	Status    string
	Connected bool
}

func NewStatusBar(title string) *StatusBar {
	return &StatusBar{Title: title}
}

// View renders the status bar
func (s *StatusBar) View() string {
	title := TitleStyle.Render(s.Title)
	status := FormatStatus(s.Connected, s.Status)

	gap := s.Width - lipgloss.Width(title) - lipgloss.Width(status)
	if gap < 1 {
		gap = 1
	}
	return title + strings.Repeat(" ", gap) + status
}

// InfoPanel represents a panel with information
type InfoPanel struct {
	Title   string
	Content []string
	Width   int
}

// View renders the info panel
func (p *InfoPanel) View() string {
	var b strings.Builder

	if p.Title != "" {
		b.WriteString(SubheaderStyle.Render(p.Title))
		b.WriteString("\n")
	}

	for _, line := range p.Content {
		b.WriteString(TextStyle.Render(line))
		b.WriteString("\n")
	}

	style := BoxStyle
	if p.Width > 0 {
		style = style.Width(p.Width)
	}
	return style.Render(strings.TrimSuffix(b.String(), "\n"))
}

// ControlsHelp displays keyboard controls
type ControlsHelp struct {
	Controls []Control
	Width    int
}

// Control represents a keyboard control
type Control struct {
	Key  string
	Desc string
}

// View renders the controls help
func (c *ControlsHelp) View() string {
	var b strings.Builder

	b.WriteString(SubheaderStyle.Render("Controls:"))
	b.WriteString("\n\n")

	maxKeyLen := 0
	for _, ctrl := range c.Controls {
		maxKeyLen = max(maxKeyLen, lipgloss.Width(ctrl.Key))
	}

	for _, ctrl := range c.Controls {
		key := ControlKeyStyle.Width(maxKeyLen).Render(ctrl.Key)
		desc := ControlDescStyle.Render(ctrl.Desc)
		b.WriteString(fmt.Sprintf("  %s  %s\n", key, desc))
	}

	style := BoxStyle
	if c.Width > 0 {
		style = style.Width(c.Width)
	}
	return style.Render(strings.TrimSuffix(b.String(), "\n"))
}

// Inline renders the controls on a single line, for footers.
func (c *ControlsHelp) Inline() string {
	parts := make([]string, len(c.Controls))
	for i, ctrl := range c.Controls {
		parts[i] = "[" + ctrl.Key + "] " + ctrl.Desc
	}
	return strings.Join(parts, " │ ")
}
