package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/wayseat/internal/trace"
)

// InspectorModel is a full-screen browser for recorded wire events. Events
// can be narrowed to one interface and one client.
type InspectorModel struct {
	title  string
	events []trace.Event

	interfaces []string // "" means all
	ifaceIdx   int
	clients    []string // "" means all
	clientIdx  int

	viewport viewport.Model
	ready    bool
	width    int
	height   int

	controls *ControlsHelp
	showHelp bool

	headerStyle lipgloss.Style
}

func NewInspectorModel(title string, events []trace.Event) *InspectorModel {
	m := &InspectorModel{
		title:      title,
		events:     events,
		interfaces: []string{""},
		clients:    []string{""},
		controls: &ControlsHelp{
			Controls: []Control{
				{Key: "q", Desc: "quit"},
				{Key: "tab", Desc: "next interface"},
				{Key: "c", Desc: "next client"},
				{Key: "g/G", Desc: "top/bottom"},
				{Key: "?", Desc: "help"},
			},
		},
		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("230")).
			Padding(0, 1),
	}

	for _, ev := range events {
		if !slices.Contains(m.interfaces, ev.Interface) {
			m.interfaces = append(m.interfaces, ev.Interface)
		}
		if !slices.Contains(m.clients, ev.ClientName) {
			m.clients = append(m.clients, ev.ClientName)
		}
	}
	slices.Sort(m.interfaces[1:])
	slices.Sort(m.clients[1:])
	return m
}

// Init implements tea.Model
func (m *InspectorModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m *InspectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// Header takes two lines, the footer one
		if !m.ready {
			m.viewport = viewport.New(msg.Width, max(msg.Height-3, 1))
			m.viewport.YPosition = 2
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = max(msg.Height-3, 1)
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.ifaceIdx = (m.ifaceIdx + 1) % len(m.interfaces)
			m.refresh()
			return m, nil
		case "shift+tab":
			m.ifaceIdx = (m.ifaceIdx + len(m.interfaces) - 1) % len(m.interfaces)
			m.refresh()
			return m, nil
		case "c":
			m.clientIdx = (m.clientIdx + 1) % len(m.clients)
			m.refresh()
			return m, nil
		case "?":
			m.showHelp = !m.showHelp
			return m, nil
		case "g":
			m.viewport.GotoTop()
			return m, nil
		case "G":
			m.viewport.GotoBottom()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model
func (m *InspectorModel) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}
	if m.showHelp {
		return m.renderHeader() + "\n" + m.controls.View()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// Visible returns the events that pass the current filters.
func (m *InspectorModel) Visible() []trace.Event {
	iface := m.interfaces[m.ifaceIdx]
	client := m.clients[m.clientIdx]

	var out []trace.Event
	for _, ev := range m.events {
		if iface != "" && ev.Interface != iface {
			continue
		}
		if client != "" && ev.ClientName != client {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func (m *InspectorModel) refresh() {
	if m.ready {
		m.viewport.SetContent(m.renderEvents())
		m.viewport.GotoTop()
	}
}

func filterLabel(v string) string {
	if v == "" {
		return "all"
	}
	return v
}

func (m *InspectorModel) renderHeader() string {
	title := m.headerStyle.Width(m.width).Render(fmt.Sprintf("WAYSEAT TRACE - %s", m.title))
	status := fmt.Sprintf("%d/%d events │ interface: %s │ client: %s",
		len(m.Visible()), len(m.events),
		filterLabel(m.interfaces[m.ifaceIdx]), filterLabel(m.clients[m.clientIdx]))
	return title + "\n" + SubtleStyle.Render(status)
}

func (m *InspectorModel) renderFooter() string {
	return FooterStyle.Width(m.width).Render(m.controls.Inline())
}

func (m *InspectorModel) renderEvents() string {
	visible := m.Visible()
	if len(visible) == 0 {
		return lipgloss.NewStyle().
			Foreground(ColorSubtle).
			Italic(true).
			Render("  No events match the current filter")
	}

	lines := make([]string, len(visible))
	for i, ev := range visible {
		lines[i] = fmt.Sprintf("  %s %s %s %s(%s)",
			SubtleStyle.Render(fmt.Sprintf("%6d", ev.Seq)),
			TextStyle.Render(fmt.Sprintf("%-12s", ev.ClientName)),
			InterfaceStyle(ev.Interface).Render(fmt.Sprintf("%s@%d", ev.Interface, ev.Object)),
			BoldStyle.Render(ev.Name),
			ev.FormatArgs())
	}
	return strings.Join(lines, "\n")
}
