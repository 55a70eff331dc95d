// Package ui provides consistent styling and components for the wayseat CLI
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/wayseat/internal/wire"
)

// Color palette - consistent across the application
var (
	// Primary colors
	ColorPrimary   = lipgloss.Color("39")  // Bright blue
	ColorSecondary = lipgloss.Color("205") // Pink/magenta
	ColorSuccess   = lipgloss.Color("82")  // Green
	ColorWarning   = lipgloss.Color("214") // Orange
	ColorError     = lipgloss.Color("196") // Red
	ColorInfo      = lipgloss.Color("86")  // Cyan

	// Neutral colors
	ColorText   = lipgloss.Color("252") // Light gray
	ColorSubtle = lipgloss.Color("241") // Medium gray
	ColorMuted  = lipgloss.Color("238") // Dark gray

	// Status colors
	ColorConnected    = ColorSuccess
	ColorDisconnected = ColorError
)

// Base styles - building blocks for other styles
var (
	TextStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	SubtleStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle)

	BoldStyle = lipgloss.NewStyle().
			Bold(true)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	SubheaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			Background(ColorMuted).
			Padding(0, 1)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	InfoStyle = lipgloss.NewStyle().
			Foreground(ColorInfo)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSubtle).
			Padding(1, 2)
)

// Component-specific styles
var (
	ConnectedIndicator = lipgloss.NewStyle().
				Foreground(ColorConnected).
				Render("●")

	DisconnectedIndicator = lipgloss.NewStyle().
				Foreground(ColorDisconnected).
				Render("○")

	ControlKeyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	ControlDescStyle = lipgloss.NewStyle().
				Foreground(ColorText)

	// Status line at the bottom of full-screen views
	FooterStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(ColorSubtle).
			Padding(0, 1)
)

// Per-interface colors so pointer, keyboard and touch traffic stand apart
var interfaceColors = map[string]lipgloss.Color{
	wire.DisplayInterface:  ColorError,
	wire.SeatInterface:     ColorSecondary,
	wire.PointerInterface:  ColorPrimary,
	wire.KeyboardInterface: ColorSuccess,
	wire.TouchInterface:    ColorWarning,
}

// InterfaceStyle returns the style used to render an interface name.
func InterfaceStyle(iface string) lipgloss.Style {
	color, ok := interfaceColors[iface]
	if !ok {
		color = ColorSubtle
	}
	return lipgloss.NewStyle().Foreground(color)
}

// Icons and indicators (simple ASCII/Unicode symbols)
var (
	IconSuccess = "✓"
	IconError   = "✗"
	IconWarning = "!"
	IconTrace   = "»"
)

func FormatStatus(connected bool, status string) string {
	indicator := DisconnectedIndicator
	if connected {
		indicator = ConnectedIndicator
	}
	return indicator + " " + status
}

// FormatAppHeader renders a title with an optional subtitle underneath.
func FormatAppHeader(title, subtitle string) string {
	header := HeaderStyle.Render(InfoStyle.Render(IconTrace) + " " + title)
	if subtitle != "" {
		header += "\n" + SubtleStyle.Render(subtitle)
	}
	return header + "\n" + CreateSeparator(50, "─")
}

// FormatResult renders one pass/fail line.
func FormatResult(success bool, step, message string) string {
	icon := ErrorStyle.Render(IconError)
	style := ErrorStyle
	if success {
		icon = SuccessStyle.Render(IconSuccess)
		style = SuccessStyle
	}

	result := "  " + icon + " " + step
	if message != "" {
		result += " - " + style.Render(message)
	}
	return result
}

// FormatWarning renders a line that needs attention but is not a failure.
func FormatWarning(message string) string {
	return "  " + WarningStyle.Render(IconWarning+" "+message)
}

// CreateSeparator creates a horizontal line separator
func CreateSeparator(width int, char string) string {
	if width <= 0 {
		width = 50
	}
	if char == "" {
		char = "─"
	}

	return lipgloss.NewStyle().
		Foreground(ColorSubtle).
		Render(strings.Repeat(char, width))
}
