package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Palette. Accent marks the room itself, Live marks open mics and cameras,
// Alert and Caution carry failures and warnings.
var (
	Accent  = lipgloss.Color("#14b8a6")
	Live    = lipgloss.Color("#22c55e")
	Alert   = lipgloss.Color("#f43f5e")
	Caution = lipgloss.Color("#eab308")
	Dim     = lipgloss.Color("#64748b")
	Panel   = lipgloss.Color("#0f172a")
)

var (
	SuccessStyle = lipgloss.NewStyle().Foreground(Live).Bold(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(Alert).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(Caution)
	MutedStyle   = lipgloss.NewStyle().Foreground(Dim)
	BoldStyle    = lipgloss.NewStyle().Bold(true)
	AccentStyle  = lipgloss.NewStyle().Foreground(Accent).Bold(true)
	SpinnerStyle = lipgloss.NewStyle().Foreground(Accent)
)

// Room view
var (
	// HeaderStyle is the title bar carrying the room id.
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Accent).
			Background(Panel).
			Padding(0, 2)

	// OccupancyStyle is the "n/4" badge next to the room id.
	OccupancyStyle = lipgloss.NewStyle().
			Foreground(Panel).
			Background(Accent).
			Padding(0, 1)

	// LocalStatusStyle shows the local mic and camera state.
	LocalStatusStyle = lipgloss.NewStyle().
				Foreground(Live).
				MarginTop(1)

	// EventLogStyle frames the scrolling event log with a left rule.
	EventLogStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(Dim).
			PaddingLeft(1).
			MarginTop(1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(Dim).
			MarginTop(1)

	// RoomCardStyle boxes the details printed after creating a room.
	RoomCardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Accent).
			Padding(1, 3)
)

// Roster table
var (
	TableBorderStyle = lipgloss.NewStyle().Foreground(Dim)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(Accent).
				Padding(0, 1)

	TableRowStyle    = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("255"))
	TableRowAltStyle = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("248"))
)

const (
	IconSuccess = "✅"
	IconError   = "❌"
	IconWarning = "⚠️"
	IconInfo    = "ℹ️"
	IconRoom    = "🚪"
	IconPeer    = "👤"
	IconCopy    = "📋"
	IconMuted   = "🔇"
	IconMic     = "🎙️"
	IconVideo   = "📹"
	IconNoVideo = "🚫"
	IconSignal  = "📡"
	IconChat    = "💬"
	IconLeave   = "👋"
)

func PrintError(msg string) {
	fmt.Printf("%s %s\n", ErrorStyle.Render(IconError), ErrorStyle.Render(msg))
}

func PrintWarning(msg string) {
	fmt.Printf("%s %s\n", WarningStyle.Render(IconWarning), WarningStyle.Render(msg))
}

func PrintSuccessf(format string, args ...any) {
	fmt.Printf("%s %s\n", SuccessStyle.Render(IconSuccess), fmt.Sprintf(format, args...))
}

func PrintInfo(msg string) {
	fmt.Printf("%s %s\n", IconInfo, msg)
}

func PrintInfof(format string, args ...any) {
	PrintInfo(fmt.Sprintf(format, args...))
}
