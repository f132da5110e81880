package ui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RosterEntry is one participant as shown in the room view.
type RosterEntry struct {
	ID      string
	Name    string
	Self    bool
	Muted   bool
	VideoOn bool
}

// RosterView renders the participant list with lipgloss/table.
func RosterView(entries []RosterEntry) string {
	if len(entries) == 0 {
		return MutedStyle.Render("Nobody here yet")
	}

	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		name := e.Name
		if name == "" {
			name = MutedStyle.Render("-")
		}
		if e.Self {
			name += " (you)"
		}
		mic := IconMic
		if e.Muted {
			mic = IconMuted
		}
		video := IconNoVideo
		if e.VideoOn {
			video = IconVideo
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), truncate(e.ID, 24), truncate(name, 30), mic + " " + video})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(TableBorderStyle).
		Headers("#", "User", "Name", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		}).
		Render()
}

// RoomDetails is the control surface's view of a room.
type RoomDetails struct {
	RoomID       string
	Type         string
	CreatorID    string
	Participants int
	Capacity     int
	CreatedAt    time.Time
	Active       bool
}

// RoomDetailsTable renders details as a plain text table with go-pretty,
// suitable for piping.
func RoomDetailsTable(d RoomDetails) string {
	t := prettytable.NewWriter()
	t.SetStyle(prettytable.StyleRounded)
	t.Style().Title.Align = text.AlignCenter
	t.SetTitle("Room " + d.RoomID)
	t.AppendHeader(prettytable.Row{"Field", "Value"})
	t.AppendRows([]prettytable.Row{
		{"Type", d.Type},
		{"Creator", d.CreatorID},
		{"Participants", fmt.Sprintf("%d/%d", d.Participants, d.Capacity)},
		{"Created", d.CreatedAt.Local().Format(time.RFC1123)},
		{"Active", d.Active},
	})
	return t.Render()
}

// RoomCreatedView renders the box shown after creating a room.
func RoomCreatedView(roomID, roomType, joinHint string) string {
	content := fmt.Sprintf("%s Room Created!\n\n%s Room ID:  %s\n%s Type:     %s\n\n%s",
		IconSuccess,
		IconCopy, AccentStyle.Render(roomID),
		IconRoom, roomType,
		MutedStyle.Render(joinHint),
	)
	return RoomCardStyle.Render(content)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
