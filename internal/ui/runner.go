package ui

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxLogLines = 12

// RoomEventKind classifies what happened in the room.
type RoomEventKind int

const (
	EventJoined RoomEventKind = iota
	EventPeerJoined
	EventPeerLeft
	EventStatus
	EventSignal
	EventChat
	EventError
	EventInfo
)

// RoomEvent is one thing to show in the room view.
type RoomEvent struct {
	Kind    RoomEventKind
	UserID  string
	Name    string
	Text    string
	Muted   bool
	VideoOn bool
	At      time.Time

	// Roster replaces the participant list on EventJoined.
	Roster []RosterEntry
}

// RoomUI runs the live room view in its own goroutine.
type RoomUI struct {
	program *tea.Program
	model   *roomModel
	events  chan RoomEvent
	wg      sync.WaitGroup
}

// NewRoomUI creates a room view. onToggle is called with the new local
// mute/video state whenever the user presses m or v.
func NewRoomUI(roomID, selfID string, onToggle func(muted, videoOn bool)) *RoomUI {
	events := make(chan RoomEvent, 64)

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = SpinnerStyle

	model := &roomModel{
		roomID:   roomID,
		selfID:   selfID,
		spinner:  s,
		events:   events,
		onToggle: onToggle,
		videoOn:  true,
	}

	return &RoomUI{model: model, events: events}
}

// Start starts the UI in a goroutine
func (ui *RoomUI) Start() {
	ui.program = tea.NewProgram(ui.model)
	ui.wg.Add(1)
	go func() {
		defer ui.wg.Done()
		if _, err := ui.program.Run(); err != nil {
			fmt.Printf("UI error: %v\n", err)
		}
	}()
}

// Push queues an event for display. Events are dropped if the view is not
// keeping up.
func (ui *RoomUI) Push(ev RoomEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	select {
	case ui.events <- ev:
	default:
	}
}

// Wait blocks until the user quits the view.
func (ui *RoomUI) Wait() {
	ui.wg.Wait()
}

// Stop stops the UI
func (ui *RoomUI) Stop() {
	if ui.program != nil {
		ui.program.Quit()
	}
	ui.wg.Wait()
}

type roomModel struct {
	roomID   string
	selfID   string
	roster   []RosterEntry
	log      []string
	joined   bool
	muted    bool
	videoOn  bool
	quitting bool

	spinner  spinner.Model
	events   chan RoomEvent
	onToggle func(muted, videoOn bool)
}

func (m *roomModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listen())
}

func (m *roomModel) listen() tea.Cmd {
	return func() tea.Msg {
		return <-m.events
	}
}

func (m *roomModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "m":
			m.muted = !m.muted
			m.toggled()
		case "v":
			m.videoOn = !m.videoOn
			m.toggled()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case RoomEvent:
		m.apply(msg)
		return m, m.listen()
	}

	return m, nil
}

func (m *roomModel) toggled() {
	m.setStatus(m.selfID, m.muted, m.videoOn)
	if m.onToggle != nil {
		m.onToggle(m.muted, m.videoOn)
	}
}

func (m *roomModel) apply(ev RoomEvent) {
	stamp := MutedStyle.Render(ev.At.Format("15:04:05"))
	who := ev.Name
	if who == "" {
		who = ev.UserID
	}

	switch ev.Kind {
	case EventJoined:
		m.joined = true
		m.roster = slices.Clone(ev.Roster)
		for i := range m.roster {
			m.roster[i].Self = m.roster[i].ID == m.selfID
		}
		m.addLog(fmt.Sprintf("%s %s joined %s", stamp, IconRoom, BoldStyle.Render(m.roomID)))

	case EventPeerJoined:
		if !slices.ContainsFunc(m.roster, func(e RosterEntry) bool { return e.ID == ev.UserID }) {
			m.roster = append(m.roster, RosterEntry{ID: ev.UserID, Name: ev.Name, VideoOn: true})
		}
		m.addLog(fmt.Sprintf("%s %s %s joined", stamp, IconPeer, who))

	case EventPeerLeft:
		m.roster = slices.DeleteFunc(m.roster, func(e RosterEntry) bool { return e.ID == ev.UserID })
		m.addLog(fmt.Sprintf("%s %s %s %s", stamp, IconLeave, who, ev.Text))

	case EventStatus:
		m.setStatus(ev.UserID, ev.Muted, ev.VideoOn)

	case EventSignal:
		m.addLog(fmt.Sprintf("%s %s %s from %s", stamp, IconSignal, ev.Text, who))

	case EventChat:
		m.addLog(fmt.Sprintf("%s %s %s: %s", stamp, IconChat, BoldStyle.Render(who), ev.Text))

	case EventError:
		m.addLog(fmt.Sprintf("%s %s", stamp, ErrorStyle.Render(ev.Text)))

	default:
		m.addLog(fmt.Sprintf("%s %s", stamp, ev.Text))
	}
}

func (m *roomModel) setStatus(userID string, muted, videoOn bool) {
	for i := range m.roster {
		if m.roster[i].ID == userID {
			m.roster[i].Muted = muted
			m.roster[i].VideoOn = videoOn
		}
	}
}

func (m *roomModel) addLog(line string) {
	m.log = append(m.log, line)
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
}

func (m *roomModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	title := HeaderStyle.Render(fmt.Sprintf("%s %s", IconRoom, m.roomID))
	if m.joined {
		title = lipgloss.JoinHorizontal(lipgloss.Center, title, " ", OccupancyStyle.Render(fmt.Sprintf("%d in room", len(m.roster))))
	}
	b.WriteString(title)
	b.WriteString("\n\n")

	if !m.joined {
		b.WriteString(fmt.Sprintf("%s joining...", m.spinner.View()))
	} else {
		b.WriteString(RosterView(m.roster))
		if len(m.roster) <= 1 {
			b.WriteString(fmt.Sprintf("\n%s waiting for peers", m.spinner.View()))
		}
		b.WriteString("\n")
		b.WriteString(LocalStatusStyle.Render(m.localStatus()))
	}

	if len(m.log) > 0 {
		b.WriteString("\n")
		b.WriteString(EventLogStyle.Render(strings.Join(m.log, "\n")))
	}

	b.WriteString("\n")
	b.WriteString(FooterStyle.Render("m mute • v video • q leave"))
	return b.String()
}

func (m *roomModel) localStatus() string {
	mic, video := IconMic+" mic on", IconVideo+" camera on"
	if m.muted {
		mic = IconMuted + " muted"
	}
	if !m.videoOn {
		video = IconNoVideo + " camera off"
	}
	return mic + "   " + video
}
