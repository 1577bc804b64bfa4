// Package dashboard is a terminal UI that polls a replica's songlist for
// live viewing, the read-only operator counterpart to
// pkg/roomql's programmatic surface.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Snapshotter is the one capability dashboard needs: a point-in-time
// songlist snapshot. RoomSnapshotter (in-process) and httpSnapshotter
// (cmd/songlist-tui, over HTTP) are the two implementations in this repo.
type Snapshotter interface {
	Snapshot(ctx context.Context) (map[string]string, error)
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	footerStyle = lipgloss.NewStyle().Faint(true)
)

type tickMsg time.Time

type snapshotMsg map[string]string

// Model is the bubbletea model for the songlist table view.
type Model struct {
	source   Snapshotter
	selfID   string
	pollRate time.Duration
	table    table.Model
}

// New builds a Model against source, polling every pollRate.
func New(source Snapshotter, selfID string, pollRate time.Duration) Model {
	columns := []table.Column{
		{Title: "Song", Width: 30},
		{Title: "URL", Width: 50},
	}
	t := table.New(table.WithColumns(columns), table.WithFocused(true), table.WithHeight(20))
	return Model{source: source, selfID: selfID, pollRate: pollRate, table: t}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.poll(), m.tick())
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.pollRate, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) poll() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		snap, err := m.source.Snapshot(ctx)
		if err != nil {
			return snapshotMsg(nil)
		}
		return snapshotMsg(snap)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tickMsg:
		return m, tea.Batch(m.poll(), m.tick())
	case snapshotMsg:
		names := make([]string, 0, len(msg))
		for name := range msg {
			names = append(names, name)
		}
		sort.Strings(names)
		rows := make([]table.Row, 0, len(names))
		for _, name := range names {
			rows = append(rows, table.Row{name, msg[name]})
		}
		m.table.SetRows(rows)
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("songlist — replica %s", m.selfID)))
	b.WriteString("\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n\n")
	b.WriteString(footerStyle.Render("q to quit"))
	return b.String()
}

// Run blocks until the dashboard program exits or ctx is cancelled.
func Run(ctx context.Context, source Snapshotter, selfID string, pollRate time.Duration) error {
	p := tea.NewProgram(New(source, selfID, pollRate))
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}
