package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	cl "budgarden/internal/cli"
	"budgarden/internal/game"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	watchTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	watchOfflineStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("11")).Padding(0, 1)
	watchFaintStyle   = lipgloss.NewStyle().Faint(true)
	watchBlockedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	watchPlantStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	watchEmptyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

type syncDoneMsg struct {
	state cl.SyncState
	err   error
}

type pollTickMsg time.Time

type watchModel struct {
	ctx       context.Context
	rec       *cl.Reconciler
	pollEvery time.Duration
	spin      spinner.Model
	state     cl.SyncState
	lastErr   error
	primed    bool
}

func runWatch(ctx context.Context, rec *cl.Reconciler, pollEvery time.Duration) error {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	m := watchModel{
		ctx:       ctx,
		rec:       rec,
		pollEvery: pollEvery,
		spin:      spin,
	}
	_, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
	return err
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.startCmd())
}

func (m watchModel) startCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, 30*time.Second)
		defer cancel()
		state, err := m.rec.Start(ctx)
		return syncDoneMsg{state: state, err: err}
	}
}

func (m watchModel) tickCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, 30*time.Second)
		defer cancel()
		state, err := m.rec.Tick(ctx)
		return syncDoneMsg{state: state, err: err}
	}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, m.tickCmd()
		}
		return m, nil
	case syncDoneMsg:
		m.state = msg.state
		m.lastErr = msg.err
		m.primed = true
		return m, tea.Tick(m.pollEvery, func(t time.Time) tea.Msg { return pollTickMsg(t) })
	case pollTickMsg:
		return m, m.tickCmd()
	default:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
}

func (m watchModel) View() string {
	var b strings.Builder

	title := watchTitleStyle.Render("BUDGARDEN")
	if m.state.Offline {
		title += "  " + watchOfflineStyle.Render("OFFLINE")
	}
	b.WriteString(title)
	b.WriteByte('\n')

	if !m.primed {
		b.WriteString(fmt.Sprintf("\n %s syncing with server...\n", m.spin.View()))
		return b.String()
	}

	bal := m.state.Garden.Balance
	b.WriteString(fmt.Sprintf("\nBalance: %s BUD   Pending: %s BUD   Rate: %s BUD/min\n",
		formatMicros(bal.TotalBudMicros),
		formatMicros(bal.AccumulatedBudMicros),
		formatMicros(bal.RateMicrosPerMin),
	))
	if !m.state.LastSync.IsZero() {
		line := fmt.Sprintf("Last sync: %s", m.state.LastSync.Local().Format("15:04:05"))
		if m.state.Offline {
			line += "  (stale, showing cached state)"
		}
		b.WriteString(watchFaintStyle.Render(line))
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	b.WriteString(m.gridView())
	b.WriteByte('\n')

	if len(m.state.Garden.Inventory) > 0 {
		parts := make([]string, 0, len(m.state.Garden.Inventory))
		for _, inv := range m.state.Garden.Inventory {
			parts = append(parts, fmt.Sprintf("%s x%d", inv.ItemKind, inv.Count))
		}
		b.WriteString("Inventory: " + strings.Join(parts, "  "))
		b.WriteByte('\n')
	}

	if m.lastErr != nil {
		b.WriteString(watchFaintStyle.Render(fmt.Sprintf("last error: %v", m.lastErr)))
		b.WriteByte('\n')
	}
	b.WriteString(watchFaintStyle.Render("q quit  r refresh"))
	b.WriteByte('\n')
	return b.String()
}

func (m watchModel) gridView() string {
	occupied := make(map[[2]int]string, len(m.state.Garden.PlacedItems))
	for _, p := range m.state.Garden.PlacedItems {
		occupied[[2]int{p.GridRow, p.GridCol}] = p.ItemKind
	}
	var b strings.Builder
	for row := 0; row < game.GridRows; row++ {
		for col := 0; col < game.GridCols; col++ {
			switch {
			case game.TileBlocked(row, col):
				b.WriteString(watchBlockedStyle.Render(" ##"))
			case occupied[[2]int{row, col}] != "":
				kind := occupied[[2]int{row, col}]
				if len(kind) < 2 {
					kind += " "
				}
				b.WriteString(watchPlantStyle.Render(" " + strings.ToUpper(kind[:2])))
			default:
				b.WriteString(watchEmptyStyle.Render(" .."))
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
