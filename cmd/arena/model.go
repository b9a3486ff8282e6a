package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/brensch/hungrysnek/arena"
)

const recentGames = 8

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Width(14)
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	boardStyle = panelStyle.BorderForeground(lipgloss.Color("63"))
	helpStyle  = lipgloss.NewStyle().Faint(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type gameMsg struct {
	res arena.Result
}

type doneMsg struct {
	err error
}

type tickMsg time.Time

type model struct {
	target    int
	startTime time.Time
	now       time.Time
	summary   arena.Summary
	last      *arena.Result
	recent    []string
	updates   <-chan tea.Msg
	cancel    func()
	done      bool
	err       error
}

func initialModel(target int, updates <-chan tea.Msg, cancel func()) model {
	now := time.Now()
	return model{target: target, startTime: now, now: now, updates: updates, cancel: cancel}
}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForUpdate(updates <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return msg
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), tickCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case tickMsg:
		m.now = time.Time(msg)
		return m, tickCmd()
	case gameMsg:
		res := msg.res
		m.summary.Add(res)
		m.last = &res
		winner := res.WinnerID
		if winner == "" {
			winner = "draw"
		}
		line := fmt.Sprintf("%s  %-8s turns=%-4d defaults=%d", shortID(res.GameID), winner, res.Turns, res.Defaults)
		m.recent = append([]string{line}, m.recent...)
		if len(m.recent) > recentGames {
			m.recent = m.recent[:recentGames]
		}
		return m, waitForUpdate(m.updates)
	case doneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	elapsed := m.now.Sub(m.startTime)
	rate := 0.0
	if elapsed >= time.Second {
		rate = float64(m.summary.Games) / elapsed.Seconds()
	}

	row := func(label, value string) string {
		return labelStyle.Render(label) + value + "\n"
	}

	var stats strings.Builder
	stats.WriteString(titleStyle.Render("hungrysnek arena") + "\n\n")
	stats.WriteString(row("games", fmt.Sprintf("%d/%d", m.summary.Games, m.target)))
	stats.WriteString(row("games/sec", fmt.Sprintf("%.2f", rate)))
	stats.WriteString(row("draws", fmt.Sprint(m.summary.Draws)))
	for _, id := range m.summary.WinnerIDs() {
		stats.WriteString(row("wins "+id, fmt.Sprint(m.summary.Wins[id])))
	}
	stats.WriteString(row("avg turns", fmt.Sprintf("%.1f", m.summary.AvgTurns())))
	stats.WriteString(row("avg length", fmt.Sprintf("%.2f", m.summary.AvgLength())))
	stats.WriteString(row("default rate", fmt.Sprintf("%.2f%%", 100*m.summary.DefaultRate())))
	stats.WriteString(row("blunders", fmt.Sprint(m.summary.Blunders)))
	stats.WriteString("\nrecent games\n")
	for _, line := range m.recent {
		stats.WriteString(line + "\n")
	}

	board := "waiting for first game"
	if m.last != nil {
		board = strings.TrimRight(arena.Render(m.last.Final), "\n")
	}

	out := lipgloss.JoinHorizontal(lipgloss.Top,
		panelStyle.Render(strings.TrimRight(stats.String(), "\n")),
		boardStyle.Render(board),
	)
	if m.err != nil {
		out += "\n" + errStyle.Render(m.err.Error())
	}
	status := "press q to quit"
	if m.done {
		status = "done"
	}
	return out + "\n" + helpStyle.Render(status) + "\n"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
