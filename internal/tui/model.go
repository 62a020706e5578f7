// Package tui is the interactive terminal client. It renders the
// coordinator's snapshots and turns typed input into moves.
//
// Moves are typed as two squares ("e2e4", "e2 e4" or "e2-e4") or as a full
// relay command such as "move_white_pawn_number_5_to_e4". "reset" starts a
// new game.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/benbeisheim/chesslink/internal/command"
	"github.com/benbeisheim/chesslink/internal/coordinator"
	"github.com/benbeisheim/chesslink/internal/model"
	"github.com/benbeisheim/chesslink/internal/render"
)

// Game is the part of the coordinator the UI drives.
type Game interface {
	Snapshot() *coordinator.Snapshot
	Updates() <-chan *coordinator.Snapshot
	Attempt(from, to model.Square) error
	Execute(text string) error
	Reset() error
	SetMode(mode coordinator.Mode)
	SetHuman(color model.Color)
	Refresh()
}

const recentMoves = 8

type snapshotMsg struct {
	snapshot *coordinator.Snapshot
}

type Model struct {
	game     Game
	snapshot *coordinator.Snapshot
	input    textinput.Model
	keys     KeyMap
	theme    render.Theme

	flip bool
	// lastError is the outcome of the last local input, cleared by the
	// next one.
	lastError string

	width  int
	height int
}

func NewModel(game Game) Model {
	input := textinput.New()
	input.Placeholder = "e2e4"
	input.Prompt = "> "
	input.CharLimit = 64
	input.Focus()

	snapshot := game.Snapshot()
	return Model{
		game:     game,
		snapshot: snapshot,
		input:    input,
		keys:     DefaultKeyMap,
		theme:    render.DefaultTheme,
		flip:     snapshot.Mode == coordinator.Simulation && snapshot.Players.Black == model.Human && snapshot.Players.White != model.Human,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, listenForSnapshot(m.game.Updates()))
}

// listenForSnapshot blocks until the coordinator publishes a new snapshot.
func listenForSnapshot(channel <-chan *coordinator.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snapshot, ok := <-channel
		if !ok {
			return nil
		}
		return snapshotMsg{snapshot: snapshot}
	}
}

func (m Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case snapshotMsg:
		m.snapshot = message.snapshot
		return m, listenForSnapshot(m.game.Updates())

	case tea.WindowSizeMsg:
		m.width = message.Width
		m.height = message.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(message, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(message, m.keys.Submit):
			text := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			m.lastError = ""
			if text != "" {
				if err := m.run(text); err != nil {
					m.lastError = err.Error()
				}
			}
			return m.refreshed(), nil

		case key.Matches(message, m.keys.ToggleMode):
			next := coordinator.Simulation
			if m.snapshot.Mode == coordinator.Simulation {
				next = coordinator.Authoritative
			}
			m.game.SetMode(next)
			return m.refreshed(), nil

		case key.Matches(message, m.keys.SwapSides):
			human := model.White
			if m.snapshot.Players.White == model.Human {
				human = model.Black
			}
			m.game.SetHuman(human)
			return m.refreshed(), nil

		case key.Matches(message, m.keys.Flip):
			m.flip = !m.flip
			return m, nil

		case key.Matches(message, m.keys.Reset):
			m.lastError = ""
			if err := m.game.Reset(); err != nil {
				m.lastError = err.Error()
			}
			return m.refreshed(), nil

		case key.Matches(message, m.keys.Refresh):
			m.game.Refresh()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(message)
	return m, cmd
}

// refreshed picks up the snapshot published by a call that just returned,
// without waiting for the update channel.
func (m Model) refreshed() Model {
	m.snapshot = m.game.Snapshot()
	return m
}

func (m Model) run(text string) error {
	if from, to, ok := ParseSquares(text); ok {
		return m.game.Attempt(from, to)
	}
	if text == command.Reset || text == "reset_board" {
		return m.game.Reset()
	}
	// Full commands go to the relay exactly as typed; only the square
	// shorthand is case-insensitive.
	return m.game.Execute(text)
}

// ParseSquares reads a move typed as two squares: "e2e4", "e2 e4" or
// "e2-e4", in either case.
func ParseSquares(text string) (from, to model.Square, ok bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.NewReplacer(" ", "", "-", "").Replace(text)
	if len(text) != 4 {
		return model.Square{}, model.Square{}, false
	}
	from, err := model.ParseSquare(text[:2])
	if err != nil {
		return model.Square{}, model.Square{}, false
	}
	to, err = model.ParseSquare(text[2:])
	if err != nil {
		return model.Square{}, model.Square{}, false
	}
	return from, to, true
}

func (m Model) View() string {
	snap := m.snapshot
	faint := lipgloss.NewStyle().Foreground(m.theme.FaintText)

	header := lipgloss.NewStyle().Bold(true).Render("chesslink") + "  " +
		faint.Render(fmt.Sprintf("%s  white: %s  black: %s", snap.Mode, snap.Players.White, snap.Players.Black))
	if snap.Pending > 0 {
		header += faint.Render(fmt.Sprintf("  waiting on relay (%d)", snap.Pending))
	}

	board := render.Board(snap.State, render.Options{Theme: m.theme, Flip: m.flip})

	side := []string{render.Status(snap.Status, m.theme), ""}
	moves := render.Moves(snap.State.History, recentMoves)
	if len(moves) == 0 {
		side = append(side, faint.Render("no moves yet"))
	}
	for _, line := range moves {
		side = append(side, faint.Render(line))
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, board, "    ", strings.Join(side, "\n"))

	lines := []string{header, "", body, ""}
	notice := lipgloss.NewStyle().Foreground(m.theme.Notice)
	if snap.Notice != "" {
		lines = append(lines, notice.Render(snap.Notice))
	}
	if m.lastError != "" {
		lines = append(lines, notice.Render(m.lastError))
	}
	lines = append(lines, m.input.View(), m.helpLine())
	return strings.Join(lines, "\n")
}

func (m Model) helpLine() string {
	var parts []string
	for _, binding := range m.keys.help() {
		h := binding.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return lipgloss.NewStyle().Foreground(m.theme.FaintText).Render(strings.Join(parts, " · "))
}
