package tui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/benbeisheim/chesslink/internal/coordinator"
	"github.com/benbeisheim/chesslink/internal/model"
)

// fakeGame records what the UI asks for and publishes a fixed snapshot.
type fakeGame struct {
	snapshot *coordinator.Snapshot
	updates  chan *coordinator.Snapshot

	attempts []string
	executed []string
	resets   int
	modes    []coordinator.Mode
	humans   []model.Color
	refreshes int

	attemptErr error
}

func newFakeGame(mode coordinator.Mode) *fakeGame {
	state := model.NewGameState(0)
	players := model.Players{White: model.Human, Black: model.Human}
	if mode == coordinator.Simulation {
		players = model.PlayersFor(model.White)
	}
	return &fakeGame{
		snapshot: &coordinator.Snapshot{
			State:   state,
			Status:  model.Evaluate(state),
			Mode:    mode,
			Players: players,
		},
		updates: make(chan *coordinator.Snapshot, 1),
	}
}

func (g *fakeGame) Snapshot() *coordinator.Snapshot { return g.snapshot }
func (g *fakeGame) Updates() <-chan *coordinator.Snapshot { return g.updates }
func (g *fakeGame) Execute(text string) error { g.executed = append(g.executed, text); return nil }
func (g *fakeGame) Reset() error { g.resets++; return nil }
func (g *fakeGame) SetMode(mode coordinator.Mode) { g.modes = append(g.modes, mode) }
func (g *fakeGame) SetHuman(color model.Color) { g.humans = append(g.humans, color) }
func (g *fakeGame) Refresh() { g.refreshes++ }
func (g *fakeGame) Attempt(from, to model.Square) error {
	g.attempts = append(g.attempts, from.String()+to.String())
	return g.attemptErr
}

func typeLine(t *testing.T, m Model, text string) Model {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model)
}

func TestParseSquares(t *testing.T) {
	for _, in := range []string{"e2e4", "e2 e4", "E2-E4", " e2e4 "} {
		from, to, ok := ParseSquares(in)
		if !ok || from.String() != "e2" || to.String() != "e4" {
			t.Errorf("ParseSquares(%q) = %s %s %v", in, from, to, ok)
		}
	}
	for _, in := range []string{"", "e2", "e2e9", "i2e4", "e2e4e5", "reset"} {
		if _, _, ok := ParseSquares(in); ok {
			t.Errorf("ParseSquares(%q) accepted", in)
		}
	}
}

func TestTypedInputRouting(t *testing.T) {
	game := newFakeGame(coordinator.Authoritative)
	m := NewModel(game)

	m = typeLine(t, m, "e2e4")
	m = typeLine(t, m, "reset")
	m = typeLine(t, m, "move_white_knight_from_g1_to_f3")

	if len(game.attempts) != 1 || game.attempts[0] != "e2e4" {
		t.Errorf("attempts = %v", game.attempts)
	}
	if game.resets != 1 {
		t.Errorf("resets = %d", game.resets)
	}
	if len(game.executed) != 1 || game.executed[0] != "move_white_knight_from_g1_to_f3" {
		t.Errorf("executed = %v", game.executed)
	}
	if m.input.Value() != "" {
		t.Errorf("input not cleared: %q", m.input.Value())
	}
}

func TestTypedCommandsKeepTheirCase(t *testing.T) {
	game := newFakeGame(coordinator.Authoritative)
	m := NewModel(game)

	m = typeLine(t, m, "E2E4")
	m = typeLine(t, m, "MOVE_WHITE_KNIGHT_FROM_G1_TO_F3")
	m = typeLine(t, m, "RESET")

	if len(game.attempts) != 1 || game.attempts[0] != "e2e4" {
		t.Errorf("attempts = %v", game.attempts)
	}
	want := []string{"MOVE_WHITE_KNIGHT_FROM_G1_TO_F3", "RESET"}
	if len(game.executed) != len(want) {
		t.Fatalf("executed = %v", game.executed)
	}
	for i := range want {
		if game.executed[i] != want[i] {
			t.Errorf("executed[%d] = %q, want %q", i, game.executed[i], want[i])
		}
	}
	if game.resets != 0 {
		t.Errorf("resets = %d", game.resets)
	}
	if m.input.Value() != "" {
		t.Errorf("input not cleared: %q", m.input.Value())
	}
}

func TestAttemptErrorShown(t *testing.T) {
	game := newFakeGame(coordinator.Simulation)
	game.attemptErr = errors.New("illegal move")
	m := typeLine(t, NewModel(game), "e2e5")

	if !strings.Contains(ansi.Strip(m.View()), "illegal move") {
		t.Fatal("error not rendered")
	}

	game.attemptErr = nil
	m = typeLine(t, m, "e2e4")
	if strings.Contains(ansi.Strip(m.View()), "illegal move") {
		t.Fatal("stale error still rendered")
	}
}

func TestKeyBindings(t *testing.T) {
	game := newFakeGame(coordinator.Authoritative)
	var next tea.Model = NewModel(game)

	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	if len(game.modes) != 1 || game.modes[0] != coordinator.Simulation {
		t.Errorf("modes = %v", game.modes)
	}
	if game.resets != 1 || game.refreshes != 1 {
		t.Errorf("resets = %d refreshes = %d", game.resets, game.refreshes)
	}

	game.snapshot.Players = model.PlayersFor(model.White)
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if len(game.humans) != 1 || game.humans[0] != model.Black {
		t.Errorf("humans = %v", game.humans)
	}

	before := next.(Model).flip
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyCtrlF})
	if next.(Model).flip == before {
		t.Error("flip not toggled")
	}

	_, cmd := next.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("esc returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("esc did not quit")
	}
}

func TestSnapshotMessage(t *testing.T) {
	game := newFakeGame(coordinator.Authoritative)
	m := NewModel(game)

	state, _, err := model.ApplyMove(game.snapshot.State, model.MustSquare("e2"), model.MustSquare("e4"), "", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	next, cmd := m.Update(snapshotMsg{snapshot: &coordinator.Snapshot{
		State:   state,
		Status:  model.Evaluate(state),
		Mode:    coordinator.Authoritative,
		Players: game.snapshot.Players,
		Pending: 1,
	}})
	if cmd == nil {
		t.Fatal("stopped listening for snapshots")
	}
	view := ansi.Strip(next.View())
	for _, want := range []string{"Black to move", "white pawn e2-e4", "waiting on relay (1)"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestViewShowsModeAndPlayers(t *testing.T) {
	view := ansi.Strip(NewModel(newFakeGame(coordinator.Simulation)).View())
	for _, want := range []string{"simulation", "white: human", "black: autonomous", "White to move", "no moves yet"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestRunLines(t *testing.T) {
	game := newFakeGame(coordinator.Authoritative)
	in := strings.NewReader("# opening\ne2e4\n\nbogus\n")
	var out bytes.Buffer

	if err := RunLines(context.Background(), game, in, &out); err != nil {
		t.Fatal(err)
	}
	if len(game.attempts) != 1 || len(game.executed) != 1 || game.executed[0] != "bogus" {
		t.Fatalf("attempts %v executed %v", game.attempts, game.executed)
	}
	if !strings.Contains(out.String(), "White to move") {
		t.Fatalf("initial position not printed:\n%s", out.String())
	}
}
