package model

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"testing"
	"time"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("p%02d", n)
	}
}

func newTestState(t *testing.T) GameState {
	t.Helper()
	return newGameStateWithIDs(DefaultHistoryCapacity, sequentialIDs())
}

func stateFrom(t *testing.T, placement string, turn Color) GameState {
	t.Helper()
	state, err := StateFromPlacement(placement, turn, DefaultHistoryCapacity)
	if err != nil {
		t.Fatalf("StateFromPlacement(%q): %v", placement, err)
	}
	return state
}

func squares(t *testing.T, names ...string) []Square {
	t.Helper()
	out := make([]Square, 0, len(names))
	for _, n := range names {
		sq, err := ParseSquare(n)
		if err != nil {
			t.Fatalf("ParseSquare(%q): %v", n, err)
		}
		out = append(out, sq)
	}
	return out
}

func sortedNames(sqs []Square) []string {
	names := make([]string, 0, len(sqs))
	for _, sq := range sqs {
		names = append(names, sq.String())
	}
	sort.Strings(names)
	return names
}

func assertSquares(t *testing.T, label string, got []Square, want ...string) {
	t.Helper()
	sort.Strings(want)
	gotNames := sortedNames(got)
	if fmt.Sprint(gotNames) != fmt.Sprint(want) {
		t.Fatalf("%s: got %v, want %v", label, gotNames, want)
	}
}

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestStartingPosition(t *testing.T) {
	state := newTestState(t)
	if got, want := state.Placement(), "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR"; got != want {
		t.Fatalf("placement = %q, want %q", got, want)
	}
	if state.Turn != White {
		t.Fatalf("turn = %s, want white", state.Turn)
	}
	if state.Board.Len() != 32 {
		t.Fatalf("board has %d pieces, want 32", state.Board.Len())
	}
	seen := map[string]bool{}
	for _, p := range state.Board.Pieces() {
		if seen[p.ID] {
			t.Fatalf("duplicate piece id %s", p.ID)
		}
		seen[p.ID] = true
	}
	for n := 1; n <= 8; n++ {
		p, err := state.WhitePawns.Resolve(state.Board, n)
		if err != nil {
			t.Fatalf("pawn %d: %v", n, err)
		}
		if p.Square.File != n-1 || p.Square.Rank != 1 {
			t.Fatalf("pawn %d on %s", n, p.Square)
		}
	}
}

func TestPlacementRoundTrip(t *testing.T) {
	for _, placement := range []string{
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR",
		"rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR",
		"k7/2Q5/2K5/8/8/8/8/8",
		"8/8/8/8/8/8/8/8",
	} {
		board, err := ParsePlacement(placement)
		if err != nil {
			t.Fatalf("ParsePlacement(%q): %v", placement, err)
		}
		if got := Placement(board); got != placement {
			t.Errorf("round trip %q -> %q", placement, got)
		}
	}
	for _, bad := range []string{"", "8/8/8", "9/8/8/8/8/8/8/8", "x7/8/8/8/8/8/8/8", "ppppppppp/8/8/8/8/8/8/8"} {
		if _, err := ParsePlacement(bad); err == nil {
			t.Errorf("ParsePlacement(%q) accepted", bad)
		}
	}
}

func TestParseSquare(t *testing.T) {
	for _, bad := range []string{"", "e", "i1", "a0", "a9", "E2", "e22"} {
		if _, err := ParseSquare(bad); err == nil {
			t.Errorf("ParseSquare(%q) accepted", bad)
		}
	}
	sq, err := ParseSquare("h8")
	if err != nil || sq != (Square{File: 7, Rank: 7}) {
		t.Fatalf("ParseSquare(h8) = %v, %v", sq, err)
	}
}

func TestPseudoLegalMoves(t *testing.T) {
	tests := []struct {
		name      string
		placement string
		from      string
		want      []string
	}{
		{"pawn double step", "8/8/8/8/8/8/4P3/8", "e2", []string{"e3", "e4"}},
		{"pawn blocked", "8/8/8/8/8/4p3/4P3/8", "e2", nil},
		{"pawn double blocked", "8/8/8/8/4p3/8/4P3/8", "e2", []string{"e3"}},
		{"pawn not on start rank", "8/8/8/8/8/4P3/8/8", "e3", []string{"e4"}},
		{"pawn captures", "8/8/8/8/8/3p1P2/4P3/8", "e2", []string{"e3", "e4", "d3"}},
		{"black pawn", "8/3p4/2P5/8/8/8/8/8", "d7", []string{"d6", "d5", "c6"}},
		{"pawn edge", "8/8/8/8/8/1p6/P7/8", "a2", []string{"a3", "a4", "b3"}},
		{"knight corner", "8/8/8/8/8/8/2P5/N7", "a1", []string{"b3"}},
		{"king", "8/8/8/8/8/8/3p4/3K4", "d1", []string{"c1", "e1", "c2", "d2", "e2"}},
		{"rook rays", "8/8/8/8/P7/8/8/R2n4", "a1", []string{"a2", "a3", "b1", "c1", "d1"}},
		{"bishop rays", "8/8/8/8/8/8/1P6/2B5", "c1", []string{"d2", "e3", "f4", "g5", "h6"}},
		{"queen", "8/8/8/8/8/8/PP6/QP6", "a1", nil},
		{"empty square", "8/8/8/8/8/8/8/8", "a1", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			board, err := ParsePlacement(tt.placement)
			if err != nil {
				t.Fatalf("ParsePlacement: %v", err)
			}
			assertSquares(t, tt.name, PseudoLegalMoves(board, MustSquare(tt.from)), tt.want...)
		})
	}
}

func TestGenerationStaysOnBoard(t *testing.T) {
	board, err := ParsePlacement("QN5K/8/8/8/8/8/8/k5NQ")
	if err != nil {
		t.Fatalf("ParsePlacement: %v", err)
	}
	for _, p := range board.Pieces() {
		for _, sq := range PseudoLegalMoves(board, p.Square) {
			if !sq.Valid() {
				t.Fatalf("%s on %s produced off-board %v", p.Type, p.Square, sq)
			}
		}
	}
}

func TestIsSquareAttacked(t *testing.T) {
	tests := []struct {
		name      string
		placement string
		target    string
		by        Color
		want      bool
	}{
		{"pawn diagonal", "8/8/8/8/8/8/4P3/8", "d3", White, true},
		{"pawn not forward", "8/8/8/8/8/8/4P3/8", "e3", White, false},
		{"black pawn diagonal", "8/4p3/8/8/8/8/8/8", "f6", Black, true},
		{"knight", "8/8/8/8/8/8/8/1N6", "c3", White, true},
		{"king adjacent", "8/8/8/8/8/8/8/4K3", "d2", White, true},
		{"rook clear", "8/8/8/8/8/8/8/R6k", "h1", White, true},
		{"rook blocked", "8/8/8/8/8/8/8/R2P3k", "h1", White, false},
		{"rook target own color", "8/8/8/8/8/8/8/R6P", "h1", White, true},
		{"bishop blocked by enemy", "8/8/8/8/8/2p5/8/B7", "d4", White, false},
		{"queen diagonal", "7q/8/8/8/8/8/8/8", "a1", Black, true},
		{"wrong color", "8/8/8/8/8/8/8/R6k", "h1", Black, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			board, err := ParsePlacement(tt.placement)
			if err != nil {
				t.Fatalf("ParsePlacement: %v", err)
			}
			if got := IsSquareAttacked(board, MustSquare(tt.target), tt.by); got != tt.want {
				t.Fatalf("IsSquareAttacked(%s, %s) = %v, want %v", tt.target, tt.by, got, tt.want)
			}
		})
	}
}

func TestLegalMovesSubsetOfPseudoLegal(t *testing.T) {
	for _, placement := range []string{
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR",
		"4r3/8/8/8/8/8/4R3/4K3",
		"r3k2r/pp3ppp/2n1bn2/2bpp3/4P3/2NP1N2/PPP2PPP/R1BQKB1R",
		"8/P6k/8/8/8/8/6K1/8",
	} {
		board, err := ParsePlacement(placement)
		if err != nil {
			t.Fatalf("ParsePlacement: %v", err)
		}
		for _, p := range board.Pieces() {
			pseudo := map[Square]bool{}
			for _, sq := range PseudoLegalMoves(board, p.Square) {
				pseudo[sq] = true
			}
			for _, sq := range LegalMoves(board, p.Square) {
				if !pseudo[sq] {
					t.Fatalf("%s: legal %s -> %s not pseudo-legal", placement, p.Square, sq)
				}
			}
		}
	}
}

func TestPinnedPieceCannotExposeKing(t *testing.T) {
	board, err := ParsePlacement("4r3/8/8/8/8/8/4R3/4K3")
	if err != nil {
		t.Fatalf("ParsePlacement: %v", err)
	}
	before := Placement(board)
	e2 := MustSquare("e2")

	pseudo := PseudoLegalMoves(board, e2)
	assertSquares(t, "pseudo", pseudo, "a2", "b2", "c2", "d2", "f2", "g2", "h2", "e3", "e4", "e5", "e6", "e7", "e8")
	assertSquares(t, "legal", LegalMoves(board, e2), "e3", "e4", "e5", "e6", "e7", "e8")

	if Placement(board) != before {
		t.Fatalf("legality filter mutated the board")
	}
}

func TestKingCannotStepIntoAttack(t *testing.T) {
	board, err := ParsePlacement("8/8/8/8/8/8/r7/4K3")
	if err != nil {
		t.Fatalf("ParsePlacement: %v", err)
	}
	assertSquares(t, "king", LegalMoves(board, MustSquare("e1")), "d1", "f1")
}

func TestApplyLegalMoveOpening(t *testing.T) {
	state := newTestState(t)
	before := state.Placement()

	next, res, err := ApplyLegalMove(state, MustSquare("e2"), MustSquare("e4"), "move_white_pawn_from_e2_to_e4", epoch)
	if err != nil {
		t.Fatalf("ApplyLegalMove: %v", err)
	}
	if state.Placement() != before || state.Turn != White || state.History.Len() != 0 {
		t.Fatalf("input state was modified")
	}
	if next.Turn != Black {
		t.Fatalf("turn = %s, want black", next.Turn)
	}
	if got := next.Placement(); got != "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR" {
		t.Fatalf("placement = %q", got)
	}
	if _, ok := next.Board.At(MustSquare("e2")); ok {
		t.Fatalf("source square still occupied")
	}
	moved, ok := next.Board.At(MustSquare("e4"))
	if !ok || moved.Type != Pawn || moved.Color != White {
		t.Fatalf("destination holds %+v", moved)
	}
	if res.Record.Piece != Pawn || res.Record.From != MustSquare("e2") || res.Record.Captured != nil {
		t.Fatalf("record = %+v", res.Record)
	}
	if res.Status.Status != StatusNormal {
		t.Fatalf("status = %s", res.Status.Status)
	}
	if p, err := next.WhitePawns.Resolve(next.Board, 5); err != nil || p.Square != MustSquare("e4") {
		t.Fatalf("pawn 5 resolves to %+v, %v", p, err)
	}
}

func TestApplyMoveRejections(t *testing.T) {
	state := newTestState(t)
	tests := []struct {
		name    string
		from    string
		to      string
		legal   bool
		wantErr error
	}{
		{"empty source", "e4", "e5", false, ErrNoSuchPiece},
		{"own piece target", "a1", "a2", false, ErrSameColorTarget},
		{"same square", "a1", "a1", false, ErrSameColorTarget},
		{"wrong turn", "e7", "e5", true, ErrNotYourTurn},
		{"illegal geometry", "e2", "e5", true, ErrIllegalMove},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apply := ApplyMove
			if tt.legal {
				apply = ApplyLegalMove
			}
			next, _, err := apply(state, MustSquare(tt.from), MustSquare(tt.to), "", epoch)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if next.Placement() != state.Placement() || next.Turn != state.Turn {
				t.Fatalf("rejected move changed the state")
			}
		})
	}
}

func TestApplyMoveIsPermissive(t *testing.T) {
	state := newTestState(t)
	// Black moves first and a pawn jumps three squares; the relay path allows both.
	next, _, err := ApplyMove(state, MustSquare("e7"), MustSquare("e4"), "", epoch)
	if err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	if next.Turn != Black {
		t.Fatalf("turn = %s, want black after one flip", next.Turn)
	}
}

func TestCaptureUpdatesPawnIndex(t *testing.T) {
	state := newTestState(t)
	moves := [][2]string{{"e2", "e4"}, {"d7", "d5"}, {"a2", "a3"}, {"d5", "e4"}}
	var err error
	var res MoveResult
	for _, m := range moves {
		state, res, err = ApplyLegalMove(state, MustSquare(m[0]), MustSquare(m[1]), "", epoch)
		if err != nil {
			t.Fatalf("%s-%s: %v", m[0], m[1], err)
		}
	}
	if res.Record.Captured == nil || res.Record.Captured.Type != Pawn || res.Record.Captured.Color != White {
		t.Fatalf("captured = %+v", res.Record.Captured)
	}
	if _, err := state.WhitePawns.Resolve(state.Board, 5); !errors.Is(err, ErrNoSuchPiece) {
		t.Fatalf("pawn 5 after capture: %v", err)
	}
	if state.Board.Count(White) != 15 {
		t.Fatalf("white count = %d", state.Board.Count(White))
	}
}

func TestPromotionAlwaysQueen(t *testing.T) {
	for _, tt := range []struct {
		placement string
		turn      Color
		from, to  string
		color     Color
	}{
		{"8/P6k/8/8/8/8/6K1/8", White, "a7", "a8", White},
		{"1r5k/P7/8/8/8/8/6K1/8", White, "a7", "b8", White},
		{"7k/8/8/8/8/8/p5K1/8", Black, "a2", "a1", Black},
	} {
		state := stateFrom(t, tt.placement, tt.turn)
		next, res, err := ApplyLegalMove(state, MustSquare(tt.from), MustSquare(tt.to), "", epoch)
		if err != nil {
			t.Fatalf("%s %s-%s: %v", tt.placement, tt.from, tt.to, err)
		}
		p, ok := next.Board.At(MustSquare(tt.to))
		if !ok || p.Type != Queen || p.Color != tt.color {
			t.Fatalf("%s: destination holds %+v", tt.placement, p)
		}
		if !res.Record.Promotion || res.Record.Piece != Pawn {
			t.Fatalf("%s: record = %+v", tt.placement, res.Record)
		}
	}
}

func TestPromotedPawnLeavesPawnIndex(t *testing.T) {
	state := stateFrom(t, "7k/8/8/8/8/8/P5K1/8", White)
	// Walk the a-pawn to the last rank while black shuffles its king.
	steps := [][2]string{{"a2", "a4"}, {"h8", "g8"}, {"a4", "a5"}, {"g8", "h8"}, {"a5", "a6"}, {"h8", "g8"}, {"a6", "a7"}, {"g8", "h8"}, {"a7", "a8"}}
	var err error
	for _, s := range steps {
		state, _, err = ApplyLegalMove(state, MustSquare(s[0]), MustSquare(s[1]), "", epoch)
		if err != nil {
			t.Fatalf("%s-%s: %v", s[0], s[1], err)
		}
	}
	if _, err := state.WhitePawns.Resolve(state.Board, 1); !errors.Is(err, ErrNoSuchPiece) {
		t.Fatalf("promoted pawn still resolves: %v", err)
	}
}

func TestFoolsMate(t *testing.T) {
	state := newTestState(t)
	var res MoveResult
	var err error
	for _, m := range [][2]string{{"f2", "f3"}, {"e7", "e5"}, {"g2", "g4"}, {"d8", "h4"}} {
		state, res, err = ApplyLegalMove(state, MustSquare(m[0]), MustSquare(m[1]), "", epoch)
		if err != nil {
			t.Fatalf("%s-%s: %v", m[0], m[1], err)
		}
	}
	if res.Status.Status != StatusCheckmate || !res.Status.InCheck {
		t.Fatalf("status = %+v", res.Status)
	}
	if res.Status.Winner == nil || *res.Status.Winner != Black {
		t.Fatalf("winner = %v", res.Status.Winner)
	}
	if _, _, err := ApplyLegalMove(state, MustSquare("a2"), MustSquare("a3"), "", epoch); !errors.Is(err, ErrGameOver) {
		t.Fatalf("move after mate: %v", err)
	}
}

func TestStatuses(t *testing.T) {
	tests := []struct {
		name      string
		placement string
		turn      Color
		want      Status
	}{
		{"normal", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR", White, StatusNormal},
		{"check", "4r3/8/8/8/8/8/8/4K3", White, StatusCheck},
		{"stalemate", "k7/2Q5/2K5/8/8/8/8/8", Black, StatusStalemate},
		{"back rank mate", "6k1/5ppp/8/8/8/8/8/3R2K1", White, StatusNormal},
		{"mated", "3R2k1/5ppp/8/8/8/8/8/6K1", Black, StatusCheckmate},
		{"no king", "8/8/8/8/8/8/8/R7", Black, StatusStalemate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := Evaluate(stateFrom(t, tt.placement, tt.turn))
			if report.Status != tt.want {
				t.Fatalf("status = %s, want %s", report.Status, tt.want)
			}
			terminal := report.Status == StatusCheckmate || report.Status == StatusStalemate
			if terminal && len(AllLegalMoves(stateFrom(t, tt.placement, tt.turn).Board, tt.turn)) != 0 {
				t.Fatalf("terminal status with legal moves left")
			}
			if report.Status == StatusCheckmate && !report.InCheck {
				t.Fatalf("checkmate without check")
			}
			if report.Status == StatusStalemate && report.InCheck {
				t.Fatalf("stalemate while in check")
			}
		})
	}
}

func TestHistoryEvictsOldest(t *testing.T) {
	state, err := StateFromPlacement("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR", White, 2)
	if err != nil {
		t.Fatalf("StateFromPlacement: %v", err)
	}
	moves := [][2]string{{"e2", "e4"}, {"e7", "e5"}, {"g1", "f3"}}
	for i, m := range moves {
		state, _, err = ApplyLegalMove(state, MustSquare(m[0]), MustSquare(m[1]), fmt.Sprintf("cmd%d", i), epoch)
		if err != nil {
			t.Fatalf("%v: %v", m, err)
		}
	}
	records := state.History.Records()
	if len(records) != 2 {
		t.Fatalf("history length = %d, want 2", len(records))
	}
	if records[0].Command != "cmd1" || records[1].Command != "cmd2" {
		t.Fatalf("history = %q, %q", records[0].Command, records[1].Command)
	}
	if last, _ := state.History.Last(); last.Command != "cmd2" {
		t.Fatalf("last = %q", last.Command)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	state := newTestState(t)
	state, _, err := ApplyLegalMove(state, MustSquare("e2"), MustSquare("e4"), "move_white_pawn_from_e2_to_e4", epoch)
	if err != nil {
		t.Fatalf("ApplyLegalMove: %v", err)
	}
	snap := state.Snapshot()
	if snap.Counts.White != 16 || snap.Counts.Black != 16 {
		t.Fatalf("counts = %+v", snap.Counts)
	}
	if snap.LastMove == nil || snap.LastMove.Command != "move_white_pawn_from_e2_to_e4" {
		t.Fatalf("last move = %+v", snap.LastMove)
	}
	restored, err := StateFromSnapshot(snap)
	if err != nil {
		t.Fatalf("StateFromSnapshot: %v", err)
	}
	if restored.Placement() != state.Placement() || restored.Turn != state.Turn {
		t.Fatalf("restored %q/%s, want %q/%s", restored.Placement(), restored.Turn, state.Placement(), state.Turn)
	}
	if restored.History.Len() != 1 || restored.History.Cap() != DefaultHistoryCapacity {
		t.Fatalf("restored history len=%d cap=%d", restored.History.Len(), restored.History.Cap())
	}
	for n, id := range state.WhitePawns {
		if restored.WhitePawns[n] != id {
			t.Fatalf("pawn %d id %q, want %q", n, restored.WhitePawns[n], id)
		}
	}

	dup := snap
	dup.Pieces = append(append([]Piece{}, snap.Pieces...), snap.Pieces[0])
	if _, err := StateFromSnapshot(dup); err == nil {
		t.Fatalf("duplicate piece accepted")
	}
}

func TestPickMovePrefersCapture(t *testing.T) {
	state := stateFrom(t, "3q3k/8/8/8/8/8/8/K2Q4", White)
	for seed := uint64(0); seed < 20; seed++ {
		rng := rand.New(rand.NewPCG(seed, 7))
		c, ok := PickMove(state.Board, White, rng)
		if !ok {
			t.Fatalf("no move picked")
		}
		if c.Piece.Type != Queen || c.To != MustSquare("d8") {
			t.Fatalf("seed %d picked %s %s -> %s", seed, c.Piece.Type, c.Piece.Square, c.To)
		}
	}
}

func TestPickMovePrefersPromotion(t *testing.T) {
	state := stateFrom(t, "7k/P7/8/8/8/8/8/K7", White)
	c, ok := PickMove(state.Board, White, rand.New(rand.NewPCG(1, 2)))
	if !ok || c.To != MustSquare("a8") {
		t.Fatalf("picked %+v, %v", c, ok)
	}
}

func TestPickMoveVariesAmongEquals(t *testing.T) {
	state := newTestState(t)
	seen := map[string]bool{}
	for seed := uint64(0); seed < 40; seed++ {
		c, ok := PickMove(state.Board, White, rand.New(rand.NewPCG(seed, seed+1)))
		if !ok {
			t.Fatalf("no move picked")
		}
		if !IsLegalMove(state.Board, c.Piece.Square, c.To) {
			t.Fatalf("picked illegal move %s -> %s", c.Piece.Square, c.To)
		}
		seen[c.Piece.Square.String()+c.To.String()] = true
	}
	if len(seen) < 2 {
		t.Fatalf("picker always chose the same opening move")
	}
}

func TestPickMoveNoLegalMoves(t *testing.T) {
	state := stateFrom(t, "k7/2Q5/2K5/8/8/8/8/8", Black)
	if _, ok := PickMove(state.Board, Black, rand.New(rand.NewPCG(1, 1))); ok {
		t.Fatalf("picked a move in stalemate")
	}
}
