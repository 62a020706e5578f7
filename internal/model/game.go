package model

import (
	"github.com/google/uuid"
)

// PawnIndex maps the stable white pawn numbers 1-8 (file a=1 ... h=8 at
// reset) to piece ids.
type PawnIndex map[int]string

func (pi PawnIndex) Clone() PawnIndex {
	clone := make(PawnIndex, len(pi))
	for n, id := range pi {
		clone[n] = id
	}
	return clone
}

// Resolve returns the live pawn behind number n.
func (pi PawnIndex) Resolve(board Board, n int) (Piece, error) {
	id, ok := pi[n]
	if !ok {
		return Piece{}, ErrNoSuchPiece
	}
	p, ok := board.Find(id)
	if !ok || p.Type != Pawn {
		return Piece{}, ErrNoSuchPiece
	}
	return p, nil
}

// forget drops every number pointing at id.
func (pi PawnIndex) forget(id string) {
	for n, pid := range pi {
		if pid == id {
			delete(pi, n)
		}
	}
}

func buildPawnIndex(board Board, color Color) PawnIndex {
	index := make(PawnIndex, 8)
	for _, p := range board.PiecesOf(color) {
		if p.Type == Pawn && p.Square.Rank == color.pawnStartRank() {
			index[p.Square.File+1] = p.ID
		}
	}
	return index
}

// GameState is one immutable snapshot of a game. Operations that change the
// game return a new GameState and leave their input untouched.
type GameState struct {
	Board      Board
	Turn       Color
	History    History
	WhitePawns PawnIndex
}

// NewGameState returns the standard starting position with fresh piece ids.
func NewGameState(historyCapacity int) GameState {
	return newGameStateWithIDs(historyCapacity, uuid.NewString)
}

func newGameStateWithIDs(historyCapacity int, newID func() string) GameState {
	board := newStartingBoard(newID)
	return GameState{
		Board:      board,
		Turn:       White,
		History:    NewHistory(historyCapacity),
		WhitePawns: buildPawnIndex(board, White),
	}
}

func (s GameState) Clone() GameState {
	return GameState{
		Board:      s.Board.Clone(),
		Turn:       s.Turn,
		History:    s.History.Clone(),
		WhitePawns: s.WhitePawns.Clone(),
	}
}

func (s GameState) Placement() string {
	return Placement(s.Board)
}
