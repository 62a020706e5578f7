package model

import (
	"fmt"
	"time"
)

// MoveResult describes an applied move.
type MoveResult struct {
	Record MoveRecord   `json:"record"`
	Status StatusReport `json:"status"`
}

// ApplyMove moves the piece on from to to without checking whose turn it
// is or whether the move is legal. It still refuses a missing piece and a
// destination held by the mover's own color. The input state is never
// modified; on error the returned state is the input.
func ApplyMove(state GameState, from, to Square, raw string, now time.Time) (GameState, MoveResult, error) {
	if !from.Valid() || !to.Valid() {
		return state, MoveResult{}, ErrInvalidSquare
	}
	piece, ok := state.Board.At(from)
	if !ok {
		return state, MoveResult{}, fmt.Errorf("%w on %s", ErrNoSuchPiece, from)
	}
	if target, ok := state.Board.At(to); ok && target.Color == piece.Color {
		return state, MoveResult{}, fmt.Errorf("%s to %s: %w", from, to, ErrSameColorTarget)
	}
	return execute(state, piece, to, raw, now)
}

// ApplyLegalMove is ApplyMove restricted to the side to move and to moves
// the legality filter accepts, in a position that is not already over.
func ApplyLegalMove(state GameState, from, to Square, raw string, now time.Time) (GameState, MoveResult, error) {
	if !from.Valid() || !to.Valid() {
		return state, MoveResult{}, ErrInvalidSquare
	}
	piece, ok := state.Board.At(from)
	if !ok {
		return state, MoveResult{}, fmt.Errorf("%w on %s", ErrNoSuchPiece, from)
	}
	if piece.Color != state.Turn {
		return state, MoveResult{}, fmt.Errorf("%s %s on %s: %w", piece.Color, piece.Type, from, ErrNotYourTurn)
	}
	if target, ok := state.Board.At(to); ok && target.Color == piece.Color {
		return state, MoveResult{}, fmt.Errorf("%s to %s: %w", from, to, ErrSameColorTarget)
	}
	if Evaluate(state).Status.Terminal() {
		return state, MoveResult{}, ErrGameOver
	}
	if !IsLegalMove(state.Board, from, to) {
		return state, MoveResult{}, fmt.Errorf("%s %s %s to %s: %w", piece.Color, piece.Type, from, to, ErrIllegalMove)
	}
	return execute(state, piece, to, raw, now)
}

func execute(state GameState, piece Piece, to Square, raw string, now time.Time) (GameState, MoveResult, error) {
	next := state.Clone()
	record := MoveRecord{
		Color:     piece.Color,
		Piece:     piece.Type,
		From:      piece.Square,
		To:        to,
		Timestamp: now,
		Command:   raw,
	}

	if captured, ok := next.Board.At(to); ok {
		record.Captured = &CapturedPiece{Type: captured.Type, Color: captured.Color}
		next.Board.Remove(to)
		next.WhitePawns.forget(captured.ID)
	}

	next.Board.relocate(piece.Square, to)
	if promotes(piece, to) {
		moved, _ := next.Board.At(to)
		moved.Type = Queen
		next.Board.Put(moved)
		next.WhitePawns.forget(moved.ID)
		record.Promotion = true
	}

	next.History.push(record)
	next.Turn = next.Turn.Opposite()

	return next, MoveResult{Record: record, Status: Evaluate(next)}, nil
}
