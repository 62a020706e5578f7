package model

import (
	"fmt"
)

type Counts struct {
	White int `json:"white"`
	Black int `json:"black"`
}

// Snapshot is the serialized form of a relay's game: the state object of
// GET /context and the payload of the relay state file.
type Snapshot struct {
	Turn                Color        `json:"turn"`
	FEN                 string       `json:"fen"`
	Status              Status       `json:"status"`
	Winner              *Color       `json:"winner"`
	LastCommand         string       `json:"lastCommand"`
	LastMove            *MoveRecord  `json:"lastMove"`
	LastInvalidCommand  string       `json:"lastInvalidCommand"`
	InvalidCommandCount int          `json:"invalidCommandCount"`
	Counts              Counts       `json:"counts"`
	Pieces              []Piece      `json:"pieces"`
	History             []MoveRecord `json:"history"`
	HistoryCapacity     int          `json:"historyCapacity"`
	WhitePawns          PawnIndex    `json:"whitePawns"`
	Digest              string       `json:"digest,omitempty"`
}

// Snapshot fills the game part of a Snapshot. Relay counters are left zero.
func (s GameState) Snapshot() Snapshot {
	report := Evaluate(s)
	snap := Snapshot{
		Turn:            s.Turn,
		FEN:             Placement(s.Board),
		Status:          report.Status,
		Winner:          report.Winner,
		Counts:          Counts{White: s.Board.Count(White), Black: s.Board.Count(Black)},
		Pieces:          s.Board.Pieces(),
		History:         s.History.Records(),
		HistoryCapacity: s.History.Cap(),
		WhitePawns:      s.WhitePawns.Clone(),
	}
	if last, ok := s.History.Last(); ok {
		snap.LastMove = &last
	}
	return snap
}

// StateFromSnapshot rebuilds a GameState, keeping piece ids. It rejects
// snapshots that break the board invariants.
func StateFromSnapshot(snap Snapshot) (GameState, error) {
	if !snap.Turn.Valid() {
		return GameState{}, fmt.Errorf("snapshot: invalid turn %q", snap.Turn)
	}
	board := NewBoard()
	ids := make(map[string]bool, len(snap.Pieces))
	for _, p := range snap.Pieces {
		if !p.Color.Valid() || !p.Type.Valid() || !p.Square.Valid() {
			return GameState{}, fmt.Errorf("snapshot: invalid piece %+v", p)
		}
		if _, taken := board.At(p.Square); taken {
			return GameState{}, fmt.Errorf("snapshot: two pieces on %s", p.Square)
		}
		if p.ID == "" || ids[p.ID] {
			return GameState{}, fmt.Errorf("snapshot: missing or duplicate piece id %q", p.ID)
		}
		ids[p.ID] = true
		board.Put(p)
	}

	history := NewHistory(snap.HistoryCapacity)
	for _, rec := range snap.History {
		history.push(rec)
	}

	pawns := make(PawnIndex, len(snap.WhitePawns))
	for n, id := range snap.WhitePawns {
		if n < 1 || n > 8 {
			return GameState{}, fmt.Errorf("snapshot: pawn number %d out of range", n)
		}
		pawns[n] = id
	}

	return GameState{Board: board, Turn: snap.Turn, History: history, WhitePawns: pawns}, nil
}
