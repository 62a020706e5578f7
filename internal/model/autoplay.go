package model

import (
	"math/rand/v2"
)

// Piece values used when scoring captures.
var pieceValues = map[PieceType]float64{
	Pawn:   1,
	Knight: 3,
	Bishop: 3,
	Rook:   5,
	Queen:  9,
	King:   200,
}

const (
	captureBonus   = 0.5
	promotionBonus = 8
	jitterRange    = 0.25
	pickTolerance  = 0.3
)

// Candidate is a scored legal move considered by PickMove.
type Candidate struct {
	Piece Piece
	To    Square
	Score float64
}

// PickMove chooses a one-ply move for color: every legal move is scored by
// captured value, a flat capture bonus, a promotion bonus and a little
// jitter, then one of the moves within pickTolerance of the best score is
// drawn uniformly. It returns false when color has no legal move.
func PickMove(board Board, color Color, rng *rand.Rand) (Candidate, bool) {
	moves := AllLegalMoves(board, color)
	if len(moves) == 0 {
		return Candidate{}, false
	}

	candidates := make([]Candidate, 0, len(moves))
	best := 0.0
	for i, m := range moves {
		score := rng.Float64() * jitterRange
		if victim, ok := board.At(m.To); ok {
			score += pieceValues[victim.Type] + captureBonus
		}
		if promotes(m.Piece, m.To) {
			score += promotionBonus
		}
		if i == 0 || score > best {
			best = score
		}
		candidates = append(candidates, Candidate{Piece: m.Piece, To: m.To, Score: score})
	}

	near := candidates[:0]
	for _, c := range candidates {
		if best-c.Score <= pickTolerance {
			near = append(near, c)
		}
	}
	return near[rng.IntN(len(near))], true
}
