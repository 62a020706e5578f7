package model

// LegalMoves filters PseudoLegalMoves down to the moves that do not leave
// the mover's king attacked. The move is simulated on a cloned board, so
// board itself is never touched.
func LegalMoves(board Board, sq Square) []Square {
	piece, ok := board.At(sq)
	if !ok {
		return nil
	}
	var legal []Square
	for _, to := range PseudoLegalMoves(board, sq) {
		if !exposesKing(board, piece, to) {
			legal = append(legal, to)
		}
	}
	return legal
}

func IsLegalMove(board Board, from, to Square) bool {
	for _, sq := range LegalMoves(board, from) {
		if sq == to {
			return true
		}
	}
	return false
}

// LegalMove is one legal (from, to) pair.
type LegalMove struct {
	Piece Piece
	To    Square
}

// AllLegalMoves lists every legal move for color, pieces ordered a1 ... h8.
func AllLegalMoves(board Board, color Color) []LegalMove {
	var out []LegalMove
	for _, p := range board.PiecesOf(color) {
		for _, to := range LegalMoves(board, p.Square) {
			out = append(out, LegalMove{Piece: p, To: to})
		}
	}
	return out
}

func exposesKing(board Board, piece Piece, to Square) bool {
	sim := board.Clone()
	sim.Remove(to)
	sim.relocate(piece.Square, to)
	if promotes(piece, to) {
		moved, _ := sim.At(to)
		moved.Type = Queen
		sim.Put(moved)
	}
	return InCheck(sim, piece.Color)
}

func promotes(piece Piece, to Square) bool {
	return piece.Type == Pawn && to.Rank == piece.Color.promotionRank()
}
