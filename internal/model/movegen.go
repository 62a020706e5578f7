package model

type direction struct {
	df, dr int
}

var (
	rookDirs   = []direction{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	bishopDirs = []direction{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	queenDirs  = append(append([]direction{}, rookDirs...), bishopDirs...)
	knightDirs = []direction{{2, 1}, {2, -1}, {-2, 1}, {-2, -1}, {1, 2}, {1, -2}, {-1, 2}, {-1, -2}}
	kingDirs   = queenDirs
)

func slidingDirs(pt PieceType) []direction {
	switch pt {
	case Rook:
		return rookDirs
	case Bishop:
		return bishopDirs
	case Queen:
		return queenDirs
	}
	return nil
}

// walkRay visits each on-board square from `from` (exclusive) along dir.
// visit receives the square and its occupant, if any; the walk stops after
// the first occupied square or when visit returns false.
func walkRay(board Board, from Square, dir direction, visit func(sq Square, occupant *Piece) bool) {
	target := from.offset(dir.df, dir.dr)
	for target.Valid() {
		if p, ok := board.At(target); ok {
			visit(target, &p)
			return
		}
		if !visit(target, nil) {
			return
		}
		target = target.offset(dir.df, dir.dr)
	}
}

// PseudoLegalMoves lists the destinations of the piece on sq without regard
// to the safety of its own king. An empty square yields nil.
func PseudoLegalMoves(board Board, sq Square) []Square {
	piece, ok := board.At(sq)
	if !ok {
		return nil
	}
	switch piece.Type {
	case Pawn:
		return pawnMoves(board, piece)
	case Knight:
		return stepMoves(board, piece, knightDirs)
	case King:
		return stepMoves(board, piece, kingDirs)
	case Rook, Bishop, Queen:
		return slidingMoves(board, piece, slidingDirs(piece.Type))
	}
	return nil
}

func pawnMoves(board Board, piece Piece) []Square {
	var moves []Square
	fwd := piece.Color.forward()
	one := piece.Square.offset(0, fwd)
	if one.Valid() {
		if _, occupied := board.At(one); !occupied {
			moves = append(moves, one)
			two := piece.Square.offset(0, 2*fwd)
			if piece.Square.Rank == piece.Color.pawnStartRank() && two.Valid() {
				if _, occupied := board.At(two); !occupied {
					moves = append(moves, two)
				}
			}
		}
	}
	for _, df := range []int{-1, 1} {
		target := piece.Square.offset(df, fwd)
		if !target.Valid() {
			continue
		}
		if occupant, ok := board.At(target); ok && occupant.Color != piece.Color {
			moves = append(moves, target)
		}
	}
	return moves
}

func stepMoves(board Board, piece Piece, dirs []direction) []Square {
	var moves []Square
	for _, dir := range dirs {
		target := piece.Square.offset(dir.df, dir.dr)
		if !target.Valid() {
			continue
		}
		if occupant, ok := board.At(target); ok && occupant.Color == piece.Color {
			continue
		}
		moves = append(moves, target)
	}
	return moves
}

func slidingMoves(board Board, piece Piece, dirs []direction) []Square {
	var moves []Square
	for _, dir := range dirs {
		walkRay(board, piece.Square, dir, func(sq Square, occupant *Piece) bool {
			if occupant == nil || occupant.Color != piece.Color {
				moves = append(moves, sq)
			}
			return true
		})
	}
	return moves
}
