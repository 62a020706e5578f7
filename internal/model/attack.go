package model

// IsSquareAttacked reports whether any piece of attacker could capture on
// target. The occupant of target, if any, does not matter.
func IsSquareAttacked(board Board, target Square, attacker Color) bool {
	for _, p := range board.PiecesOf(attacker) {
		if attacks(board, p, target) {
			return true
		}
	}
	return false
}

func attacks(board Board, p Piece, target Square) bool {
	if p.Square == target {
		return false
	}
	switch p.Type {
	case Pawn:
		fwd := p.Color.forward()
		return target.Rank == p.Square.Rank+fwd &&
			(target.File == p.Square.File-1 || target.File == p.Square.File+1)
	case Knight:
		return hitsOffset(p.Square, target, knightDirs)
	case King:
		return hitsOffset(p.Square, target, kingDirs)
	case Rook, Bishop, Queen:
		hit := false
		for _, dir := range slidingDirs(p.Type) {
			walkRay(board, p.Square, dir, func(sq Square, _ *Piece) bool {
				if sq == target {
					hit = true
					return false
				}
				return true
			})
			if hit {
				return true
			}
		}
	}
	return false
}

func hitsOffset(from, target Square, dirs []direction) bool {
	for _, dir := range dirs {
		if from.offset(dir.df, dir.dr) == target {
			return true
		}
	}
	return false
}

// InCheck reports whether color's king is attacked. A side without a king
// is never in check.
func InCheck(board Board, color Color) bool {
	kingSq, ok := board.KingSquare(color)
	if !ok {
		return false
	}
	return IsSquareAttacked(board, kingSq, color.Opposite())
}
