package model

type Status string

const (
	StatusNormal    Status = "normal"
	StatusCheck     Status = "check"
	StatusCheckmate Status = "checkmate"
	StatusStalemate Status = "stalemate"
)

// Terminal reports whether no further moves may be accepted.
func (s Status) Terminal() bool {
	return s == StatusCheckmate || s == StatusStalemate
}

type StatusReport struct {
	Status  Status `json:"status"`
	Turn    Color  `json:"turn"`
	InCheck bool   `json:"inCheck"`
	// Winner is set on checkmate only.
	Winner *Color `json:"winner"`
}

// Evaluate derives the status of the side to move. It is never stored.
func Evaluate(state GameState) StatusReport {
	side := state.Turn
	report := StatusReport{Status: StatusNormal, Turn: side}
	report.InCheck = InCheck(state.Board, side)
	if report.InCheck {
		report.Status = StatusCheck
	}
	if hasLegalMove(state.Board, side) {
		return report
	}
	if report.InCheck {
		report.Status = StatusCheckmate
		winner := side.Opposite()
		report.Winner = &winner
	} else {
		report.Status = StatusStalemate
	}
	return report
}

func hasLegalMove(board Board, color Color) bool {
	for _, p := range board.PiecesOf(color) {
		if len(LegalMoves(board, p.Square)) > 0 {
			return true
		}
	}
	return false
}
