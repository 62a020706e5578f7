package model

import "errors"

var (
	ErrNoSuchPiece     = errors.New("no such piece")
	ErrWrongColor      = errors.New("piece belongs to the other color")
	ErrSameColorTarget = errors.New("destination holds a piece of the same color")
	ErrIllegalMove     = errors.New("illegal move")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrGameOver        = errors.New("game is over")
	ErrInvalidSquare   = errors.New("square off the board")
)
