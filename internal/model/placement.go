package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Placement encodes the piece layout field of FEN: ranks 8 to 1, files a
// to h, uppercase for white. Side to move and the remaining FEN fields are
// not part of it.
func Placement(board Board) string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			p, ok := board.At(Square{File: file, Rank: rank})
			if !ok {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			letter := p.Type.Letter()
			if p.Color == Black {
				letter += 'a' - 'A'
			}
			sb.WriteByte(letter)
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}

var letterTypes = map[byte]PieceType{
	'k': King, 'q': Queen, 'r': Rook, 'b': Bishop, 'n': Knight, 'p': Pawn,
}

// ParsePlacement builds a board from a placement string, giving each piece
// a fresh id.
func ParsePlacement(text string) (Board, error) {
	ranks := strings.Split(text, "/")
	if len(ranks) != 8 {
		return Board{}, fmt.Errorf("placement %q: want 8 ranks, got %d", text, len(ranks))
	}
	board := NewBoard()
	for i, row := range ranks {
		rank := 7 - i
		file := 0
		for j := 0; j < len(row); j++ {
			c := row[j]
			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}
			color := White
			lower := c
			if c >= 'a' && c <= 'z' {
				color = Black
			} else {
				lower = c + ('a' - 'A')
			}
			pt, ok := letterTypes[lower]
			if !ok {
				return Board{}, fmt.Errorf("placement %q: unknown piece %q", text, c)
			}
			if file > 7 {
				return Board{}, fmt.Errorf("placement %q: rank %d overflows", text, rank+1)
			}
			board.Put(Piece{ID: uuid.NewString(), Type: pt, Color: color, Square: Square{File: file, Rank: rank}})
			file++
		}
		if file != 8 {
			return Board{}, fmt.Errorf("placement %q: rank %d has %d files", text, rank+1, file)
		}
	}
	return board, nil
}

// StateFromPlacement builds a game state around a placement string, with
// the given side to move. The pawn index covers white pawns still on their
// starting rank.
func StateFromPlacement(text string, turn Color, historyCapacity int) (GameState, error) {
	board, err := ParsePlacement(text)
	if err != nil {
		return GameState{}, err
	}
	return GameState{
		Board:      board,
		Turn:       turn,
		History:    NewHistory(historyCapacity),
		WhitePawns: buildPawnIndex(board, White),
	}, nil
}
