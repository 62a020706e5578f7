package model

import (
	"fmt"
	"sort"
)

type PieceType string

const (
	King   PieceType = "king"
	Queen  PieceType = "queen"
	Rook   PieceType = "rook"
	Bishop PieceType = "bishop"
	Knight PieceType = "knight"
	Pawn   PieceType = "pawn"
)

// PieceTypes lists every piece type in a fixed order.
var PieceTypes = []PieceType{Pawn, Rook, Knight, Bishop, Queen, King}

func (p PieceType) Valid() bool {
	switch p {
	case King, Queen, Rook, Bishop, Knight, Pawn:
		return true
	}
	return false
}

// Letter returns the white (uppercase) placement letter for the type.
func (p PieceType) Letter() byte {
	switch p {
	case King:
		return 'K'
	case Queen:
		return 'Q'
	case Rook:
		return 'R'
	case Bishop:
		return 'B'
	case Knight:
		return 'N'
	case Pawn:
		return 'P'
	}
	return '?'
}

type Color string

const (
	White Color = "white"
	Black Color = "black"
)

func (c Color) Valid() bool {
	return c == White || c == Black
}

func (c Color) Opposite() Color {
	if c == White {
		return Black
	}
	return White
}

// forward is the rank direction pawns of this color advance in.
func (c Color) forward() int {
	if c == White {
		return 1
	}
	return -1
}

// pawnStartRank is the rank index pawns of this color begin on.
func (c Color) pawnStartRank() int {
	if c == White {
		return 1
	}
	return 6
}

// promotionRank is the opponent's back rank.
func (c Color) promotionRank() int {
	if c == White {
		return 7
	}
	return 0
}

// Square is a board coordinate; File 0-7 maps to a-h, Rank 0-7 to 1-8.
type Square struct {
	File int
	Rank int
}

func (s Square) Valid() bool {
	return s.File >= 0 && s.File < 8 && s.Rank >= 0 && s.Rank < 8
}

func (s Square) String() string {
	if !s.Valid() {
		return "??"
	}
	return fmt.Sprintf("%c%d", 'a'+s.File, s.Rank+1)
}

func (s Square) offset(df, dr int) Square {
	return Square{File: s.File + df, Rank: s.Rank + dr}
}

// ParseSquare converts algebraic notation such as "e4". Only lowercase
// files are accepted.
func ParseSquare(text string) (Square, error) {
	if len(text) != 2 {
		return Square{}, fmt.Errorf("invalid square %q", text)
	}
	sq := Square{File: int(text[0] - 'a'), Rank: int(text[1] - '1')}
	if text[0] < 'a' || text[0] > 'h' || text[1] < '1' || text[1] > '8' {
		return Square{}, fmt.Errorf("invalid square %q", text)
	}
	return sq, nil
}

// MustSquare is ParseSquare for literals known to be valid.
func MustSquare(text string) Square {
	sq, err := ParseSquare(text)
	if err != nil {
		panic(err)
	}
	return sq
}

func (s Square) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid square %d,%d", s.File, s.Rank)
	}
	return []byte(s.String()), nil
}

func (s *Square) UnmarshalText(text []byte) error {
	sq, err := ParseSquare(string(text))
	if err != nil {
		return err
	}
	*s = sq
	return nil
}

// index orders squares a1, b1 ... h8.
func (s Square) index() int {
	return s.Rank*8 + s.File
}

type Piece struct {
	ID     string    `json:"id"`
	Type   PieceType `json:"piece"`
	Color  Color     `json:"color"`
	Square Square    `json:"square"`
}

// Board maps squares to at most one piece. The zero value is an empty board.
// Boards handed out by a GameState are never modified; use Clone first.
type Board struct {
	cells map[Square]Piece
}

func NewBoard() Board {
	return Board{cells: make(map[Square]Piece, 32)}
}

func (b Board) Clone() Board {
	clone := Board{cells: make(map[Square]Piece, len(b.cells))}
	for sq, p := range b.cells {
		clone.cells[sq] = p
	}
	return clone
}

func (b Board) At(sq Square) (Piece, bool) {
	p, ok := b.cells[sq]
	return p, ok
}

func (b Board) Len() int {
	return len(b.cells)
}

// Put places p on its own square, replacing any occupant.
func (b *Board) Put(p Piece) {
	if b.cells == nil {
		b.cells = make(map[Square]Piece, 32)
	}
	b.cells[p.Square] = p
}

func (b *Board) Remove(sq Square) {
	delete(b.cells, sq)
}

// relocate moves whatever stands on from onto to, dropping any occupant of to.
func (b *Board) relocate(from, to Square) {
	p, ok := b.cells[from]
	if !ok {
		return
	}
	delete(b.cells, from)
	p.Square = to
	b.cells[to] = p
}

// Pieces returns every piece ordered a1, b1 ... h8.
func (b Board) Pieces() []Piece {
	pieces := make([]Piece, 0, len(b.cells))
	for _, p := range b.cells {
		pieces = append(pieces, p)
	}
	sort.Slice(pieces, func(i, j int) bool {
		return pieces[i].Square.index() < pieces[j].Square.index()
	})
	return pieces
}

func (b Board) PiecesOf(color Color) []Piece {
	var out []Piece
	for _, p := range b.Pieces() {
		if p.Color == color {
			out = append(out, p)
		}
	}
	return out
}

func (b Board) Find(id string) (Piece, bool) {
	for _, p := range b.cells {
		if p.ID == id {
			return p, true
		}
	}
	return Piece{}, false
}

func (b Board) KingSquare(color Color) (Square, bool) {
	for sq, p := range b.cells {
		if p.Type == King && p.Color == color {
			return sq, true
		}
	}
	return Square{}, false
}

func (b Board) Count(color Color) int {
	n := 0
	for _, p := range b.cells {
		if p.Color == color {
			n++
		}
	}
	return n
}

var backRank = []PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// newStartingBoard sets up the standard position, drawing piece ids from newID.
func newStartingBoard(newID func() string) Board {
	board := NewBoard()
	for file := 0; file < 8; file++ {
		board.Put(Piece{ID: newID(), Type: backRank[file], Color: White, Square: Square{File: file, Rank: 0}})
		board.Put(Piece{ID: newID(), Type: Pawn, Color: White, Square: Square{File: file, Rank: 1}})
		board.Put(Piece{ID: newID(), Type: Pawn, Color: Black, Square: Square{File: file, Rank: 6}})
		board.Put(Piece{ID: newID(), Type: backRank[file], Color: Black, Square: Square{File: file, Rank: 7}})
	}
	return board
}
