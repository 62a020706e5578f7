// Package command encodes and decodes the textual move-command grammar
// shared by the relay, clients and external agents:
//
//	move_<color>_<piece>_from_<square>_to_<square>
//	move_white_pawn_number_<1-8>_to_<square>
//	reset | reset_board
//
// The grammar is case-sensitive. Anything else decodes to ErrUnrecognized.
package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/benbeisheim/chesslink/internal/model"
)

var ErrUnrecognized = errors.New("unrecognized command")

type Kind int

const (
	KindMove Kind = iota + 1
	KindPawnNumber
	KindReset
)

func (k Kind) String() string {
	switch k {
	case KindMove:
		return "move"
	case KindPawnNumber:
		return "pawn-number"
	case KindReset:
		return "reset"
	}
	return "unknown"
}

// Command is a decoded command. Which fields are set depends on Kind:
// KindMove fills Color, Piece, From and To; KindPawnNumber fills Number and
// To (Color is white, Piece is pawn); KindReset fills nothing.
type Command struct {
	Kind   Kind
	Color  model.Color
	Piece  model.PieceType
	From   model.Square
	To     model.Square
	Number int
	Raw    string
}

func Encode(color model.Color, piece model.PieceType, from, to model.Square) string {
	return fmt.Sprintf("move_%s_%s_from_%s_to_%s", color, piece, from, to)
}

func EncodePawnNumber(n int, to model.Square) string {
	return fmt.Sprintf("move_white_pawn_number_%d_to_%s", n, to)
}

const Reset = "reset"

// Decode parses text. It never returns a partially filled command: either
// the whole string matches one variant or the error is ErrUnrecognized.
func Decode(text string) (Command, error) {
	if text == "reset" || text == "reset_board" {
		return Command{Kind: KindReset, Raw: text}, nil
	}

	parts := strings.Split(text, "_")
	if len(parts) != 7 || parts[0] != "move" || parts[5] != "to" {
		return Command{}, unrecognized(text)
	}
	to, err := model.ParseSquare(parts[6])
	if err != nil {
		return Command{}, unrecognized(text)
	}

	if parts[1] == "white" && parts[2] == "pawn" && parts[3] == "number" {
		n := parts[4]
		if len(n) != 1 || n[0] < '1' || n[0] > '8' {
			return Command{}, unrecognized(text)
		}
		return Command{
			Kind:   KindPawnNumber,
			Color:  model.White,
			Piece:  model.Pawn,
			Number: int(n[0] - '0'),
			To:     to,
			Raw:    text,
		}, nil
	}

	if parts[3] != "from" {
		return Command{}, unrecognized(text)
	}
	color, err := model.ParseColor(parts[1])
	if err != nil {
		return Command{}, unrecognized(text)
	}
	piece, err := model.ParsePieceType(parts[2])
	if err != nil {
		return Command{}, unrecognized(text)
	}
	from, err := model.ParseSquare(parts[4])
	if err != nil {
		return Command{}, unrecognized(text)
	}
	return Command{
		Kind:  KindMove,
		Color: color,
		Piece: piece,
		From:  from,
		To:    to,
		Raw:   text,
	}, nil
}

func unrecognized(text string) error {
	return fmt.Errorf("%w: %q", ErrUnrecognized, text)
}

// Resolve finds the piece a move command refers to in state. The piece on
// the source square must match the named color and type; a numbered pawn
// must still be alive and still a pawn.
func Resolve(state model.GameState, cmd Command) (model.Piece, error) {
	switch cmd.Kind {
	case KindPawnNumber:
		p, err := state.WhitePawns.Resolve(state.Board, cmd.Number)
		if err != nil {
			return model.Piece{}, fmt.Errorf("white pawn number %d: %w", cmd.Number, err)
		}
		return p, nil
	case KindMove:
		p, ok := state.Board.At(cmd.From)
		if !ok || p.Type != cmd.Piece {
			return model.Piece{}, fmt.Errorf("%s %s on %s: %w", cmd.Color, cmd.Piece, cmd.From, model.ErrNoSuchPiece)
		}
		if p.Color != cmd.Color {
			return model.Piece{}, fmt.Errorf("%s %s on %s: %w", cmd.Color, cmd.Piece, cmd.From, model.ErrWrongColor)
		}
		return p, nil
	}
	return model.Piece{}, fmt.Errorf("%s command names no piece", cmd.Kind)
}
