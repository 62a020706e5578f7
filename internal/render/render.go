// Package render draws game state for the terminal client.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/benbeisheim/chesslink/internal/model"
)

// Theme is the palette used by the board and status renderers. Colors are
// ANSI 256-color codes.
type Theme struct {
	LightSquare lipgloss.Color
	DarkSquare  lipgloss.Color
	WhitePiece  lipgloss.Color
	BlackPiece  lipgloss.Color

	// Background of the squares the last move left and reached.
	LastMove lipgloss.Color
	// Background of the selected square and its legal targets.
	Selected lipgloss.Color
	Target   lipgloss.Color

	FaintText lipgloss.Color
	Check     lipgloss.Color
	GameOver  lipgloss.Color
	Notice    lipgloss.Color
}

var DefaultTheme = Theme{
	LightSquare: lipgloss.Color("180"),
	DarkSquare:  lipgloss.Color("137"),
	WhitePiece:  lipgloss.Color("231"),
	BlackPiece:  lipgloss.Color("16"),

	LastMove: lipgloss.Color("143"),
	Selected: lipgloss.Color("75"),
	Target:   lipgloss.Color("108"),

	FaintText: lipgloss.Color("245"),
	Check:     lipgloss.Color("208"),
	GameOver:  lipgloss.Color("196"),
	Notice:    lipgloss.Color("220"),
}

type Options struct {
	Theme Theme

	// Flip draws the board from black's side.
	Flip bool

	// Selected, when set, highlights a square and every legal target of the
	// piece standing on it.
	Selected *model.Square
}

var glyphs = map[model.Color]map[model.PieceType]string{
	model.White: {
		model.King: "♔", model.Queen: "♕", model.Rook: "♖",
		model.Bishop: "♗", model.Knight: "♘", model.Pawn: "♙",
	},
	model.Black: {
		model.King: "♚", model.Queen: "♛", model.Rook: "♜",
		model.Bishop: "♝", model.Knight: "♞", model.Pawn: "♟",
	},
}

// Glyph returns the Unicode chess symbol for p.
func Glyph(p model.Piece) string {
	if g, ok := glyphs[p.Color][p.Type]; ok {
		return g
	}
	return "?"
}

// Board draws the position as eight labelled ranks followed by a file
// legend. Each square is three cells wide.
func Board(state model.GameState, opts Options) string {
	theme := opts.Theme
	if theme == (Theme{}) {
		theme = DefaultTheme
	}

	lastFrom, lastTo := model.Square{File: -1}, model.Square{File: -1}
	if last, ok := state.History.Last(); ok {
		lastFrom, lastTo = last.From, last.To
	}
	targets := map[model.Square]bool{}
	if opts.Selected != nil {
		for _, sq := range model.LegalMoves(state.Board, *opts.Selected) {
			targets[sq] = true
		}
	}

	label := lipgloss.NewStyle().Foreground(theme.FaintText)
	var b strings.Builder
	for row := 0; row < 8; row++ {
		rank := 7 - row
		if opts.Flip {
			rank = row
		}
		b.WriteString(label.Render(fmt.Sprintf("%d ", rank+1)))
		for col := 0; col < 8; col++ {
			file := col
			if opts.Flip {
				file = 7 - col
			}
			sq := model.Square{File: file, Rank: rank}

			background := theme.DarkSquare
			if (file+rank)%2 == 1 {
				background = theme.LightSquare
			}
			switch {
			case opts.Selected != nil && sq == *opts.Selected:
				background = theme.Selected
			case targets[sq]:
				background = theme.Target
			case sq == lastFrom || sq == lastTo:
				background = theme.LastMove
			}

			style := lipgloss.NewStyle().Background(background)
			text := " "
			if p, ok := state.Board.At(sq); ok {
				text = Glyph(p)
				if p.Color == model.White {
					style = style.Foreground(theme.WhitePiece)
				} else {
					style = style.Foreground(theme.BlackPiece)
				}
			}
			b.WriteString(style.Render(" " + text + " "))
		}
		b.WriteByte('\n')
	}

	b.WriteString("  ")
	for col := 0; col < 8; col++ {
		file := col
		if opts.Flip {
			file = 7 - col
		}
		b.WriteString(label.Render(fmt.Sprintf(" %c ", 'a'+file)))
	}
	return b.String()
}

// Status describes the side to move, check, and the result of a finished
// game in one line.
func Status(report model.StatusReport, theme Theme) string {
	if theme == (Theme{}) {
		theme = DefaultTheme
	}
	switch report.Status {
	case model.StatusCheckmate:
		text := "Checkmate"
		if report.Winner != nil {
			text = fmt.Sprintf("Checkmate, %s wins", *report.Winner)
		}
		return lipgloss.NewStyle().Bold(true).Foreground(theme.GameOver).Render(text)
	case model.StatusStalemate:
		return lipgloss.NewStyle().Bold(true).Foreground(theme.GameOver).Render("Stalemate")
	case model.StatusCheck:
		return lipgloss.NewStyle().Foreground(theme.Check).Render(fmt.Sprintf("%s to move, in check", capitalize(string(report.Turn))))
	}
	return fmt.Sprintf("%s to move", capitalize(string(report.Turn)))
}

// Moves lists up to n of the most recent history records, oldest first.
func Moves(history model.History, n int) []string {
	records := history.Records()
	if n > 0 && len(records) > n {
		records = records[len(records)-n:]
	}
	lines := make([]string, 0, len(records))
	for _, rec := range records {
		line := fmt.Sprintf("%s %s %s-%s", rec.Color, rec.Piece, rec.From, rec.To)
		if rec.Captured != nil {
			line += fmt.Sprintf(" x%s", rec.Captured.Type)
		}
		if rec.Promotion {
			line += " =queen"
		}
		lines = append(lines, line)
	}
	return lines
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
