package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/benbeisheim/chesslink/internal/model"
)

var pluralNames = map[model.PieceType]string{
	model.Pawn:   "pawns",
	model.Knight: "knights",
	model.Bishop: "bishops",
	model.Rook:   "rooks",
	model.Queen:  "queens",
	model.King:   "kings",
}

// Summarize renders snap as the multi-line text agents read from
// GET /context.
func Summarize(snap model.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Turn: %s\n", snap.Turn)
	fmt.Fprintf(&b, "Status: %s", snap.Status)
	if snap.Winner != nil {
		fmt.Fprintf(&b, " (%s wins)", *snap.Winner)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Placement: %s\n", snap.FEN)
	if snap.LastMove != nil {
		fmt.Fprintf(&b, "Last move: %s\n", describeMove(*snap.LastMove))
	} else {
		b.WriteString("Last move: none\n")
	}
	fmt.Fprintf(&b, "Material: %d white, %d black\n", snap.Counts.White, snap.Counts.Black)
	if snap.InvalidCommandCount > 0 {
		fmt.Fprintf(&b, "Invalid commands: %d (last %q)\n", snap.InvalidCommandCount, snap.LastInvalidCommand)
	}
	b.WriteString(DescribePieces(snap.Pieces))
	return strings.TrimRight(b.String(), "\n")
}

func describeMove(rec model.MoveRecord) string {
	text := fmt.Sprintf("%s %s %s to %s", rec.Color, rec.Piece, rec.From, rec.To)
	if rec.Captured != nil {
		text += fmt.Sprintf(" capturing %s %s", rec.Captured.Color, rec.Captured.Type)
	}
	if rec.Promotion {
		text += ", promoted to queen"
	}
	return text
}

// DescribePieces lists where each piece stands, one line per color:
//
//	White pieces: bishops on c1 and f1; king on e1; ...
//
// Colors and piece types are alphabetical, squares ordered a1 to h8.
func DescribePieces(pieces []model.Piece) string {
	var lines []string
	for _, color := range []model.Color{model.Black, model.White} {
		grouped := map[model.PieceType][]model.Square{}
		for _, p := range pieces {
			if p.Color == color {
				grouped[p.Type] = append(grouped[p.Type], p.Square)
			}
		}
		if len(grouped) == 0 {
			continue
		}

		types := make([]string, 0, len(grouped))
		for pt := range grouped {
			types = append(types, string(pt))
		}
		sort.Strings(types)

		parts := make([]string, 0, len(types))
		for _, name := range types {
			squares := grouped[model.PieceType(name)]
			sort.Slice(squares, func(i, j int) bool {
				if squares[i].Rank != squares[j].Rank {
					return squares[i].Rank < squares[j].Rank
				}
				return squares[i].File < squares[j].File
			})
			label := name
			if len(squares) > 1 {
				label = pluralNames[model.PieceType(name)]
			}
			parts = append(parts, fmt.Sprintf("%s on %s", label, joinSquares(squares)))
		}
		title := strings.ToUpper(string(color[:1])) + string(color[1:])
		lines = append(lines, fmt.Sprintf("%s pieces: %s", title, strings.Join(parts, "; ")))
	}
	return strings.Join(lines, "\n")
}

func joinSquares(squares []model.Square) string {
	names := make([]string, len(squares))
	for i, sq := range squares {
		names[i] = sq.String()
	}
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	}
	return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
}
