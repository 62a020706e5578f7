package model

import "fmt"

// Controller says who moves a color on a client.
type Controller string

const (
	Human      Controller = "human"
	Autonomous Controller = "autonomous"
)

type Players struct {
	White Controller `json:"white" yaml:"white"`
	Black Controller `json:"black" yaml:"black"`
}

// PlayersFor seats a human on one color and the move picker on the other.
func PlayersFor(human Color) Players {
	if human == Black {
		return Players{White: Autonomous, Black: Human}
	}
	return Players{White: Human, Black: Autonomous}
}

func (p Players) Of(c Color) Controller {
	if c == Black {
		return p.Black
	}
	return p.White
}

func ParseColor(text string) (Color, error) {
	c := Color(text)
	if !c.Valid() {
		return "", fmt.Errorf("invalid color %q", text)
	}
	return c, nil
}

func ParsePieceType(text string) (PieceType, error) {
	pt := PieceType(text)
	if !pt.Valid() {
		return "", fmt.Errorf("invalid piece %q", text)
	}
	return pt, nil
}
