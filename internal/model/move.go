package model

import (
	"encoding/json"
	"time"
)

type CapturedPiece struct {
	Type  PieceType `json:"type"`
	Color Color     `json:"color"`
}

// MoveRecord is one entry of the game history.
type MoveRecord struct {
	Color     Color          `json:"color"`
	Piece     PieceType      `json:"piece"`
	From      Square         `json:"from"`
	To        Square         `json:"to"`
	Captured  *CapturedPiece `json:"captured"`
	Promotion bool           `json:"promotion"`
	Timestamp time.Time      `json:"timestamp"`
	Command   string         `json:"command"`
}

// DefaultHistoryCapacity is used when a state is created with a
// non-positive capacity.
const DefaultHistoryCapacity = 64

// History is a fixed-capacity ring of move records. When full, appending
// evicts the oldest record. Like Board, a History owned by a GameState is
// treated as immutable; append works on a clone.
type History struct {
	buf   []MoveRecord
	start int
	n     int
}

func NewHistory(capacity int) History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return History{buf: make([]MoveRecord, capacity)}
}

func (h History) Cap() int {
	return len(h.buf)
}

func (h History) Len() int {
	return h.n
}

func (h History) Clone() History {
	clone := History{buf: make([]MoveRecord, len(h.buf)), start: h.start, n: h.n}
	copy(clone.buf, h.buf)
	return clone
}

// push appends in place; callers clone first.
func (h *History) push(rec MoveRecord) {
	if len(h.buf) == 0 {
		h.buf = make([]MoveRecord, DefaultHistoryCapacity)
	}
	if h.n < len(h.buf) {
		h.buf[(h.start+h.n)%len(h.buf)] = rec
		h.n++
		return
	}
	h.buf[h.start] = rec
	h.start = (h.start + 1) % len(h.buf)
}

// Records returns the history oldest first, newest last.
func (h History) Records() []MoveRecord {
	out := make([]MoveRecord, 0, h.n)
	for i := 0; i < h.n; i++ {
		out = append(out, h.buf[(h.start+i)%len(h.buf)])
	}
	return out
}

func (h History) Last() (MoveRecord, bool) {
	if h.n == 0 {
		return MoveRecord{}, false
	}
	return h.buf[(h.start+h.n-1)%len(h.buf)], true
}

func (h History) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Records())
}
