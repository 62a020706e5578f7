package service

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/benbeisheim/chesslink/internal/clock"
	"github.com/benbeisheim/chesslink/internal/command"
	"github.com/benbeisheim/chesslink/internal/model"
	"github.com/benbeisheim/chesslink/internal/store"
)

var ErrEmptyCommand = errors.New("empty command")

// Broadcaster pushes command strings to listeners.
type Broadcaster interface {
	Broadcast(text string) int
}

// SnapshotSaver persists the relay after every accepted command.
type SnapshotSaver interface {
	Save(model.Snapshot) error
}

// Relay owns the single authoritative game. Commands are processed one at a
// time under mu; the state is replaced wholesale after each accepted one.
type Relay struct {
	mu           sync.Mutex
	state        model.GameState
	lastCommand  string
	lastInvalid  string
	invalidCount int

	strict     bool
	historyCap int
	hub        Broadcaster
	saver      SnapshotSaver
	clock      clock.Clock
	logger     *slog.Logger
}

type Option func(*Relay)

// WithStrict makes the relay enforce turn order and legality instead of
// applying any well-formed command.
func WithStrict(strict bool) Option {
	return func(r *Relay) { r.strict = strict }
}

func WithHistoryCapacity(n int) Option {
	return func(r *Relay) { r.historyCap = n }
}

func WithSaver(s SnapshotSaver) Option {
	return func(r *Relay) { r.saver = s }
}

func WithClock(c clock.Clock) Option {
	return func(r *Relay) { r.clock = c }
}

func NewRelay(hub Broadcaster, logger *slog.Logger, opts ...Option) *Relay {
	r := &Relay{
		hub:        hub,
		historyCap: model.DefaultHistoryCapacity,
		clock:      clock.Real(),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.state = model.NewGameState(r.historyCap)
	return r
}

// HandleResult reports what one command did. Handled is false for anything
// rejected, with Err saying why.
type HandleResult struct {
	Command string
	Handled bool
	Err     error
	Record  *model.MoveRecord
	Status  model.StatusReport
}

// Handle processes one command and broadcasts it, accepted or not. raw is
// decoded and broadcast exactly as given, so padded text is an invalid
// command. Blank text is neither counted nor broadcast.
func (r *Relay) Handle(raw string) HandleResult {
	if strings.TrimSpace(raw) == "" {
		return HandleResult{Err: ErrEmptyCommand}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	result := r.apply(raw)
	if result.Handled {
		r.lastCommand = raw
		r.logger.Info("command applied", "cmd", raw, "turn", r.state.Turn, "status", result.Status.Status)
		r.persist()
	} else {
		r.invalidCount++
		r.lastInvalid = raw
		r.logger.Warn("command rejected", "cmd", raw, "error", result.Err, "invalid_count", r.invalidCount)
	}

	if r.hub != nil {
		r.hub.Broadcast(raw)
	}
	return result
}

func (r *Relay) apply(raw string) HandleResult {
	result := HandleResult{Command: raw}

	cmd, err := command.Decode(raw)
	if err != nil {
		result.Err = err
		return result
	}

	if cmd.Kind == command.KindReset {
		r.state = model.NewGameState(r.historyCap)
		result.Handled = true
		result.Status = model.Evaluate(r.state)
		return result
	}

	piece, err := command.Resolve(r.state, cmd)
	if err != nil {
		result.Err = err
		return result
	}

	apply := model.ApplyMove
	if r.strict {
		apply = model.ApplyLegalMove
	}
	next, moved, err := apply(r.state, piece.Square, cmd.To, raw, r.clock.Now())
	if err != nil {
		result.Err = err
		return result
	}

	r.state = next
	result.Handled = true
	result.Record = &moved.Record
	result.Status = moved.Status
	return result
}

func (r *Relay) persist() {
	if r.saver == nil {
		return
	}
	if err := r.saver.Save(r.snapshotLocked()); err != nil {
		r.logger.Error("failed to save relay state", "error", err)
	}
}

// Restore replaces the relay's game and counters with a saved snapshot.
func (r *Relay) Restore(snap model.Snapshot) error {
	state, err := model.StateFromSnapshot(snap)
	if err != nil {
		return fmt.Errorf("restoring relay: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
	r.lastCommand = snap.LastCommand
	r.lastInvalid = snap.LastInvalidCommand
	r.invalidCount = snap.InvalidCommandCount
	return nil
}

// Snapshot returns the relay's current game and counters with its digest.
func (r *Relay) Snapshot() model.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Relay) snapshotLocked() model.Snapshot {
	snap := r.state.Snapshot()
	snap.LastCommand = r.lastCommand
	snap.LastInvalidCommand = r.lastInvalid
	snap.InvalidCommandCount = r.invalidCount
	snap.Digest = store.Digest(snap)
	return snap
}

// State returns the current game. The value is never modified afterwards.
func (r *Relay) State() model.GameState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// ContextResponse is the body of GET /context.
type ContextResponse struct {
	Context string         `json:"context"`
	State   model.Snapshot `json:"state"`
}

func (r *Relay) Context() ContextResponse {
	snap := r.Snapshot()
	return ContextResponse{Context: Summarize(snap), State: snap}
}
