// Package coordinator keeps a client's position in step with a relay.
//
// In authoritative mode the relay owns the game: local attempts are submitted
// and only show up after the relay has handled them and a fresh snapshot has
// been fetched. In simulation mode the client's own rules decide, moves are
// applied immediately, and the relay is merely told about them.
//
// Every network round trip runs on the spawner and completes by calling back
// into the coordinator under its mutex, carrying the (epoch, seq) token it was
// issued with. Completions from an older epoch, or older than the last
// applied refresh, are dropped.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbeisheim/chesslink/internal/clock"
	"github.com/benbeisheim/chesslink/internal/command"
	"github.com/benbeisheim/chesslink/internal/model"
	"github.com/benbeisheim/chesslink/internal/service"
	"github.com/benbeisheim/chesslink/internal/store"
)

var (
	ErrNotHumanTurn = errors.New("not the human side's turn")
	ErrClosed       = errors.New("coordinator closed")
)

type Mode string

const (
	Authoritative Mode = "authoritative"
	Simulation    Mode = "simulation"
)

func ParseMode(text string) (Mode, error) {
	switch Mode(text) {
	case Authoritative, Simulation:
		return Mode(text), nil
	}
	return "", fmt.Errorf("unknown mode %q", text)
}

// Relay is the part of relayclient.Client the coordinator needs.
type Relay interface {
	Submit(ctx context.Context, cmd string) (bool, error)
	FetchContext(ctx context.Context) (service.ContextResponse, error)
}

type Config struct {
	Mode            Mode
	Human           model.Color
	AutoplayDelay   time.Duration
	RequestTimeout  time.Duration
	HistoryCapacity int

	Clock clock.Clock
	// Spawn runs network work off the caller's goroutine; it is called with
	// the coordinator locked and must not run f before returning.
	// Defaults to go f().
	Spawn  func(f func())
	Rand   *rand.Rand
	Logger *slog.Logger
}

// Snapshot is what the UI renders. A published Snapshot is never modified.
type Snapshot struct {
	State   model.GameState
	Status  model.StatusReport
	Mode    Mode
	Players model.Players
	Epoch   uint64
	Digest  string

	// Context is the relay's text summary from the last refresh.
	Context string

	// Pending counts submitted commands the relay has not answered yet.
	Pending int

	// Notice is the most recent problem worth showing, or "".
	Notice string
}

type token struct {
	epoch uint64
	seq   uint64
}

type Coordinator struct {
	mu sync.Mutex

	state   model.GameState
	mode    Mode
	human   model.Color
	epoch   uint64
	seq     uint64
	applied uint64 // seq of the last applied refresh
	digest  string
	context string
	pending int
	notice  string
	closed  bool

	// lastOutbound is the most recent command this client sent. A push
	// equal to it is our own echo and is consumed once.
	lastOutbound string

	// gen counts state replacements. A timer armed at one generation is
	// void at any other.
	gen   uint64
	timer *clock.Timer
	// timerSeq numbers every arm, so a callback whose Stop came too late
	// can tell it was superseded even when gen did not move.
	timerSeq uint64

	published atomic.Pointer[Snapshot]
	updates   chan *Snapshot

	relay  Relay
	cfg    Config
	logger *slog.Logger
}

func New(relay Relay, cfg Config) *Coordinator {
	if cfg.Mode == "" {
		cfg.Mode = Authoritative
	}
	if !cfg.Human.Valid() {
		cfg.Human = model.White
	}
	if cfg.AutoplayDelay <= 0 {
		cfg.AutoplayDelay = 800 * time.Millisecond
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Spawn == nil {
		cfg.Spawn = func(f func()) { go f() }
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &Coordinator{
		state:   model.NewGameState(cfg.HistoryCapacity),
		mode:    cfg.Mode,
		human:   cfg.Human,
		updates: make(chan *Snapshot, 1),
		relay:   relay,
		cfg:     cfg,
		logger:  cfg.Logger,
	}
	c.publishLocked()
	return c
}

// Start kicks off the first refresh in authoritative mode, or the first
// autonomous move in simulation mode.
func (c *Coordinator) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == Authoritative {
		c.refreshLocked()
	}
	c.armTimerLocked()
}

// Close cancels the autonomous timer. Later completions are ignored.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.stopTimerLocked()
}

func (c *Coordinator) Snapshot() *Snapshot {
	return c.published.Load()
}

// Updates delivers the newest snapshot after each change. Only the latest
// unread one is kept.
func (c *Coordinator) Updates() <-chan *Snapshot {
	return c.updates
}

// Attempt tries to move the piece on from to to on behalf of the local user.
func (c *Coordinator) Attempt(from, to model.Square) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	piece, ok := c.state.Board.At(from)
	if !ok {
		return fmt.Errorf("%w on %s", model.ErrNoSuchPiece, from)
	}
	return c.attemptLocked(piece, to)
}

// Execute runs a typed command. Reset resets; moves go through Attempt's
// checks.
func (c *Coordinator) Execute(text string) error {
	cmd, err := command.Decode(text)
	if err != nil {
		return err
	}
	if cmd.Kind == command.KindReset {
		return c.Reset()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	piece, err := command.Resolve(c.state, cmd)
	if err != nil {
		return err
	}
	return c.attemptLocked(piece, cmd.To)
}

func (c *Coordinator) attemptLocked(piece model.Piece, to model.Square) error {
	if model.Evaluate(c.state).Status.Terminal() {
		return model.ErrGameOver
	}
	if piece.Color != c.state.Turn {
		return fmt.Errorf("%s %s on %s: %w", piece.Color, piece.Type, piece.Square, model.ErrNotYourTurn)
	}
	if c.mode == Simulation && piece.Color != c.human {
		return ErrNotHumanTurn
	}
	if !model.IsLegalMove(c.state.Board, piece.Square, to) {
		return fmt.Errorf("%s %s %s to %s: %w", piece.Color, piece.Type, piece.Square, to, model.ErrIllegalMove)
	}

	cmd := command.Encode(piece.Color, piece.Type, piece.Square, to)
	if c.mode == Authoritative {
		c.submitLocked(cmd)
		return nil
	}
	return c.applyLocalLocked(piece.Square, to, cmd)
}

// applyLocalLocked commits a simulation-mode move and tells the relay.
func (c *Coordinator) applyLocalLocked(from, to model.Square, cmd string) error {
	next, result, err := model.ApplyLegalMove(c.state, from, to, cmd, c.cfg.Clock.Now())
	if err != nil {
		return err
	}
	c.logger.Debug("applied move", "cmd", cmd, "status", result.Status.Status)
	c.replaceStateLocked(next)
	c.notifyLocked(cmd)
	return nil
}

// Reset starts a new game.
func (c *Coordinator) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	c.epoch++
	c.pending = 0
	c.stopTimerLocked()
	if c.mode == Authoritative {
		c.submitLocked(command.Reset)
		return nil
	}
	c.replaceStateLocked(model.NewGameState(c.cfg.HistoryCapacity))
	c.notifyLocked(command.Reset)
	return nil
}

// SetMode switches authority. In-flight responses from the old mode are
// discarded; simulation continues from the position on screen.
func (c *Coordinator) SetMode(mode Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || mode == c.mode {
		return
	}

	c.logger.Info("switching mode", "from", c.mode, "to", mode)
	c.mode = mode
	c.epoch++
	c.pending = 0
	c.lastOutbound = ""
	c.notice = ""
	c.stopTimerLocked()

	if mode == Authoritative {
		c.refreshLocked()
	}
	c.publishLocked()
	c.armTimerLocked()
}

// SetHuman changes which color the local user plays in simulation mode.
func (c *Coordinator) SetHuman(color model.Color) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !color.Valid() || color == c.human {
		return
	}
	c.human = color
	c.stopTimerLocked()
	c.publishLocked()
	c.armTimerLocked()
}

// OnPush handles one command string broadcast by the relay.
func (c *Coordinator) OnPush(frame string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	if c.mode == Authoritative {
		c.refreshLocked()
		return
	}

	if frame == c.lastOutbound {
		c.lastOutbound = ""
		return
	}

	cmd, err := command.Decode(frame)
	if err != nil {
		c.logger.Debug("ignoring push", "frame", frame)
		return
	}
	if cmd.Kind == command.KindReset {
		c.epoch++
		c.replaceStateLocked(model.NewGameState(c.cfg.HistoryCapacity))
		return
	}

	opponent := c.human.Opposite()
	if cmd.Color != opponent || c.state.Turn != opponent {
		c.logger.Debug("ignoring push out of turn", "frame", frame, "turn", c.state.Turn)
		return
	}
	piece, err := command.Resolve(c.state, cmd)
	if err != nil {
		c.logger.Debug("ignoring push", "frame", frame, "error", err)
		return
	}
	next, _, err := model.ApplyLegalMove(c.state, piece.Square, cmd.To, frame, c.cfg.Clock.Now())
	if err != nil {
		c.logger.Debug("ignoring illegal push", "frame", frame, "error", err)
		return
	}
	c.replaceStateLocked(next)
}

// OnConnected runs after the push channel (re)connects. Pushes may have
// been missed, so authoritative mode re-reads the relay.
func (c *Coordinator) OnConnected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.mode != Authoritative {
		return
	}
	c.refreshLocked()
}

// Refresh re-reads the relay's state in authoritative mode.
func (c *Coordinator) Refresh() {
	c.OnConnected()
}

func (c *Coordinator) nextTokenLocked() token {
	c.seq++
	return token{epoch: c.epoch, seq: c.seq}
}

func (c *Coordinator) submitLocked(cmd string) {
	tok := c.nextTokenLocked()
	c.pending++
	c.lastOutbound = cmd
	c.publishLocked()

	c.cfg.Spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RequestTimeout)
		defer cancel()
		handled, err := c.relay.Submit(ctx, cmd)
		c.submitDone(tok, cmd, handled, err)
	})
}

func (c *Coordinator) submitDone(tok token, cmd string, handled bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || tok.epoch != c.epoch {
		c.logger.Debug("dropping stale submit result", "cmd", cmd)
		return
	}

	c.pending--
	switch {
	case err != nil:
		c.logger.Warn("submit failed", "cmd", cmd, "error", err)
		c.notice = "relay unreachable: move not applied"
	case !handled:
		c.notice = "relay rejected " + cmd
	default:
		c.notice = ""
		c.refreshLocked()
	}
	c.publishLocked()
}

func (c *Coordinator) refreshLocked() {
	tok := c.nextTokenLocked()
	c.cfg.Spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RequestTimeout)
		defer cancel()
		resp, err := c.relay.FetchContext(ctx)
		c.refreshDone(tok, resp, err)
	})
}

// Notices owned by the refresh path; the next good fetch clears them.
const (
	noticeRefreshFailed  = "relay unreachable"
	noticeMalformedState = "relay sent a malformed state"
)

func (c *Coordinator) refreshDone(tok token, resp service.ContextResponse, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.mode != Authoritative || tok.epoch != c.epoch || tok.seq <= c.applied {
		c.logger.Debug("dropping stale refresh", "epoch", tok.epoch, "seq", tok.seq)
		return
	}
	if err != nil {
		c.logger.Warn("refresh failed", "error", err)
		c.notice = noticeRefreshFailed
		c.publishLocked()
		return
	}

	c.applied = tok.seq
	c.context = resp.Context
	if c.notice == noticeRefreshFailed || c.notice == noticeMalformedState {
		c.notice = ""
	}
	if resp.State.Digest != "" && resp.State.Digest == c.digest {
		c.publishLocked()
		return
	}
	state, err := model.StateFromSnapshot(resp.State)
	if err != nil {
		c.logger.Warn("malformed relay state", "error", err)
		c.notice = noticeMalformedState
		c.publishLocked()
		return
	}
	c.digest = resp.State.Digest
	c.replaceStateLocked(state)
}

// notifyLocked tells the relay about a locally committed simulation move.
// The outcome never rolls anything back.
func (c *Coordinator) notifyLocked(cmd string) {
	c.lastOutbound = cmd
	c.cfg.Spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RequestTimeout)
		defer cancel()
		if _, err := c.relay.Submit(ctx, cmd); err != nil {
			c.logger.Warn("relay notify failed", "cmd", cmd, "error", err)
		}
	})
}

func (c *Coordinator) replaceStateLocked(next model.GameState) {
	c.state = next
	c.gen++
	if c.mode == Simulation {
		c.digest = store.Digest(next.Snapshot())
	}
	c.stopTimerLocked()
	c.publishLocked()
	c.armTimerLocked()
}

// armTimerLocked schedules the autonomous side's move when it is due and
// none is pending.
func (c *Coordinator) armTimerLocked() {
	if c.closed || c.timer != nil || c.mode != Simulation {
		return
	}
	if c.state.Turn == c.human || model.Evaluate(c.state).Status.Terminal() {
		return
	}
	c.timerSeq++
	seq, gen := c.timerSeq, c.gen
	c.timer = c.cfg.Clock.AfterFunc(c.cfg.AutoplayDelay, func() { c.autoplay(seq, gen) })
}

func (c *Coordinator) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Coordinator) autoplay(seq, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timerSeq != seq || c.timer == nil {
		return
	}
	c.timer = nil
	if c.closed || c.mode != Simulation || gen != c.gen {
		return
	}

	color := c.human.Opposite()
	if c.state.Turn != color {
		return
	}
	pick, ok := model.PickMove(c.state.Board, color, c.cfg.Rand)
	if !ok {
		return
	}
	cmd := command.Encode(color, pick.Piece.Type, pick.Piece.Square, pick.To)
	if err := c.applyLocalLocked(pick.Piece.Square, pick.To, cmd); err != nil {
		c.logger.Error("autonomous move failed", "cmd", cmd, "error", err)
	}
}

// TimerPending reports whether an autonomous move is scheduled.
func (c *Coordinator) TimerPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

func (c *Coordinator) publishLocked() {
	snap := &Snapshot{
		State:   c.state,
		Status:  model.Evaluate(c.state),
		Mode:    c.mode,
		Players: c.players(),
		Epoch:   c.epoch,
		Digest:  c.digest,
		Context: c.context,
		Pending: c.pending,
		Notice:  c.notice,
	}
	c.published.Store(snap)

	select {
	case <-c.updates:
	default:
	}
	select {
	case c.updates <- snap:
	default:
	}
}

func (c *Coordinator) players() model.Players {
	if c.mode == Authoritative {
		return model.Players{White: model.Human, Black: model.Human}
	}
	return model.PlayersFor(c.human)
}
