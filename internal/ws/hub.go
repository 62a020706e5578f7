package ws

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gofiber/websocket/v2"
)

var ErrDuplicateListener = errors.New("listener already connected")

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Hub fans command strings out to every connected push listener.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]Conn // listenerID -> connection

	// Connections allow one concurrent writer.
	writeMu sync.Mutex

	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		conns:  make(map[string]Conn),
		logger: logger,
	}
}

// Register adds conn under id. If id already has a live connection the new
// one is closed and ErrDuplicateListener returned.
func (h *Hub) Register(id string, conn Conn) error {
	h.mu.Lock()
	if _, exists := h.conns[id]; exists {
		h.mu.Unlock()
		h.writeMu.Lock()
		conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "listener already connected"),
		)
		h.writeMu.Unlock()
		conn.Close()
		return fmt.Errorf("%s: %w", id, ErrDuplicateListener)
	}
	h.conns[id] = conn
	count := len(h.conns)
	h.mu.Unlock()

	h.logger.Info("listener connected", "listener", id, "listeners", count)
	return nil
}

// Unregister removes id only if it still maps to conn, so a stale handler
// cannot evict a newer connection.
func (h *Hub) Unregister(id string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if current, ok := h.conns[id]; ok && current == conn {
		delete(h.conns, id)
		h.logger.Info("listener disconnected", "listener", id, "listeners", len(h.conns))
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast sends text to every listener and returns how many received it.
// Listeners whose write fails are dropped.
func (h *Hub) Broadcast(text string) int {
	h.mu.RLock()
	active := make(map[string]Conn, len(h.conns))
	for id, conn := range h.conns {
		active[id] = conn
	}
	h.mu.RUnlock()

	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	delivered := 0
	for id, conn := range active {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
			h.logger.Warn("push failed, dropping listener", "listener", id, "error", err)
			h.Unregister(id, conn)
			conn.Close()
			continue
		}
		delivered++
	}
	return delivered
}

// CloseAll disconnects every listener.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[string]Conn)
	h.mu.Unlock()

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	for _, conn := range conns {
		conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "relay shutting down"),
		)
		conn.Close()
	}
}
