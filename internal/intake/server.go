// Package intake accepts commands over plain TCP, one per line, for agents
// that cannot speak HTTP. Each line gets one {"ack": bool} line back.
package intake

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/benbeisheim/chesslink/internal/command"
	"github.com/benbeisheim/chesslink/internal/model"
	"github.com/benbeisheim/chesslink/internal/service"
)

// Handler is satisfied by *service.Relay.
type Handler interface {
	Handle(raw string) service.HandleResult
}

// idleTimeout closes connections that send nothing for this long.
const idleTimeout = 5 * time.Minute

const maxLineSize = 64 * 1024

type Server struct {
	handler Handler
	logger  *slog.Logger

	activeConnections sync.WaitGroup
}

func NewServer(handler Handler, logger *slog.Logger) *Server {
	return &Server{handler: handler, logger: logger}
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is cancelled, then waits
// for open connections to finish.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	defer listener.Close()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("command intake listening", "addr", listener.Addr().String())

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.activeConnections.Wait()
	return nil
}

type ack struct {
	Ack   bool   `json:"ack"`
	Error string `json:"error,omitempty"`
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	remote := conn.RemoteAddr().String()
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), maxLineSize)
	encoder := json.NewEncoder(conn)

	for {
		conn.SetReadDeadline(time.Now().Add(idleTimeout))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		reply := ack{}
		raw, err := ParseLine(line)
		if err != nil {
			reply.Error = err.Error()
		} else {
			res := s.handler.Handle(raw)
			reply.Ack = res.Handled
			if res.Err != nil {
				reply.Error = res.Err.Error()
			}
		}
		s.logger.Debug("intake command", "remote", remote, "line", line, "ack", reply.Ack)

		if err := encoder.Encode(reply); err != nil {
			s.logger.Warn("intake write failed", "remote", remote, "error", err)
			return
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		s.logger.Warn("intake read failed", "remote", remote, "error", err)
	}
}

// Request is the JSON form of an intake line. Vars, when complete, take
// precedence over Command.
type Request struct {
	Command string `json:"command"`
	Vars    struct {
		Color     string `json:"color"`
		Piece     string `json:"piece"`
		Location1 string `json:"location1"`
		Location2 string `json:"location2"`
	} `json:"vars"`
}

// ParseLine turns one intake line into command text. Lines not starting
// with '{' are taken as command text verbatim.
func ParseLine(line string) (string, error) {
	if !strings.HasPrefix(line, "{") {
		return line, nil
	}

	var req Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		return "", fmt.Errorf("invalid request: %w", err)
	}

	v := req.Vars
	if v.Color != "" && v.Piece != "" && v.Location1 != "" && v.Location2 != "" {
		color, err := model.ParseColor(strings.ToLower(v.Color))
		if err != nil {
			return "", err
		}
		piece, err := model.ParsePieceType(strings.ToLower(v.Piece))
		if err != nil {
			return "", err
		}
		from, err := model.ParseSquare(strings.ToLower(v.Location1))
		if err != nil {
			return "", err
		}
		to, err := model.ParseSquare(strings.ToLower(v.Location2))
		if err != nil {
			return "", err
		}
		return command.Encode(color, piece, from, to), nil
	}

	if req.Command == "" {
		return "", errors.New("request has neither command nor vars")
	}
	return req.Command, nil
}
