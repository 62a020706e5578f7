// Package relayclient talks to a relay: commands go out over HTTP and the
// relay's push channel comes back over a websocket.
package relayclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/benbeisheim/chesslink/internal/clock"
	"github.com/benbeisheim/chesslink/internal/service"
	"github.com/fasthttp/websocket"
	"github.com/valyala/fasthttp"
)

type Options struct {
	RequestTimeout time.Duration
	ReconnectDelay time.Duration
	Clock          clock.Clock
}

type Client struct {
	baseURL string
	http    *fasthttp.Client
	dialer  *websocket.Dialer
	opts    Options
	logger  *slog.Logger
}

func New(baseURL string, opts Options, logger *slog.Logger) *Client {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Second
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 2 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &fasthttp.Client{
			Name:                     "chesslink-client",
			NoDefaultUserAgentHeader: true,
		},
		dialer: &websocket.Dialer{
			HandshakeTimeout: opts.RequestTimeout,
		},
		opts:   opts,
		logger: logger,
	}
}

type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("relay returned %d: %s", e.Code, e.Body)
}

// Submit posts one command and reports whether the relay applied it.
func (c *Client) Submit(ctx context.Context, cmd string) (bool, error) {
	body, err := json.Marshal(struct {
		Cmd string `json:"cmd"`
	}{cmd})
	if err != nil {
		return false, err
	}

	var out struct {
		OK      bool   `json:"ok"`
		Handled bool   `json:"handled"`
		Error   string `json:"error"`
	}
	if err := c.do(ctx, fasthttp.MethodPost, "/", body, &out); err != nil {
		return false, fmt.Errorf("submit %q: %w", cmd, err)
	}
	if !out.OK {
		return false, fmt.Errorf("submit %q: relay refused: %s", cmd, out.Error)
	}
	return out.Handled, nil
}

// FetchContext returns the relay's current summary and state.
func (c *Client) FetchContext(ctx context.Context) (service.ContextResponse, error) {
	var out service.ContextResponse
	if err := c.do(ctx, fasthttp.MethodGet, "/context", nil, &out); err != nil {
		return service.ContextResponse{}, fmt.Errorf("fetch context: %w", err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	deadline := c.opts.Clock.Now().Add(c.opts.RequestTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return err
	}

	// The relay answers a refused command with 400 and a JSON body.
	code := resp.StatusCode()
	if code != fasthttp.StatusOK && code != fasthttp.StatusBadRequest {
		return &StatusError{Code: code, Body: string(resp.Body())}
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("malformed response (%d): %w", code, err)
	}
	return nil
}

// PushURL is the websocket address of the relay's push channel.
func (c *Client) PushURL() string {
	url := c.baseURL
	switch {
	case strings.HasPrefix(url, "https://"):
		url = "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		url = "ws://" + strings.TrimPrefix(url, "http://")
	}
	return url + "/ws"
}

// Listen delivers every pushed frame to onFrame until ctx is cancelled,
// reconnecting after ReconnectDelay whenever the channel drops. onConnect,
// if set, runs after each successful (re)connection.
func (c *Client) Listen(ctx context.Context, onFrame func(string), onConnect func()) error {
	for {
		err := c.listenOnce(ctx, onFrame, onConnect)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("push channel lost, reconnecting", "error", err, "delay", c.opts.ReconnectDelay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.opts.Clock.After(c.opts.ReconnectDelay):
		}
	}
}

func (c *Client) listenOnce(ctx context.Context, onFrame func(string), onConnect func()) error {
	conn, _, err := c.dialer.DialContext(ctx, c.PushURL(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.PushURL(), err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c.logger.Info("push channel connected", "url", c.PushURL())
	if onConnect != nil {
		onConnect()
	}

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return errors.New("relay closed the push channel")
			}
			return err
		}
		if messageType == websocket.TextMessage {
			onFrame(string(data))
		}
	}
}
