package controller

import (
	"log/slog"

	"github.com/benbeisheim/chesslink/internal/middleware"
	"github.com/benbeisheim/chesslink/internal/service"
	"github.com/benbeisheim/chesslink/internal/ws"
	"github.com/gofiber/websocket/v2"
)

type WebSocketController struct {
	relay  *service.Relay
	hub    *ws.Hub
	logger *slog.Logger
}

func NewWebSocketController(relay *service.Relay, hub *ws.Hub, logger *slog.Logger) *WebSocketController {
	return &WebSocketController{
		relay:  relay,
		hub:    hub,
		logger: logger,
	}
}

// HandleConnection registers a push listener and treats any text frame it
// sends as a command.
func (wsc *WebSocketController) HandleConnection(c *websocket.Conn) {
	listenerID, _ := c.Locals(middleware.ListenerIDKey).(string)

	if err := wsc.hub.Register(listenerID, c); err != nil {
		wsc.logger.Warn("rejected listener", "listener", listenerID, "error", err)
		return
	}
	defer wsc.hub.Unregister(listenerID, c)

	for {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				wsc.logger.Warn("listener read failed", "listener", listenerID, "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		cmd := ws.CommandFromFrame(message)
		if cmd == "" {
			wsc.logger.Debug("ignoring frame without command", "listener", listenerID)
			continue
		}
		wsc.relay.Handle(cmd)
	}
}
