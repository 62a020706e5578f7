package controller

import (
	"github.com/benbeisheim/chesslink/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Register mounts the relay surface on app.
func Register(app *fiber.App, rc *RelayController, wsc *WebSocketController) {
	app.Post("/", rc.Submit)
	app.Get("/context", rc.Context)
	app.Get("/healthz", rc.Health)

	app.Use("/ws", middleware.EnsureListenerID(), middleware.WebSocketUpgrade())
	app.Get("/ws", websocket.New(wsc.HandleConnection, websocket.Config{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}))
}
