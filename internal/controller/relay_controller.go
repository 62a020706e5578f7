package controller

import (
	"strings"

	"github.com/benbeisheim/chesslink/internal/service"
	"github.com/gofiber/fiber/v2"
)

type RelayController struct {
	relay *service.Relay
}

func NewRelayController(relay *service.Relay) *RelayController {
	return &RelayController{relay: relay}
}

type SubmitRequest struct {
	Cmd string `json:"cmd"`
}

type SubmitResponse struct {
	OK      bool   `json:"ok"`
	Handled bool   `json:"handled"`
	Error   string `json:"error,omitempty"`
}

// Submit handles POST /. A body without a command is refused before it
// reaches the relay.
func (rc *RelayController) Submit(c *fiber.Ctx) error {
	var req SubmitRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Cmd) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(SubmitResponse{
			OK:    false,
			Error: "body must be {\"cmd\": <command>}",
		})
	}

	res := rc.relay.Handle(req.Cmd)
	resp := SubmitResponse{OK: true, Handled: res.Handled}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	return c.JSON(resp)
}

func (rc *RelayController) Context(c *fiber.Ctx) error {
	return c.JSON(rc.relay.Context())
}

func (rc *RelayController) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
