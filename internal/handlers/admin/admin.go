package admin

import (
	"github.com/gofiber/fiber/v3"

	"jellybridge/internal/jellyfin"
	"jellybridge/internal/logging"
)

// RescanLibrary handles POST /admin/library/rescan.
func RescanLibrary(client *jellyfin.Client) fiber.Handler {
	return func(c fiber.Ctx) error {
		if err := client.RescanLibrary(); err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
		}
		logging.Info("Library rescan triggered")
		return c.JSON(fiber.Map{"success": true})
	}
}

type broadcastBody struct {
	Header    string `json:"header"`
	Text      string `json:"text"`
	TimeoutMs int    `json:"timeout_ms"`
}

// Broadcast handles POST /admin/broadcast: sends a popup message to every
// session with active playback.
func Broadcast(client *jellyfin.Client) fiber.Handler {
	return func(c fiber.Ctx) error {
		var body broadcastBody
		if err := c.Bind().JSON(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON body"})
		}
		if body.Text == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "text is required"})
		}

		sessions, err := client.GetSessions()
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
		}

		sent := 0
		for _, s := range sessions {
			if s.NowPlayingItem == nil {
				continue
			}
			if err := client.SendMessage(s.ID, body.Header, body.Text, body.TimeoutMs); err != nil {
				logging.Warn("Broadcast to session failed", "session_id", s.ID, "error", err.Error())
				continue
			}
			sent++
		}

		logging.Info("Broadcast message sent", "sessions", sent)
		return c.JSON(fiber.Map{"success": true, "sent": sent})
	}
}
