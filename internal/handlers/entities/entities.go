package entities

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"jellybridge/internal/bridge"
	"jellybridge/internal/registry"
)

// EntityView is the wire shape of one media-player entity: the generic
// media-player attributes plus the extension attributes from the session.
type EntityView struct {
	EntityKey         string                `json:"entity_key"`
	UserName          string                `json:"user_name"`
	Idle              bool                  `json:"idle"`
	LastSeenPollTick  int64                 `json:"last_seen_poll_tick"`
	PreviousSessionID string                `json:"previous_session_id,omitempty"`
	State             *bridge.PlaybackState `json:"state,omitempty"`
	Capabilities      []string              `json:"capabilities"`
}

func viewOf(rec bridge.EntityRecord) EntityView {
	v := EntityView{
		EntityKey:         rec.Key,
		UserName:          rec.UserName,
		Idle:              rec.Idle,
		LastSeenPollTick:  rec.LastSeenPollTick,
		PreviousSessionID: rec.PreviousSessionID,
		Capabilities:      rec.Current.Capabilities.Names(),
	}
	if rec.Current.SessionID != "" {
		st := rec.Current
		v.State = &st
	}
	return v
}

// List handles GET /entities.
func List(rec *bridge.Reconciler) fiber.Handler {
	return func(c fiber.Ctx) error {
		snapshot := rec.Snapshot()
		views := make([]EntityView, 0, len(snapshot))
		for _, r := range snapshot {
			views = append(views, viewOf(r))
		}
		return c.JSON(views)
	}
}

// Get handles GET /entities/:key, including the recent transition journal.
func Get(rec *bridge.Reconciler, store *registry.Store) fiber.Handler {
	return func(c fiber.Ctx) error {
		key := c.Params("key")
		record, ok := rec.Lookup(key)
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown entity"})
		}

		resp := fiber.Map{"entity": viewOf(record)}
		if store != nil {
			if history, err := store.RecentTransitions(key, 20); err == nil {
				resp["transitions"] = history
			}
		}
		return c.JSON(resp)
	}
}

type commandBody struct {
	PositionSeconds float64 `json:"position_seconds"`
	VolumePercent   int     `json:"volume_percent"`
	Muted           bool    `json:"muted"`
}

// Command handles POST /entities/:key/:command. Command-path errors come
// back as modeled JSON states, mapped onto HTTP codes; a stale-session
// dispatch still runs but carries a warning.
func Command(d *bridge.Dispatcher) fiber.Handler {
	return func(c fiber.Ctx) error {
		key := c.Params("key")
		cmd, ok := bridge.ParseCommand(c.Params("command"))
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown command"})
		}

		var body commandBody
		if len(c.Body()) > 0 {
			if err := c.Bind().JSON(&body); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON body"})
			}
		}

		warning, err := d.Dispatch(key, cmd, bridge.Args{
			SeekSeconds:   body.PositionSeconds,
			VolumePercent: body.VolumePercent,
			Mute:          body.Muted,
		})
		if err != nil {
			var cmdErr *bridge.CommandError
			if errors.As(err, &cmdErr) {
				return c.Status(statusFor(cmdErr.Code)).JSON(fiber.Map{
					"error": cmdErr.Error(),
					"code":  string(cmdErr.Code),
				})
			}
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
		}

		resp := fiber.Map{"success": true, "command": string(cmd)}
		if warning != nil {
			resp["warning"] = string(warning.Code)
		}
		return c.JSON(resp)
	}
}

func statusFor(code bridge.ErrorCode) int {
	switch code {
	case bridge.ErrUnknownEntity:
		return fiber.StatusNotFound
	case bridge.ErrNoActiveSession:
		return fiber.StatusConflict
	case bridge.ErrUnsupported:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusBadRequest
	}
}

// Messenger is the message-sending slice of the Jellyfin client.
type Messenger interface {
	SendMessage(sessionID, header, text string, timeoutMs int) error
}

type messageBody struct {
	Header    string `json:"header"`
	Text      string `json:"text"`
	TimeoutMs int    `json:"timeout_ms"`
}

// Message handles POST /entities/:key/message: a popup on the entity's
// current session's client.
func Message(rec *bridge.Reconciler, m Messenger) fiber.Handler {
	return func(c fiber.Ctx) error {
		key := c.Params("key")
		record, ok := rec.Lookup(key)
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown entity"})
		}
		if record.Idle {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "no active session", "code": string(bridge.ErrNoActiveSession)})
		}

		var body messageBody
		if err := c.Bind().JSON(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON body"})
		}
		if body.Text == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "text is required"})
		}

		if err := m.SendMessage(record.Current.SessionID, body.Header, body.Text, body.TimeoutMs); err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"success": true})
	}
}
