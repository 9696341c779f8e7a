package health

import (
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v3"

	"jellybridge/internal/bridge"
	"jellybridge/internal/jellyfin"
	"jellybridge/internal/version"
)

type Status struct {
	OK        bool           `json:"ok"`
	Timestamp string         `json:"timestamp"`
	Server    string         `json:"server_status"`
	Database  DatabaseHealth `json:"database"`
	Version   version.Info   `json:"version"`
}

type DatabaseHealth struct {
	OK             bool   `json:"ok"`
	Error          string `json:"error,omitempty"`
	OpenConns      int    `json:"open_connections"`
	ConnectionTime string `json:"connection_time"`
}

// Health handles GET /health.
func Health(db *sql.DB, coord *bridge.Coordinator) fiber.Handler {
	return func(c fiber.Ctx) error {
		status := Status{
			OK:        true,
			Timestamp: time.Now().Format(time.RFC3339),
			Server:    string(coord.Status()),
			Version:   version.Get(),
		}

		start := time.Now()
		err := db.Ping()
		status.Database.ConnectionTime = time.Since(start).String()
		status.Database.OpenConns = db.Stats().OpenConnections
		if err != nil {
			status.OK = false
			status.Database.Error = err.Error()
		} else {
			status.Database.OK = true
		}

		code := fiber.StatusOK
		if !status.OK {
			code = fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(status)
	}
}

// Jellyfin handles GET /health/jellyfin: a live round-trip to the server.
func Jellyfin(client *jellyfin.Client) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		info, err := client.GetSystemInfo()
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"ok":    false,
				"error": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"ok":               true,
			"server_name":      info.ServerName,
			"version":          info.Version,
			"response_time_ms": time.Since(start).Milliseconds(),
		})
	}
}
