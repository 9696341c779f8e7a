// Package sensorsapi serves the library/server/session sensors over HTTP.
package sensorsapi

import (
	"github.com/gofiber/fiber/v3"

	"jellybridge/internal/bridge"
	"jellybridge/internal/jellyfin"
	"jellybridge/internal/logging"
	"jellybridge/internal/sensors"
)

type libraryResponse struct {
	sensors.LibraryCounts
	Latest sensors.LatestMedia `json:"latest"`
}

// Library handles GET /sensors/library: the counts plus the recently-added
// lists per type. Counts failing is an error; a missing latest list degrades
// to empty, the way the original sensors did.
func Library(client *jellyfin.Client) fiber.Handler {
	return func(c fiber.Ctx) error {
		counts, err := client.GetItemCounts()
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
		}

		resp := libraryResponse{LibraryCounts: sensors.LibraryFromCounts(counts)}
		resp.Latest.Movies = latestOf(client, "Movie")
		resp.Latest.Episodes = latestOf(client, "Episode")
		resp.Latest.Music = latestOf(client, "Audio")
		return c.JSON(resp)
	}
}

func latestOf(client *jellyfin.Client, itemType string) []sensors.MediaItem {
	items, err := client.GetLatestMedia(itemType, 30)
	if err != nil {
		logging.Warn("Latest media fetch failed", "item_type", itemType, "error", err.Error())
		return []sensors.MediaItem{}
	}
	return sensors.MediaItemsFromItems(items, client.ImageURL, client.BackdropURL)
}

// Upcoming handles GET /sensors/upcoming: episodes the server expects to
// air soon.
func Upcoming(client *jellyfin.Client) fiber.Handler {
	return func(c fiber.Ctx) error {
		items, err := client.GetUpcomingEpisodes(50)
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
		}
		upcoming := sensors.MediaItemsFromItems(items, client.ImageURL, client.BackdropURL)
		return c.JSON(fiber.Map{"count": len(upcoming), "upcoming": upcoming})
	}
}

// Server handles GET /sensors/server. The coordinator's verdict is
// authoritative; system info is best-effort decoration.
func Server(client *jellyfin.Client, coord *bridge.Coordinator) fiber.Handler {
	return func(c fiber.Ctx) error {
		status := coord.Status()
		var info *jellyfin.SystemInfo
		if status == bridge.StatusOnline {
			info, _ = client.GetSystemInfo()
		}
		return c.JSON(sensors.ServerFromInfo(status, info))
	}
}

// Sessions handles GET /sensors/sessions.
func Sessions(client *jellyfin.Client) fiber.Handler {
	return func(c fiber.Ctx) error {
		list, err := client.GetSessions()
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"active_sessions": sensors.ActiveSessionCount(list)})
	}
}
