package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"

	"jellybridge/internal/bridge"
	"jellybridge/internal/config"
	"jellybridge/internal/db"
	adminh "jellybridge/internal/handlers/admin"
	entitiesh "jellybridge/internal/handlers/entities"
	eventsh "jellybridge/internal/handlers/events"
	healthh "jellybridge/internal/handlers/health"
	sensorsh "jellybridge/internal/handlers/sensorsapi"
	"jellybridge/internal/jellyfin"
	"jellybridge/internal/logging"
	"jellybridge/internal/registry"
)

func main() {
	_ = godotenv.Load()

	logging.SetDefault(logging.NewLogger(&logging.Config{
		Level:  logging.LevelInfo,
		Format: os.Getenv("LOG_FORMAT"),
	}))

	// ---- Config & Client ----
	cfg := config.Load()
	client := jellyfin.New(cfg.BaseURL(), cfg.JellyfinAPIKey, time.Duration(cfg.PollTimeoutSec)*time.Second)
	client.ImgMaxWidth = cfg.ImgPrimaryMaxWidth

	// Connection test, non-fatal: polling recovers once the server is up.
	if info, err := client.GetSystemInfo(); err != nil {
		logging.Warn("Jellyfin not reachable at startup", "error", err.Error())
	} else {
		logging.Info("Connected to Jellyfin", "server_name", info.ServerName, "version", info.Version)
	}

	// ---- Database & Migrations ----
	sqlDB, err := db.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func(dbh *sql.DB) { _ = dbh.Close() }(sqlDB)

	if err := db.MigrateUp("sqlite://" + cfg.SQLitePath); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// ---- Core: reconciler, dispatcher, coordinator ----
	rec := bridge.NewReconciler()
	store := registry.New(sqlDB)

	// Entity identities outlive both sessions and restarts.
	if known, err := store.KnownEntities(); err != nil {
		logging.Warn("Could not preload entity registry", "error", err.Error())
	} else {
		for _, e := range known {
			rec.Preseed(e.Key, e.UserName)
		}
		logging.Info("Preloaded entity registry", "entities", len(known))
	}

	norm := bridge.Normalizer{ImageURL: client.ImageURL}
	dispatcher := bridge.NewDispatcher(rec, client)

	coordinator := bridge.NewCoordinator(
		client, norm, rec,
		time.Duration(cfg.PollIntervalSec)*time.Second,
		cfg.BackoffThreshold,
		time.Duration(cfg.BackoffMaxSec)*time.Second,
	)

	hub := eventsh.NewHub()
	hub.Snapshot = func() []bridge.Update {
		snapshot := rec.Snapshot()
		tick := rec.Tick()
		updates := make([]bridge.Update, 0, len(snapshot))
		for _, r := range snapshot {
			updates = append(updates, bridge.Update{
				Key: r.Key, UserName: r.UserName, Idle: r.Idle, State: r.Current, PollTick: tick,
			})
		}
		return updates
	}

	coordinator.AddSink(store)
	coordinator.AddSink(hub)
	coordinator.Start()
	defer coordinator.Stop()

	// ---- Jellyfin push socket: nudges the poll loop on session activity ----
	if cfg.SocketEnabled {
		socket := &jellyfin.WS{
			Cfg: jellyfin.WSConfig{BaseURL: cfg.BaseURL(), APIKey: cfg.JellyfinAPIKey},
		}
		socket.Handler = func(evt jellyfin.Event) {
			switch evt.MessageType {
			case "Sessions", "PlaybackStart", "PlaybackStopped", "PlaybackProgress":
				coordinator.Nudge()
			}
		}
		socket.Start(context.Background())
		defer socket.Stop()
	}

	// ---- Fiber App ----
	app := fiber.New(fiber.Config{
		EnableIPValidation: true,
		ProxyHeader:        fiber.HeaderXForwardedFor,
	})
	app.Use(recover.New())
	app.Use(logging.FiberMiddleware(logging.Default()))

	// ---- Health ----
	app.Get("/health", healthh.Health(sqlDB, coordinator))
	app.Get("/health/jellyfin", healthh.Jellyfin(client))

	// ---- Entities ----
	app.Get("/entities", entitiesh.List(rec))
	app.Get("/entities/:key", entitiesh.Get(rec, store))
	app.Post("/entities/:key/message", entitiesh.Message(rec, client))
	app.Post("/entities/:key/:command", entitiesh.Command(dispatcher))

	// ---- Sensors ----
	app.Get("/sensors/library", sensorsh.Library(client))
	app.Get("/sensors/upcoming", sensorsh.Upcoming(client))
	app.Get("/sensors/server", sensorsh.Server(client, coordinator))
	app.Get("/sensors/sessions", sensorsh.Sessions(client))

	// ---- Events (websocket) ----
	app.Get("/events/ws", eventsh.Upgrade, eventsh.WS(hub))
	defer hub.Close()

	// ---- Admin ----
	app.Post("/admin/library/rescan", adminh.RescanLibrary(client))
	app.Post("/admin/broadcast", adminh.Broadcast(client))

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logging.Info("Shutting down")
	_ = app.Shutdown()
}
