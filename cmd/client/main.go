package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/armahc19/watchparty-frontend/internal/config"
	"github.com/armahc19/watchparty-frontend/internal/domain"
	"github.com/armahc19/watchparty-frontend/internal/media"
	"github.com/armahc19/watchparty-frontend/internal/playback"
	"github.com/armahc19/watchparty-frontend/internal/session"
	"github.com/armahc19/watchparty-frontend/internal/transport"
)

// Headless room member. Joins a room with a clock-driven player and relays
// what happens to the log; useful for soak-testing a relay without a
// browser on the other end.
func main() {
	var (
		baseURL  = flag.String("url", "ws://localhost:8081", "room bus origin")
		roomID   = flag.String("room", "", "room id to join")
		hostID   = flag.String("host", "", "room host user id")
		userID   = flag.String("user", "", "user id")
		username = flag.String("name", "guest", "display name")
		token    = flag.String("token", "", "bearer token")
	)

	_ = godotenv.Load(".env")

	cfg := config.MustLoad()
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if *roomID == "" || *token == "" {
		log.Error("room and token are required")
		os.Exit(1)
	}

	s, err := session.New(session.Config{
		BaseURL: *baseURL,
		RoomID:  *roomID,
		HostID:  *hostID,
		Identity: transport.StaticIdentity{
			UserID:   *userID,
			Username: *username,
			Token:    *token,
		},
		Player: media.NewClockPlayer(),
		Log:    log,
		Transport: transport.Options{
			BackoffBase: cfg.Sync.ReconnectBase,
			BackoffCap:  cfg.Sync.ReconnectCap,
			MaxAttempts: cfg.Sync.MaxReconnects,
		},
		Sync: playback.Options{
			SettleWindow:  cfg.Sync.SettleWindow,
			StaleAfter:    cfg.Sync.StaleAfter,
			StalePoll:     cfg.Sync.StalePoll,
			SeekTolerance: cfg.Sync.SeekTolerance,
		},
	})
	if err != nil {
		log.Error("failed to build session", slog.Any("error", err))
		os.Exit(1)
	}
	defer s.Close()

	s.OnChat = func(msg *domain.SyncMessage) {
		log.Info("room event",
			slog.String("type", string(msg.Type)),
			slog.String("from", msg.Username),
			slog.String("message", msg.Message),
		)
	}
	s.OnStatus = func(status playback.SyncStatus) {
		log.Info("sync status", slog.String("status", string(status)))
	}

	if err := s.Start(context.Background()); err != nil {
		log.Error("failed to connect", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("joined room",
		slog.String("room_id", *roomID),
		slog.String("role", string(s.Role())),
	)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("leaving room")
}
