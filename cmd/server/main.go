package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbeisheim/chesslink/internal/config"
	"github.com/benbeisheim/chesslink/internal/controller"
	"github.com/benbeisheim/chesslink/internal/intake"
	"github.com/benbeisheim/chesslink/internal/service"
	"github.com/benbeisheim/chesslink/internal/store"
	"github.com/benbeisheim/chesslink/internal/ws"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := config.PathFromArgs(os.Args[1:])
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	flagSet := pflag.NewFlagSet("chesslink-relay", pflag.ContinueOnError)
	flagSet.String("config", configPath, "YAML or JSONC config file (default $CHESSLINK_CONFIG)")
	cfg.RelayFlags(flagSet)
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := cfg.Log.NewLogger(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := ws.NewHub(log)
	opts := []service.Option{
		service.WithStrict(cfg.Relay.Strict),
		service.WithHistoryCapacity(cfg.Relay.HistoryCapacity),
	}
	var stateStore *store.Store
	if cfg.Relay.StateFile != "" {
		stateStore = store.New(cfg.Relay.StateFile)
		opts = append(opts, service.WithSaver(stateStore))
	}
	relay := service.NewRelay(hub, log, opts...)
	if stateStore != nil {
		restoreRelay(relay, stateStore, log)
	}

	app := fiber.New(fiber.Config{
		AppName:               "chesslink-relay",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{Output: os.Stderr}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Relay.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, X-Listener-ID",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	controller.Register(app,
		controller.NewRelayController(relay),
		controller.NewWebSocketController(relay, hub, log),
	)

	if cfg.Relay.IntakeAddr != "" {
		server := intake.NewServer(relay, log)
		go func() {
			if err := server.ListenAndServe(ctx, cfg.Relay.IntakeAddr); err != nil {
				log.Error("command intake stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		hub.CloseAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error("shutdown failed", "error", err)
		}
	}()

	log.Info("relay listening", "addr", cfg.Relay.Addr, "strict", cfg.Relay.Strict)
	return app.Listen(cfg.Relay.Addr)
}

func restoreRelay(relay *service.Relay, s *store.Store, log *slog.Logger) {
	snap, err := s.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		log.Warn("ignoring unreadable state file", "path", s.Path(), "error", err)
		return
	}
	if err := relay.Restore(snap); err != nil {
		log.Warn("ignoring invalid state file", "path", s.Path(), "error", err)
		return
	}
	log.Info("restored relay state", "path", s.Path(), "turn", snap.Turn, "moves", len(snap.History))
}
