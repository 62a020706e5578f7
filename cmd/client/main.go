package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/benbeisheim/chesslink/internal/config"
	"github.com/benbeisheim/chesslink/internal/coordinator"
	"github.com/benbeisheim/chesslink/internal/model"
	"github.com/benbeisheim/chesslink/internal/relayclient"
	"github.com/benbeisheim/chesslink/internal/tui"
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

	flagSet := pflag.NewFlagSet("chesslink", pflag.ContinueOnError)
	flagSet.String("config", configPath, "YAML or JSONC config file (default $CHESSLINK_CONFIG)")
	cfg.ClientFlags(flagSet)
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))

	// Log lines would corrupt the full-screen UI, so they go to a file or
	// nowhere.
	var logOutput io.Writer = io.Discard
	if cfg.Client.LogFile != "" {
		file, err := os.OpenFile(cfg.Client.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer file.Close()
		logOutput = file
	} else if !interactive {
		logOutput = os.Stderr
	}
	log := cfg.Log.NewLogger(logOutput)

	mode, err := coordinator.ParseMode(cfg.Client.Mode)
	if err != nil {
		return err
	}
	human, err := model.ParseColor(cfg.Client.HumanColor)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := relayclient.New(cfg.Client.RelayURL, relayclient.Options{
		RequestTimeout: cfg.Client.RequestTimeout,
		ReconnectDelay: cfg.Client.ReconnectDelay,
	}, log)

	game := coordinator.New(client, coordinator.Config{
		Mode:            mode,
		Human:           human,
		AutoplayDelay:   cfg.Client.AutoplayDelay,
		RequestTimeout:  cfg.Client.RequestTimeout,
		HistoryCapacity: cfg.Relay.HistoryCapacity,
		Logger:          log,
	})
	defer game.Close()

	go func() {
		err := client.Listen(ctx, game.OnPush, game.OnConnected)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("push listener stopped", "error", err)
		}
	}()
	game.Start()

	log.Info("client started", "relay", cfg.Client.RelayURL, "mode", mode, "human", human)

	if !interactive {
		return tui.RunLines(ctx, game, os.Stdin, os.Stdout)
	}

	program := tea.NewProgram(tui.NewModel(game), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
