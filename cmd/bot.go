package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/driftbot/driftbot/internal/config"
	"github.com/driftbot/driftbot/internal/dependency"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Start the Telegram bot",
	RunE:  runBot,
}

func runBot(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyLogLevel(cfg)
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("no Telegram token configured — set TELEGRAM_BOT_TOKEN or edit %s", config.ConfigPath())
	}

	container, err := dependency.New(cfg)
	if err != nil {
		return err
	}

	// Graceful shutdown context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return container.Bot().Run(gctx) })
	g.Go(func() error { return container.Sweeper().Run(gctx) })

	fmt.Printf("%s Bot running. Press Ctrl+C to stop.\n", logo)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "bot error: %v\n", err)
		return err
	}

	if err := container.History().Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close history: %v\n", err)
	}
	fmt.Println("\nShutdown complete.")
	return nil
}
