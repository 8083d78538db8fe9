// Package cmd implements the driftbot CLI using cobra.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/driftbot/driftbot/internal/config"
)

const version = "0.1.0"
const logo = "🛟"

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "driftbot",
	Short: logo + " driftbot — AI tool-calling assistant",
	Long:  logo + " driftbot — an AI assistant toolkit with function calling, conversation history and a Telegram front end",
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// applyLogLevel sets the default slog level from config.
func applyLogLevel(cfg *config.Config) {
	switch cfg.LogLevel {
	case "debug":
		slog.SetLogLoggerLevel(slog.LevelDebug)
	case "warn":
		slog.SetLogLoggerLevel(slog.LevelWarn)
	case "error":
		slog.SetLogLoggerLevel(slog.LevelError)
	default:
		slog.SetLogLoggerLevel(slog.LevelInfo)
	}
}

func init() {
	rootCmd.Version = version

	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(botCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(conversationsCmd)
	rootCmd.AddCommand(statusCmd)
}
