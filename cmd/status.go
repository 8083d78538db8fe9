package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/driftbot/driftbot/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show driftbot status",
	RunE:  runStatus,
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfgPath := config.ConfigPath()

	fmt.Printf("%s driftbot Status\n\n", logo)

	_, statErr := os.Stat(cfgPath)
	cfgMark := "✗"
	if statErr == nil {
		cfgMark = "✓"
	}
	fmt.Printf("Config:    %s %s\n", cfgPath, cfgMark)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  (could not load config: %v)\n", err)
		return nil
	}

	fmt.Printf("Provider:  %s\n", cfg.LLM.Provider)
	fmt.Printf("Model:     %s\n", cfg.LLM.Model)

	keyMark := "(not set)"
	if cfg.LLM.APIKey != "" {
		keyMark = "✓"
	}
	fmt.Printf("API key:   %s\n", keyMark)

	fmt.Printf("History:   %s backend", cfg.History.Backend)
	switch cfg.History.Backend {
	case "file":
		fmt.Printf(" (%s)", cfg.History.Dir)
	case "sqlite":
		fmt.Printf(" (%s)", cfg.History.Path)
	}
	fmt.Println()

	tgMark := "(not set)"
	if cfg.Telegram.Token != "" {
		tgMark = "✓"
	}
	fmt.Printf("Telegram:  %s\n", tgMark)
	return nil
}
