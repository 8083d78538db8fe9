package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/driftbot/driftbot/internal/config"
	"github.com/driftbot/driftbot/internal/tools"
	"github.com/driftbot/driftbot/internal/tools/builtin"
)

var toolsExecArgs string

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect and run the registered tools",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered tools",
	RunE:  runToolsList,
}

var toolsExecCmd = &cobra.Command{
	Use:   "exec NAME",
	Short: "Execute a tool directly",
	Args:  cobra.ExactArgs(1),
	RunE:  runToolsExec,
}

func init() {
	toolsExecCmd.Flags().StringVar(&toolsExecArgs, "args", "{}", "Tool arguments as a JSON object")
	toolsCmd.AddCommand(toolsListCmd)
	toolsCmd.AddCommand(toolsExecCmd)
}

// buildRegistry assembles the builtin tool set without touching the LLM
// provider, so these commands work with no API key configured.
func buildRegistry(cfg *config.Config) (*tools.Registry, error) {
	registry := tools.NewRegistry()
	if err := builtin.RegisterAll(registry, builtin.ProjectTools(builtin.NewProjectStore())); err != nil {
		return nil, err
	}
	if err := registry.Register(builtin.Echo()); err != nil {
		return nil, err
	}
	if cfg.Tools.EnableWeb {
		if err := registry.Register(builtin.FetchURL()); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func runToolsList(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	for _, def := range registry.Definitions() {
		fmt.Printf("%-24s %s\n", def.Name, def.Description)
	}
	return nil
}

func runToolsExec(_ *cobra.Command, args []string) error {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	var toolArgs map[string]any
	if err := json.Unmarshal([]byte(toolsExecArgs), &toolArgs); err != nil {
		return fmt.Errorf("parse --args: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	result, err := registry.Execute(ctx, args[0], toolArgs)
	if err != nil {
		return err
	}
	fmt.Println(result)
	return nil
}
