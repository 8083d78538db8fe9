// Package dependency wires core driftbot services using go.uber.org/dig.
package dependency

import (
	"fmt"

	"go.uber.org/dig"

	"github.com/driftbot/driftbot/internal/config"
	"github.com/driftbot/driftbot/internal/history"
	"github.com/driftbot/driftbot/internal/orchestrator"
	"github.com/driftbot/driftbot/internal/providers"
	"github.com/driftbot/driftbot/internal/retention"
	"github.com/driftbot/driftbot/internal/schema"
	"github.com/driftbot/driftbot/internal/telegram"
	"github.com/driftbot/driftbot/internal/tools"
	"github.com/driftbot/driftbot/internal/tools/builtin"
	"github.com/driftbot/driftbot/internal/usage"
)

// Container holds the resolved core service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	client   schema.ChatClient
	registry *tools.Registry
	history  *history.Manager
	tracker  *usage.MemoryTracker
	orch     *orchestrator.Service
	bot      *telegram.Bot
	sweeper  *retention.Sweeper
}

func (c *Container) Client() schema.ChatClient           { return c.client }
func (c *Container) Registry() *tools.Registry           { return c.registry }
func (c *Container) History() *history.Manager           { return c.history }
func (c *Container) Tracker() *usage.MemoryTracker       { return c.tracker }
func (c *Container) Orchestrator() *orchestrator.Service { return c.orch }
func (c *Container) Bot() *telegram.Bot                  { return c.bot }
func (c *Container) Sweeper() *retention.Sweeper         { return c.sweeper }

// New builds and wires all core services from cfg.
func New(cfg *config.Config) (*Container, error) {
	d := dig.New()

	if err := d.Provide(func() *config.Config { return cfg }); err != nil {
		return nil, err
	}
	if err := d.Provide(newStorage); err != nil {
		return nil, err
	}
	if err := d.Provide(newHistoryManager); err != nil {
		return nil, err
	}
	if err := d.Provide(newRegistry); err != nil {
		return nil, err
	}
	if err := d.Provide(newChatClient); err != nil {
		return nil, err
	}
	if err := d.Provide(newTracker); err != nil {
		return nil, err
	}
	if err := d.Provide(newOrchestrator); err != nil {
		return nil, err
	}
	if err := d.Provide(newBot); err != nil {
		return nil, err
	}
	if err := d.Provide(newSweeper); err != nil {
		return nil, err
	}

	var result *Container
	err := d.Invoke(func(
		client schema.ChatClient,
		registry *tools.Registry,
		hist *history.Manager,
		tracker *usage.MemoryTracker,
		orch *orchestrator.Service,
		bot *telegram.Bot,
		sweeper *retention.Sweeper,
	) {
		result = &Container{
			client:   client,
			registry: registry,
			history:  hist,
			tracker:  tracker,
			orch:     orch,
			bot:      bot,
			sweeper:  sweeper,
		}
	})
	return result, err
}

func newStorage(cfg *config.Config) (history.Storage, error) {
	return history.NewStorage(cfg.History.Backend, cfg.History.Dir, cfg.History.Path)
}

func newHistoryManager(storage history.Storage) *history.Manager {
	return history.NewManager(storage)
}

func newRegistry(cfg *config.Config) (*tools.Registry, error) {
	registry := tools.NewRegistry()
	store := builtin.NewProjectStore()
	if err := builtin.RegisterAll(registry, builtin.ProjectTools(store)); err != nil {
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

func newChatClient(cfg *config.Config) (schema.ChatClient, error) {
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("no API key configured for provider %q — edit %s", cfg.LLM.Provider, config.ConfigPath())
	}
	return providers.New(providers.Params{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		APIBase:  cfg.LLM.APIBase,
		Model:    cfg.LLM.Model,
	})
}

func newTracker() *usage.MemoryTracker {
	return usage.NewMemoryTracker()
}

func newOrchestrator(
	cfg *config.Config,
	client schema.ChatClient,
	registry *tools.Registry,
	hist *history.Manager,
	tracker *usage.MemoryTracker,
) *orchestrator.Service {
	return orchestrator.NewService(client, registry, hist, tracker, orchestrator.Options{
		Chat: schema.ChatOptions{
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		},
		MaxRounds:    cfg.Tools.MaxRounds,
		HistoryLimit: cfg.History.MaxMessages,
		SystemPrompt: cfg.SystemPrompt,
	})
}

func newBot(cfg *config.Config, orch *orchestrator.Service) *telegram.Bot {
	return telegram.NewBot(cfg.Telegram.Token, cfg.Telegram.AllowFrom, orch)
}

func newSweeper(cfg *config.Config, hist *history.Manager) *retention.Sweeper {
	return retention.NewSweeper(hist, cfg.RetentionMaxAge(), cfg.Retention.Schedule)
}
