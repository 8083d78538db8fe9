package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/driftbot/driftbot/internal/config"
	"github.com/driftbot/driftbot/internal/dependency"
)

var (
	chatMessage      string
	chatConversation string
	chatShowUsage    bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "Send a single message and exit")
	chatCmd.Flags().StringVarP(&chatConversation, "conversation", "c", "", "Continue an existing conversation")
	chatCmd.Flags().BoolVar(&chatShowUsage, "usage", false, "Print token usage after each response")
}

var exitCommands = map[string]bool{
	"exit":  true,
	"quit":  true,
	"/exit": true,
	"/quit": true,
	":q":    true,
}

func runChat(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyLogLevel(cfg)

	container, err := dependency.New(cfg)
	if err != nil {
		return err
	}
	orch := container.Orchestrator()

	convID := chatConversation
	if convID == "" {
		convID, err = orch.StartConversation("cli")
		if err != nil {
			return fmt.Errorf("start conversation: %w", err)
		}
	}

	if chatMessage != "" {
		return runSingleMessage(container, convID)
	}
	return runInteractive(container, convID)
}

// runSingleMessage sends one message and prints the response.
func runSingleMessage(container *dependency.Container, convID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fmt.Fprintf(os.Stderr, "  ↳ thinking...\n")
	text, err := container.Orchestrator().Respond(ctx, convID, chatMessage)
	if err != nil {
		return err
	}
	printResponse(text)
	maybePrintUsage(container, convID)
	return nil
}

// runInteractive is the REPL: one line in, one response out.
func runInteractive(container *dependency.Container, convID string) error {
	fmt.Printf("%s Interactive mode (type 'exit' or Ctrl+C to quit)\n", logo)
	fmt.Printf("  conversation: %s\n\n", convID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			fmt.Println("\nGoodbye!")
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if exitCommands[strings.ToLower(line)] {
			fmt.Println("Goodbye!")
			return nil
		}

		text, err := container.Orchestrator().Respond(ctx, convID, line)
		if err != nil {
			if ctx.Err() != nil {
				fmt.Println("\nGoodbye!")
				return nil
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		printResponse(text)
		maybePrintUsage(container, convID)
	}
}

func maybePrintUsage(container *dependency.Container, convID string) {
	if !chatShowUsage {
		return
	}
	stats := container.Tracker().Totals(convID)
	fmt.Fprintf(os.Stderr, "  tokens: %d prompt + %d completion over %d calls\n",
		stats.PromptTokens, stats.CompletionTokens, stats.EventCount)
}

func printResponse(text string) {
	fmt.Printf("\n%s driftbot\n%s\n\n", logo, text)
}
