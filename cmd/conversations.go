package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftbot/driftbot/internal/config"
	"github.com/driftbot/driftbot/internal/history"
)

var conversationsOwner string

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"conv"},
	Short:   "Manage stored conversations",
}

var conversationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored conversations",
	RunE:  runConversationsList,
}

var conversationsShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print a conversation's messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runConversationsShow,
}

var conversationsDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runConversationsDelete,
}

func init() {
	conversationsListCmd.Flags().StringVar(&conversationsOwner, "owner", "", "Filter by owner")
	conversationsCmd.AddCommand(conversationsListCmd)
	conversationsCmd.AddCommand(conversationsShowCmd)
	conversationsCmd.AddCommand(conversationsDeleteCmd)
}

func openHistory() (*history.Manager, error) {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	storage, err := history.NewStorage(cfg.History.Backend, cfg.History.Dir, cfg.History.Path)
	if err != nil {
		return nil, err
	}
	return history.NewManager(storage), nil
}

func runConversationsList(_ *cobra.Command, _ []string) error {
	mgr, err := openHistory()
	if err != nil {
		return err
	}
	defer mgr.Close()

	summaries, err := mgr.ListConversations(conversationsOwner)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No conversations.")
		return nil
	}
	for _, s := range summaries {
		fmt.Printf("%s  owner=%-12s  %3d messages  updated %s\n",
			s.ID, s.Owner, s.MessageCount, s.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runConversationsShow(_ *cobra.Command, args []string) error {
	mgr, err := openHistory()
	if err != nil {
		return err
	}
	defer mgr.Close()

	msgs, err := mgr.Messages(args[0], 0)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		text := m.Text()
		switch {
		case len(m.ToolCalls) > 0:
			for _, tc := range m.ToolCalls {
				fmt.Printf("[%s] → %s(%v)\n", m.Role, tc.Name, tc.Arguments)
			}
			if text != "" {
				fmt.Printf("[%s] %s\n", m.Role, text)
			}
		case m.Role == "tool":
			fmt.Printf("[tool:%s] %s\n", m.ToolName, text)
		default:
			fmt.Printf("[%s] %s\n", m.Role, text)
		}
	}
	return nil
}

func runConversationsDelete(_ *cobra.Command, args []string) error {
	mgr, err := openHistory()
	if err != nil {
		return err
	}
	defer mgr.Close()

	if err := mgr.DeleteConversation(args[0]); err != nil {
		return err
	}
	fmt.Printf("✓ Deleted %s\n", args[0])
	return nil
}
