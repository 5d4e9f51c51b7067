package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/taskboard/internal/keys"
	inboxview "github.com/nhle/taskboard/internal/ui/inbox"
)

func inboxCmd(e *env) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Watch a user's inbox live in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := e.openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			bridge := inboxview.NewBridge(b.store, b.notify)
			bridge.Start(user)
			defer bridge.Stop()

			p := tea.NewProgram(inboxview.New(bridge, keys.DefaultKeyMap(), 80, 24), tea.WithAltScreen())
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("running inbox view: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "recipient user id")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
