package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

func readAllCmd(e *env) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "read-all",
		Short: "Mark every notification of a user as read",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := e.openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			n, err := b.notify.MarkAllRead(cmd.Context(), user)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "marked %d notifications as read\n", n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "recipient user id")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func clearCmd(e *env) *cobra.Command {
	var (
		user string
		yes  bool
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every notification of a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				err := huh.NewConfirm().
					Title(fmt.Sprintf("Delete all notifications of %s?", user)).
					Description("This cannot be undone").
					Affirmative("Delete").
					Negative("Cancel").
					Value(&yes).
					Run()
				if err != nil {
					return fmt.Errorf("confirming clear: %w", err)
				}
				if !yes {
					return nil
				}
			}

			b, err := e.openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			n, err := b.notify.DeleteAllMine(cmd.Context(), user)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d notifications\n", n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "recipient user id")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
