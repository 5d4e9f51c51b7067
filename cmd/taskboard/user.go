package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/taskboard/internal/model"
)

func userCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user profiles",
	}

	var u model.User
	add := &cobra.Command{
		Use:   "add",
		Short: "Create or update a user profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := e.openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			if err := b.store.UpsertUser(cmd.Context(), u); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved user %s\n", u.ID)
			return nil
		},
	}
	add.Flags().StringVar(&u.ID, "id", "", "user id")
	add.Flags().StringVar(&u.Email, "email", "", "email address")
	add.Flags().StringVar(&u.DisplayName, "name", "", "display name")
	_ = add.MarkFlagRequired("id")
	_ = add.MarkFlagRequired("email")

	cmd.AddCommand(add)
	return cmd
}
