package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/taskboard/internal/credential"
)

func credentialCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Store backend secrets in the OS keyring",
		Long: fmt.Sprintf(`Store backend secrets in the OS keyring.

Known keys: %s`, strings.Join(credential.Keys, ", ")),
	}

	set := &cobra.Command{
		Use:   "set KEY",
		Short: "Prompt for a secret and store it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value string
			err := huh.NewInput().
				Title(args[0]).
				EchoMode(huh.EchoModePassword).
				Value(&value).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("value is required")
					}
					return nil
				}).
				Run()
			if err != nil {
				return fmt.Errorf("reading secret: %w", err)
			}
			return e.creds.Set(args[0], strings.TrimSpace(value))
		},
	}

	del := &cobra.Command{
		Use:   "delete KEY",
		Short: "Remove a stored secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.creds.Delete(args[0])
		},
	}

	cmd.AddCommand(set, del)
	return cmd
}
