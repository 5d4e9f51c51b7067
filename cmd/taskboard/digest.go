package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/taskboard/internal/digest"
)

func digestCmd(e *env) *cobra.Command {
	var (
		user string
		out  string
	)

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Write an email digest of a user's unread notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := e.openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			msg, err := digest.NewBuilder(b.notify, b.store, e.cfg.Digest.From).Build(cmd.Context(), user)
			if err != nil {
				return err
			}
			if msg == nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s has no unread notifications\n", user)
				return nil
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("creating %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			return digest.Render(w, msg)
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "recipient user id")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the .eml to this file instead of stdout")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
