package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nhle/taskboard/internal/api"
)

func serveCmd(e *env) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API with the live inbox stream.

Examples:
  taskboard serve
  taskboard serve --addr :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			secret, err := e.jwtSecret()
			if err != nil {
				return err
			}
			b, err := e.openBackend(ctx)
			if err != nil {
				return err
			}
			defer b.Close()

			if addr == "" {
				addr = e.cfg.Server.Addr
			}
			srv, err := api.NewServer(api.Config{
				Addr:         addr,
				JWTSecret:    secret,
				AllowOrigins: e.cfg.Server.AllowOrigins,
			}, b.store, b.notify, b.board)
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")

	return cmd
}
