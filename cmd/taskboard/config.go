package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/taskboard/internal/model"
)

func configCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or initialize the configuration file",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := model.SaveConfig(e.configPath, e.cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", e.configPath)
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective backend settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "driver:        %s\n", e.cfg.Backend.Driver)
			fmt.Fprintf(out, "sqlite_path:   %s\n", e.cfg.Backend.SQLitePath)
			fmt.Fprintf(out, "group_queries: %t\n", e.cfg.Backend.GroupQueries)
			fmt.Fprintf(out, "server.addr:   %s\n", e.cfg.Server.Addr)
			fmt.Fprintf(out, "batch_size:    %d\n", e.cfg.Notifications.BatchSize)
			return nil
		},
	}

	cmd.AddCommand(initCmd, show)
	return cmd
}
