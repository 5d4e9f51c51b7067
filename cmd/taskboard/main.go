package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/taskboard/internal/credential"
	"github.com/nhle/taskboard/internal/model"
)

var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is the state shared by subcommands once the config is loaded.
type env struct {
	configPath string
	cfg        *model.AppConfig
	creds      *credential.Store
}

func rootCmd() *cobra.Command {
	e := &env{creds: credential.New()}

	root := &cobra.Command{
		Use:           "taskboard",
		Short:         "Collaborative task board with a live notification inbox",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := model.LoadConfig(e.configPath)
			if err != nil {
				return err
			}
			e.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&e.configPath, "config", model.DefaultConfigPath(), "config file")

	root.AddCommand(serveCmd(e))
	root.AddCommand(inboxCmd(e))
	root.AddCommand(digestCmd(e))
	root.AddCommand(readAllCmd(e))
	root.AddCommand(clearCmd(e))
	root.AddCommand(tokenCmd(e))
	root.AddCommand(userCmd(e))
	root.AddCommand(credentialCmd(e))
	root.AddCommand(configCmd(e))

	return root
}
