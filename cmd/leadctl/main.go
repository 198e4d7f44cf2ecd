// Package main provides leadctl, the operator CLI: postgres migrations,
// offline bulk imports and development tokens.
package main

import (
	"fmt"
	"os"

	"github.com/JonMunkholm/leadbook/internal/config"
	"github.com/JonMunkholm/leadbook/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cli carries state shared by subcommands once the root has loaded config.
type cli struct {
	configFile string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "leadctl",
		Short: "Operate a leadbook deployment",
		Long: `leadctl runs maintenance tasks against the store configured for the
server: the same environment variables, .env file and optional config file.

Logs go to stderr; command output goes to stdout.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.load,
	}
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "config file (default: $"+config.ConfigFileEnv+")")

	root.AddCommand(newMigrateCmd(c))
	root.AddCommand(newImportCmd(c))
	root.AddCommand(newTokenCmd(c))
	return root
}

func (c *cli) load(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load(c.configFile)
	if err != nil {
		return err
	}
	logging.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	c.cfg = cfg
	return nil
}
