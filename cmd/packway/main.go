package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/packway/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "packway",
	Short:   "Smart HTTP gateway for git repositories",
	Long: `Packway serves the git smart HTTP protocol for every bare repository
under a directory, delegating pack negotiation to the git binary.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
			files = append(files, configFile)
		}

		cfg, err := config.Load(files, cmd.Flags())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		setupLogging(cfg.Log)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("root", "", "directory holding the repositories (env: PACKWAY_REPOS_ROOT)")
	rootCmd.PersistentFlags().String("git", "", "path to the git binary (default: git, env: PACKWAY_GIT_BIN_PATH)")
	rootCmd.PersistentFlags().String("audit-type", "", "exchange log database: sqlite, postgres (default: sqlite, env: PACKWAY_AUDIT_TYPE)")
	rootCmd.PersistentFlags().String("audit-dsn", "", "exchange log connection string (default: packway.db, env: PACKWAY_AUDIT_DSN)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env: PACKWAY_LOG_LEVEL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
