package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/packway"
	"github.com/sagarc03/packway/config"
	"github.com/sagarc03/packway/filesystem"
	"github.com/sagarc03/packway/gitexec"
)

var initAllowPush bool

var initCmd = &cobra.Command{
	Use:   "init <repository>",
	Short: "Create a bare repository under the root",
	Long: `Create a bare repository at the given path relative to the repository
root, creating parent directories as needed.

Examples:
  packway init project.git
  packway init team/project.git --allow-push`,
	Args: cobra.ExactArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initAllowPush, "allow-push", false, "set http.receivepack so the repository accepts pushes")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	name := args[0]
	if !packway.IsValidRepoPath(name) {
		return fmt.Errorf("invalid repository path: %s", name)
	}

	root, err := filesystem.Open(cfg.Repos.Root)
	if err != nil {
		return err
	}
	defer func() { _ = root.Close() }()

	path, err := root.Create(name)
	if err != nil {
		return fmt.Errorf("create repository directory: %w", err)
	}

	repo := gitexec.New(cfg.Git.BinPath, path)
	if err := repo.Run(ctx, path, "init", "--bare", "--quiet", path); err != nil {
		return fmt.Errorf("init repository: %w", err)
	}

	if initAllowPush {
		if err := repo.Run(ctx, path, "config", "http.receivepack", "true"); err != nil {
			return fmt.Errorf("enable push: %w", err)
		}
	}

	// Dumb clients need info/refs from the start.
	if err := repo.UpdateServerInfo(ctx); err != nil {
		return err
	}

	slog.Info("repository created", "path", path, "push", initAllowPush)
	return nil
}
