package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/packway/config"
	"github.com/sagarc03/packway/filesystem"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the repositories being served",
	Long: `List every bare repository below the repository root, as the
identifiers clients use in URLs.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output JSON")

	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	root, err := filesystem.Open(cfg.Repos.Root)
	if err != nil {
		return err
	}
	defer func() { _ = root.Close() }()

	repos, err := root.List(ctx)
	if err != nil {
		return err
	}

	return newFormatter(listJSON).FormatRepositories(os.Stdout, repos)
}
