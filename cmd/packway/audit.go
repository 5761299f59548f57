package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/packway"
	"github.com/sagarc03/packway/config"
	"github.com/sagarc03/packway/database"
)

var (
	auditRepository string
	auditLimit      int
	auditCursor     string
	auditJSON       bool
)

var auditCmd = &cobra.Command{
	Use:   "audit [repository]",
	Short: "List recent pack exchanges",
	Long: `List pack exchanges recorded in the exchange log, most recent first.

The repository filter is the absolute path of a repository on disk.

Examples:
  packway audit
  packway audit /srv/git/team/project.git --limit 10
  packway audit --json --cursor "MjAyNS0wMS0wMVQ..."`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().StringVar(&auditRepository, "repository", "", "only show exchanges for this repository path")
	auditCmd.Flags().IntVarP(&auditLimit, "limit", "l", packway.DefaultListLimit, "max results per page (max: 1000)")
	auditCmd.Flags().StringVar(&auditCursor, "cursor", "", "pagination cursor")
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "output JSON")

	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	repository := auditRepository
	if len(args) > 0 {
		repository = args[0]
	}

	log, closeLog, err := database.Connect(ctx, auditDatabaseConfig(cfg.Audit))
	if err != nil {
		return fmt.Errorf("connect exchange log: %w", err)
	}
	defer closeLog()

	result, err := log.List(ctx, packway.ListQuery{
		Repository: repository,
		Limit:      auditLimit,
		Cursor:     auditCursor,
	})
	if err != nil {
		return fmt.Errorf("list exchanges: %w", err)
	}

	return newFormatter(auditJSON).FormatExchanges(os.Stdout, result)
}
