package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forgeport/forgeport/internal/github"
)

var ticketsCmd = &cobra.Command{
	Use:   "tickets",
	Short: "Import tickets into a GitHub repository",
}

var ticketsImportCmd = &cobra.Command{
	Use:   "import <owner/repo>",
	Short: "Import milestones, tickets and comments as GitHub issues",
	Long: `Import the export's milestones and tickets into a GitHub repository.
Issues and milestones are keyed by an "[#id]" title prefix, so running
the import again updates existing objects instead of duplicating them.
Issue comments are wiped and rebuilt on every run.`,
	Args: cobra.ExactArgs(1),
	RunE: runTicketsImport,
}

func init() {
	ticketsCmd.AddCommand(ticketsImportCmd)
	rootCmd.AddCommand(ticketsCmd)
}

func runTicketsImport(cmd *cobra.Command, args []string) error {
	owner, repo, ok := strings.Cut(args[0], "/")
	if !ok || owner == "" || repo == "" {
		return fmt.Errorf("invalid repository %q, expected owner/repo", args[0])
	}

	snap, err := loadSnapshot()
	if err != nil {
		return err
	}

	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.RequireGitHub(path); err != nil {
		return err
	}

	client := github.NewClient(cmd.Context(), cfg.GitHub.Token)
	importer := github.NewImporter(client)
	if len(cfg.Statuses) > 0 {
		importer.Statuses = cfg.Statuses
	}
	importer.Logins = cfg.Logins

	if err := importer.Import(cmd.Context(), owner, repo, snap); err != nil {
		return err
	}

	cmd.Printf("Imported tickets into %s\n", args[0])
	return nil
}
