package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forgeport/forgeport/internal/assembla"
	"github.com/forgeport/forgeport/internal/config"
	"github.com/forgeport/forgeport/internal/dump"
	"github.com/forgeport/forgeport/internal/logger"
	"github.com/forgeport/forgeport/internal/tabular"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List users referenced by the export",
	Long: `Scan every table of the export for user references and print the
collected user directory. With --resolve-users, missing names and
emails are filled in from the source REST API.`,
	RunE: runUsers,
}

var usersResolve bool

func init() {
	usersCmd.Flags().BoolVar(
		&usersResolve, "resolve-users", false, "Resolve identities via the source REST API")
	rootCmd.AddCommand(usersCmd)
}

func runUsers(cmd *cobra.Command, _ []string) error {
	snap, err := loadSnapshot()
	if err != nil {
		return err
	}

	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	users := dump.ScrapeUsers(snap, cfg.SeedUsers())

	if usersResolve {
		if err := resolveUsers(cmd.Context(), cfg, path, users); err != nil {
			return err
		}
	}

	rows := make([][]string, 0, len(users))
	for _, id := range users.IDs() {
		u := users[id]
		rows = append(rows, []string{
			u.ID, u.Name, u.Email, strings.Join(u.Tables, ", "),
		})
	}
	cmd.Println(tabular.Render([]string{"ID", "NAME", "EMAIL", "TABLES"}, rows))
	return nil
}

// resolveUsers fills in missing names and emails from the source API.
// Entries seeded from the config file keep their identity.
func resolveUsers(ctx context.Context, cfg *config.Config, path string, users dump.Directory) error {
	if err := cfg.RequireAssembla(path); err != nil {
		return err
	}
	client, err := assembla.NewClient(cfg.Assembla.Key, cfg.Assembla.Secret)
	if err != nil {
		return err
	}

	for _, id := range users.IDs() {
		u := users[id]
		if u.Name != "" && u.Email != "" {
			continue
		}
		remote, err := client.GetUser(ctx, id)
		if err != nil {
			if assembla.IsNotFound(err) {
				logger.Warn("user %s not found in source API", id)
				continue
			}
			return err
		}
		if u.Name == "" {
			u.Name = remote.Name
		}
		if u.Email == "" {
			u.Email = remote.Email
		}
	}
	return nil
}
