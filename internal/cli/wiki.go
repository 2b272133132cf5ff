package cli

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forgeport/forgeport/internal/assembla"
	"github.com/forgeport/forgeport/internal/dump"
	"github.com/forgeport/forgeport/internal/gitrepo"
	"github.com/forgeport/forgeport/internal/logger"
	"github.com/forgeport/forgeport/internal/tabular"
	"github.com/forgeport/forgeport/internal/wiki"
)

var wikiCmd = &cobra.Command{
	Use:   "wiki",
	Short: "Inspect and convert the exported wiki",
}

var wikiListCmd = &cobra.Command{
	Use:   "list",
	Short: "List wiki pages in presentation order",
	RunE:  runWikiList,
}

var wikiConvertCmd = &cobra.Command{
	Use:   "convert <repo-dir>",
	Short: "Replay the wiki edit history into a git repository",
	Long: `Rebuild the wiki page tree from the export and replay every page
version, oldest first, as a git commit in the repository at <repo-dir>.
Each commit carries the page content and a refreshed sidebar index, and
is authored by the original editor at the original time.`,
	Args: cobra.ExactArgs(1),
	RunE: runWikiConvert,
}

// Flags for wiki convert.
var (
	wikiResolveUsers   bool
	wikiResolveContent bool
	wikiProjectTitle   string
)

func init() {
	wikiConvertCmd.Flags().BoolVar(
		&wikiResolveUsers, "resolve-users", false, "Resolve author identities via the source REST API")
	wikiConvertCmd.Flags().BoolVar(
		&wikiResolveContent, "resolve-content", false, "Fetch real page contents via the source REST API")
	wikiConvertCmd.Flags().StringVar(
		&wikiProjectTitle, "project-title", wiki.DefaultProjectTitle, "Title shown in the sidebar index")

	wikiCmd.AddCommand(wikiListCmd)
	wikiCmd.AddCommand(wikiConvertCmd)
	rootCmd.AddCommand(wikiCmd)
}

// buildWiki runs the shared front half of the wiki pipeline: snapshot,
// index, user directory and page tree.
func buildWiki() (*dump.Snapshot, *dump.Index, dump.Directory, *wiki.Tree, error) {
	snap, err := loadSnapshot()
	if err != nil {
		return nil, nil, nil, nil, err
	}

	ix, err := dump.BuildIndex(snap, dump.DefaultKeyPolicy())
	if err != nil {
		return nil, nil, nil, nil, err
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	users := dump.ScrapeUsers(snap, cfg.SeedUsers())

	tree, err := wiki.BuildTree(snap, ix, users)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return snap, ix, users, tree, nil
}

func runWikiList(cmd *cobra.Command, _ []string) error {
	_, _, _, tree, err := buildWiki()
	if err != nil {
		return err
	}

	var rows [][]string
	for _, page := range tree.Traverse() {
		indent := strings.Repeat("  ", page.Level)
		rows = append(rows, []string{
			dump.Row{"id": page.ID}.String("id"),
			indent + page.Title,
			page.User.DisplayName(),
			page.UpdatedAt.Format("2006-01-02 15:04"),
		})
	}
	cmd.Println(tabular.Render([]string{"ID", "TITLE", "AUTHOR", "UPDATED"}, rows))
	return nil
}

func runWikiConvert(cmd *cobra.Command, args []string) error {
	snap, ix, users, tree, err := buildWiki()
	if err != nil {
		return err
	}

	if wikiResolveUsers {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}
		if err := resolveUsers(cmd.Context(), cfg, path, users); err != nil {
			return err
		}
	}

	versions, err := wiki.Versions(snap, ix, tree, users)
	if err != nil {
		return err
	}

	var body func(*wiki.Version) (string, bool)
	if wikiResolveContent {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.RequireAssembla(path); err != nil {
			return err
		}
		client, err := assembla.NewClient(cfg.Assembla.Key, cfg.Assembla.Secret)
		if err != nil {
			return err
		}
		body, err = fetchContents(cmd.Context(), client, tree.Traverse())
		if err != nil {
			return err
		}
	}

	writer, err := gitrepo.Open(args[0])
	if err != nil {
		return err
	}

	replay := wiki.NewReplay(versions, tree.Traverse(), wiki.Options{
		ProjectTitle: wikiProjectTitle,
		Body:         body,
	})
	count := 0
	for replay.Next() {
		ev := replay.Event()
		logger.Info("committing %s", ev.Name)
		if _, err := writer.Apply(ev); err != nil {
			return err
		}
		count++
	}

	cmd.Printf("Committed %d wiki page versions to %s\n", count, args[0])
	return nil
}

// fetchContents pulls every page's version contents from the source API
// and returns a body override for the replay. Pages that fail to fetch
// are skipped with a warning; their versions fall back to the rendered
// placeholder. Fetched contents stay in memory only.
func fetchContents(ctx context.Context, client *assembla.Client, pages []*wiki.Page) (func(*wiki.Version) (string, bool), error) {
	contents := make(map[string]string)
	for _, p := range pages {
		id := dump.Row{"id": p.ID}.String("id")
		space := p.Row.String("space_id")

		fetched, err := client.ListWikiPageVersions(ctx, space, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			logger.Warn("failed to fetch contents of page %q: %v", p.Title, err)
			continue
		}
		for _, v := range fetched {
			contents[id+":"+strconv.Itoa(v.Version)] = v.Contents
		}
	}

	return func(v *wiki.Version) (string, bool) {
		key := dump.Row{"id": v.Page.ID}.String("id") + ":" + strconv.Itoa(v.Number)
		body, ok := contents[key]
		if !ok || body == "" {
			return "", false
		}
		return body, true
	}, nil
}
