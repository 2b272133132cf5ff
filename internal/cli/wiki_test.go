package cli

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	git "github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeport/forgeport/internal/assembla"
	"github.com/forgeport/forgeport/internal/dump"
	"github.com/forgeport/forgeport/internal/wiki"
)

const wikiDump = `wiki_pages:fields, ["id","parent_id","user_id","status","position","page_name","created_at","updated_at"]
wiki_page_versions:fields, ["id","wiki_page_id","user_id","version","wiki_page_blob_id","change_comment","created_at","updated_at"]
wiki_page_blobs:fields, ["version_id","blob_id"]
wiki_pages, [1, null, "uA", 1, 1, "Home", "2018-01-01T10:00:00", "2018-01-01T10:00:00"]
wiki_pages, [2, 1, "uA", 1, 1, "Guide", "2018-02-01T10:00:00", "2018-02-01T10:00:00"]
wiki_page_versions, [101, 1, "uA", 1, "b1", "first", "2018-01-01T10:00:00", "2018-01-01T10:00:00"]
wiki_page_versions, [201, 2, "uA", 1, "b2", "guide", "2018-02-01T10:00:00", "2018-02-01T10:00:00"]
wiki_page_blobs, [101, "b1"]
wiki_page_blobs, [201, "b2"]
`

// withDump points the global --dumpfile flag at a temp export file for
// the duration of the test. The --auth flag is pinned to a temp path too,
// so a developer's real auth config never seeds identities into the run.
func withDump(t *testing.T, contents string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "dump.js")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	originalDump, originalAuth := dumpFile, authFile
	dumpFile = path
	authFile = filepath.Join(dir, "auth.toml")
	t.Cleanup(func() {
		dumpFile, authFile = originalDump, originalAuth
	})
}

func TestWikiList(t *testing.T) {
	withDump(t, wikiDump)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"wiki", "list"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Home")
	assert.Contains(t, buf.String(), "Guide")
}

func TestWikiConvert_CommitsHistory(t *testing.T) {
	withDump(t, wikiDump)

	repoDir := t.TempDir()
	repo, err := git.PlainInit(repoDir, false)
	require.NoError(t, err)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"wiki", "convert", repoDir, "--project-title", "PortAudio"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err = rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Committed 2 wiki page versions")

	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Equal(t, "guide", commit.Message)
	assert.Equal(t, "uA", commit.Author.Name)
	assert.Equal(t, "none@localhost", commit.Author.Email)

	sidebar, err := os.ReadFile(filepath.Join(repoDir, "_Sidebar.md"))
	require.NoError(t, err)
	assert.Contains(t, string(sidebar), "**PortAudio**")
	assert.Contains(t, string(sidebar), "* [[Home]]")
	assert.Contains(t, string(sidebar), "  * [[Guide]]")
}

func TestWikiConvert_IgnoresHomeAuthConfig(t *testing.T) {
	// An auth config in the user's home directory must not leak
	// identities into a run that pins --auth elsewhere.
	home := t.TempDir()
	cfgDir := filepath.Join(home, ".forgeport")
	require.NoError(t, os.MkdirAll(cfgDir, 0700))
	require.NoError(t, os.WriteFile(
		filepath.Join(cfgDir, "auth.toml"),
		[]byte("[identities.uA]\nname = \"Alice\"\nemail = \"alice@example.com\"\n"),
		0600))
	t.Setenv("HOME", home)

	withDump(t, wikiDump)

	repoDir := t.TempDir()
	repo, err := git.PlainInit(repoDir, false)
	require.NoError(t, err)

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"wiki", "convert", repoDir})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	require.NoError(t, rootCmd.Execute())

	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Equal(t, "uA", commit.Author.Name)
	assert.Equal(t, "none@localhost", commit.Author.Email)
}

const spacedDump = `wiki_pages:fields, ["id","space_id","parent_id","user_id","status","position","page_name","created_at","updated_at"]
wiki_page_versions:fields, ["id","wiki_page_id","user_id","version","wiki_page_blob_id","change_comment","created_at","updated_at"]
wiki_page_blobs:fields, ["version_id","blob_id"]
wiki_pages, [1, "sp1", null, "uA", 1, 1, "Home", "2018-01-01T10:00:00", "2018-01-01T10:00:00"]
wiki_pages, [2, "sp1", null, "uA", 1, 2, "Guide", "2018-02-01T10:00:00", "2018-02-01T10:00:00"]
wiki_page_versions, [101, 1, "uA", 1, "b1", "first", "2018-01-01T10:00:00", "2018-01-01T10:00:00"]
wiki_page_versions, [201, 2, "uA", 1, "b2", "guide", "2018-02-01T10:00:00", "2018-02-01T10:00:00"]
wiki_page_blobs, [101, "b1"]
wiki_page_blobs, [201, "b2"]
`

func TestFetchContents_OverridesReplayBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/spaces/sp1/wiki_pages/1/versions.json":
			fmt.Fprint(w, `[{"id":"v1","wiki_page_id":"1","version":1,"contents":"# Real home contents"}]`)
		case "/spaces/sp1/wiki_pages/2/versions.json":
			http.Error(w, "gone", http.StatusNotFound)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	snap, err := dump.Load(strings.NewReader(spacedDump))
	require.NoError(t, err)
	ix, err := dump.BuildIndex(snap, dump.DefaultKeyPolicy())
	require.NoError(t, err)
	users := dump.ScrapeUsers(snap, nil)
	tree, err := wiki.BuildTree(snap, ix, users)
	require.NoError(t, err)
	versions, err := wiki.Versions(snap, ix, tree, users)
	require.NoError(t, err)

	client, err := assembla.NewClient("key", "secret", assembla.WithBaseURL(srv.URL))
	require.NoError(t, err)

	body, err := fetchContents(context.Background(), client, tree.Traverse())
	require.NoError(t, err)

	replay := wiki.NewReplay(versions, tree.Traverse(), wiki.Options{Body: body})

	require.True(t, replay.Next())
	assert.Equal(t, "# Real home contents", replay.Event().Files["Home.md"])

	// The failed fetch falls back to the placeholder rendering.
	require.True(t, replay.Next())
	assert.Contains(t, replay.Event().Files["Guide.md"], "Placeholder page")
}

func TestWikiConvertCmd_ResolveContentFlag(t *testing.T) {
	assert.NotNil(t, wikiConvertCmd.Flags().Lookup("resolve-content"))
}

func TestWikiConvert_MissingRepo(t *testing.T) {
	withDump(t, wikiDump)

	rootCmd.SetArgs([]string{"wiki", "convert", t.TempDir()})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	assert.Error(t, err)
}
