package wiki

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeport/forgeport/internal/dump"
)

// fixture loads an export literal and prepares the snapshot, index and
// user directory the wiki pipeline consumes.
func fixture(t *testing.T, input string, seed []dump.User) (*dump.Snapshot, *dump.Index, dump.Directory) {
	t.Helper()
	snap, err := dump.Load(strings.NewReader(input))
	require.NoError(t, err)
	ix, err := dump.BuildIndex(snap, dump.DefaultKeyPolicy())
	require.NoError(t, err)
	return snap, ix, dump.ScrapeUsers(snap, seed)
}

const pageSchema = `wiki_pages:fields, ["id","parent_id","user_id","status","position","page_name","created_at","updated_at"]
`

func TestBuildTree_ParentChildLevels(t *testing.T) {
	snap, ix, users := fixture(t, pageSchema+
		`wiki_pages, [1,null,"uA",1,0,"Home","2010-01-01T10:00:00Z","2010-01-01T10:00:00Z"]
wiki_pages, [2,1,"uA",1,0,"Install","2010-01-02T10:00:00Z","2010-01-02T10:00:00Z"]
`, nil)

	tree, err := BuildTree(snap, ix, users)
	require.NoError(t, err)

	home, ok := tree.Page(float64(1))
	require.True(t, ok)
	install, ok := tree.Page(float64(2))
	require.True(t, ok)

	assert.Equal(t, 0, home.Level)
	assert.Equal(t, 1, install.Level)
	assert.Same(t, home, install.Parent)
	require.Len(t, home.Children, 1)
	assert.Same(t, install, home.Children[0])
}

func TestBuildTree_NullAndZeroParentAreRoots(t *testing.T) {
	snap, ix, users := fixture(t, pageSchema+
		`wiki_pages, [1,null,"uA",1,0,"A","2010-01-01T10:00:00Z","2010-01-01T10:00:00Z"]
wiki_pages, [2,0,"uA",1,1,"B","2010-01-01T10:00:00Z","2010-01-01T10:00:00Z"]
`, nil)

	tree, err := BuildTree(snap, ix, users)
	require.NoError(t, err)

	for _, p := range tree.Pages() {
		assert.Nil(t, p.Parent)
		assert.Equal(t, 0, p.Level)
	}
	assert.Len(t, tree.Traverse(), 2)
}

func TestBuildTree_UnknownUserFailsHard(t *testing.T) {
	snap, ix, _ := fixture(t, pageSchema+
		`wiki_pages, [1,null,"ghost",1,0,"A","2010-01-01T10:00:00Z","2010-01-01T10:00:00Z"]
`, nil)

	// Empty directory: the page's author cannot be resolved.
	_, err := BuildTree(snap, ix, dump.Directory{})
	assert.ErrorIs(t, err, dump.ErrMissingReference)
}

func TestBuildTree_DanglingParentFailsHard(t *testing.T) {
	snap, ix, users := fixture(t, pageSchema+
		`wiki_pages, [1,99,"uA",1,0,"Orphan","2010-01-01T10:00:00Z","2010-01-01T10:00:00Z"]
`, nil)

	_, err := BuildTree(snap, ix, users)
	require.Error(t, err)
	assert.ErrorIs(t, err, dump.ErrMissingReference)
}

func TestBuildTree_BadTimestampFails(t *testing.T) {
	snap, ix, users := fixture(t, pageSchema+
		`wiki_pages, [1,null,"uA",1,0,"A","not a date","2010-01-01T10:00:00Z"]
`, nil)

	_, err := BuildTree(snap, ix, users)
	assert.Error(t, err)
}

func TestBuildTree_ChildrenVisibleRegardlessOfFileOrder(t *testing.T) {
	// The child row precedes its parent in the file. The parent must still
	// end up with a complete children list.
	snap, ix, users := fixture(t, pageSchema+
		`wiki_pages, [2,1,"uA",1,0,"Child","2010-01-02T10:00:00Z","2010-01-02T10:00:00Z"]
wiki_pages, [1,null,"uA",1,0,"Parent","2010-01-01T10:00:00Z","2010-01-01T10:00:00Z"]
`, nil)

	tree, err := BuildTree(snap, ix, users)
	require.NoError(t, err)

	parent, _ := tree.Page(float64(1))
	child, _ := tree.Page(float64(2))
	require.Len(t, parent.Children, 1)
	assert.Same(t, child, parent.Children[0])
	assert.Same(t, parent, child.Parent)
}

func TestTraverse_PreOrderWithPositionOrdering(t *testing.T) {
	snap, ix, users := fixture(t, pageSchema+
		`wiki_pages, [1,null,"uA",1,2,"A","2010-01-01T10:00:00Z","2010-01-01T10:00:00Z"]
wiki_pages, [2,null,"uA",1,1,"B","2010-01-01T10:00:00Z","2010-01-01T10:00:00Z"]
wiki_pages, [3,1,"uA",1,2,"C","2010-01-01T10:00:00Z","2010-01-01T10:00:00Z"]
wiki_pages, [4,1,"uA",1,1,"D","2010-01-01T10:00:00Z","2010-01-01T10:00:00Z"]
wiki_pages, [5,4,"uA",1,0,"E","2010-01-01T10:00:00Z","2010-01-01T10:00:00Z"]
`, nil)

	tree, err := BuildTree(snap, ix, users)
	require.NoError(t, err)

	var titles []string
	for _, p := range tree.Traverse() {
		titles = append(titles, p.Title)
	}

	// Siblings ascend by position; every subtree is exhausted before the
	// next sibling starts.
	assert.Equal(t, []string{"B", "A", "D", "E", "C"}, titles)
}

func TestTraverse_LevelInvariant(t *testing.T) {
	snap, ix, users := fixture(t, pageSchema+
		`wiki_pages, [1,null,"uA",1,0,"A","2010-01-01T10:00:00Z","2010-01-01T10:00:00Z"]
wiki_pages, [2,1,"uA",1,0,"B","2010-01-01T10:00:00Z","2010-01-01T10:00:00Z"]
wiki_pages, [3,2,"uA",1,0,"C","2010-01-01T10:00:00Z","2010-01-01T10:00:00Z"]
wiki_pages, [4,null,"uA",1,1,"D","2010-01-01T10:00:00Z","2010-01-01T10:00:00Z"]
`, nil)

	tree, err := BuildTree(snap, ix, users)
	require.NoError(t, err)

	for _, p := range tree.Traverse() {
		if p.Parent == nil {
			assert.Equal(t, 0, p.Level, "page %s", p.Title)
		} else {
			assert.Equal(t, p.Parent.Level+1, p.Level, "page %s", p.Title)
		}
	}
}

func TestBuildTree_LevelsCorrectInReverseFileOrder(t *testing.T) {
	// Grandchild, child, root recorded back to front. Levels derive from
	// the finished forest, not from single-pass file order.
	snap, ix, users := fixture(t, pageSchema+
		`wiki_pages, [3,2,"uA",1,0,"Grandchild","2010-01-03T10:00:00Z","2010-01-03T10:00:00Z"]
wiki_pages, [2,1,"uA",1,0,"Child","2010-01-02T10:00:00Z","2010-01-02T10:00:00Z"]
wiki_pages, [1,null,"uA",1,0,"Root","2010-01-01T10:00:00Z","2010-01-01T10:00:00Z"]
`, nil)

	tree, err := BuildTree(snap, ix, users)
	require.NoError(t, err)

	root, _ := tree.Page(float64(1))
	child, _ := tree.Page(float64(2))
	grandchild, _ := tree.Page(float64(3))

	assert.Equal(t, 0, root.Level)
	assert.Equal(t, 1, child.Level)
	assert.Equal(t, 2, grandchild.Level)
	assert.Same(t, child, grandchild.Parent)
	assert.Same(t, root, child.Parent)
}

func TestBuildTree_DoesNotMutateSnapshot(t *testing.T) {
	input := pageSchema +
		`wiki_pages, [1,null,"uA",1,0,"A","2010-01-01T10:00:00Z","2010-01-01T10:00:00Z"]
`
	snap, ix, users := fixture(t, input, nil)
	before := len(snap.Rows(TablePages)[0])

	_, err := BuildTree(snap, ix, users)
	require.NoError(t, err)
	_, err = BuildTree(snap, ix, users)
	require.NoError(t, err)

	// Source rows gain no synthetic fields; enrichment lives on Page.
	assert.Equal(t, before, len(snap.Rows(TablePages)[0]))
}
