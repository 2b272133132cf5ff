package wiki

import (
	"fmt"
	"sort"
	"time"

	"github.com/forgeport/forgeport/internal/dump"
)

// Snapshot tables the wiki pipeline reads.
const (
	TablePages    = "wiki_pages"
	TableVersions = "wiki_page_versions"
	TableBlobs    = "wiki_page_blobs"
)

// Page status values in the export.
const (
	StatusActive   = 1
	StatusArchived = 2
)

// Page is one wiki page enriched with its resolved relationships. The
// source Row stays untouched; all derived state lives on the Page itself.
type Page struct {
	Row dump.Row

	ID       any    // raw id value as decoded from the export
	Title    string // page_name
	Status   int
	Position float64 // sibling order

	Parent   *Page
	Children []*Page
	User     *dump.User

	CreatedAt time.Time
	UpdatedAt time.Time

	// Level is the page's depth: 0 for roots, parent level + 1 otherwise.
	Level int
}

// Tree is the reconstructed wiki page forest.
type Tree struct {
	pages []*Page // file order
	roots []*Page
	byID  map[any]*Page
}

// BuildTree walks the snapshot's wiki_pages rows once, in file order,
// resolving each page's author (hard failure when the user directory does
// not know the id), parent (hard failure when a non-null parent id is
// absent from the page index) and timestamps, and grouping children under
// their parents. Children lists are complete once BuildTree returns, so
// enrichment is closed before any traversal happens. Building is
// idempotent: the snapshot is never mutated.
func BuildTree(snap *dump.Snapshot, ix *dump.Index, users dump.Directory) (*Tree, error) {
	rows := snap.Rows(TablePages)

	t := &Tree{
		pages: make([]*Page, 0, len(rows)),
		byID:  make(map[any]*Page, len(rows)),
	}
	children := make(map[any][]*Page)

	for _, row := range rows {
		user, err := users.Find(row.String("user_id"))
		if err != nil {
			return nil, fmt.Errorf("wiki: page %v: %w", row["id"], err)
		}
		created, err := row.Time("created_at")
		if err != nil {
			return nil, fmt.Errorf("wiki: page %v: %w", row["id"], err)
		}
		updated, err := row.Time("updated_at")
		if err != nil {
			return nil, fmt.Errorf("wiki: page %v: %w", row["id"], err)
		}

		position, _ := row.Number("position")
		p := &Page{
			Row:       row,
			ID:        row["id"],
			Title:     row.String("page_name"),
			Status:    row.Int("status"),
			Position:  position,
			User:      user,
			CreatedAt: created,
			UpdatedAt: updated,
		}
		t.pages = append(t.pages, p)
		t.byID[p.ID] = p

		if !row.Truthy("parent_id") {
			// Root page: grouped under the nil sentinel.
			children[nil] = append(children[nil], p)
			continue
		}

		parentID := row["parent_id"]
		if _, err := ix.Find(TablePages, parentID); err != nil {
			return nil, fmt.Errorf("wiki: page %v: parent: %w", row["id"], err)
		}
		children[parentID] = append(children[parentID], p)
	}

	// Attach the completed child groups. Doing this after the pass means
	// every page sees all of its children, regardless of file order.
	for _, p := range t.pages {
		p.Children = children[p.ID]
		if p.Row.Truthy("parent_id") {
			p.Parent = t.byID[p.Row["parent_id"]]
		}
	}
	t.roots = children[nil]

	// Levels are derived from the finished forest, so they are correct for
	// every file order, even a grandchild recorded before its parent.
	var setLevels func(pages []*Page, level int)
	setLevels = func(pages []*Page, level int) {
		for _, p := range pages {
			p.Level = level
			setLevels(p.Children, level+1)
		}
	}
	setLevels(t.roots, 0)

	return t, nil
}

// Page returns the page with the given raw id value.
func (t *Tree) Page(id any) (*Page, bool) {
	p, ok := t.byID[id]
	return p, ok
}

// Pages returns every page in original file order.
func (t *Tree) Pages() []*Page {
	return t.pages
}

// Traverse returns the pages in presentation order: a pre-order walk of
// the forest visiting siblings in ascending position order. Every
// descendant of a page appears after it and before the next sibling's
// subtree. The sort is stable, so equal positions keep file order.
func (t *Tree) Traverse() []*Page {
	out := make([]*Page, 0, len(t.pages))
	var walk func(siblings []*Page)
	walk = func(siblings []*Page) {
		ordered := make([]*Page, len(siblings))
		copy(ordered, siblings)
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Position < ordered[j].Position
		})
		for _, p := range ordered {
			out = append(out, p)
			walk(p.Children)
		}
	}
	walk(t.roots)
	return out
}
