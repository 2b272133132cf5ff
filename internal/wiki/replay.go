package wiki

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/forgeport/forgeport/internal/dump"
)

const (
	// IndexFile is the fixed name of the generated index artifact.
	IndexFile = "_Sidebar.md"

	// FallbackEmail is the synthetic author email used when none is known.
	FallbackEmail = "none@localhost"

	// DefaultProjectTitle heads the index artifact unless overridden.
	DefaultProjectTitle = "Wiki"
)

// Version is one historical revision of a wiki page, enriched with its
// resolved page, author, content blob id and parsed timestamps.
type Version struct {
	Row dump.Row

	Page   *Page
	User   *dump.User
	Number int    // monotonic per page, starting at 1
	BlobID string // may be empty when the blob record carries no id

	Comment   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Versions enriches every wiki_page_versions row in the snapshot. All
// references are required: a version without a blob record, an unknown
// page or an unknown author aborts enrichment, since replay assumes a
// closed reference graph.
func Versions(snap *dump.Snapshot, ix *dump.Index, tree *Tree, users dump.Directory) ([]*Version, error) {
	rows := snap.Rows(TableVersions)
	versions := make([]*Version, 0, len(rows))

	for _, row := range rows {
		blob, err := ix.Find(TableBlobs, row["id"])
		if err != nil {
			return nil, fmt.Errorf("wiki: version %v: blob: %w", row["id"], err)
		}
		page, ok := tree.Page(row["wiki_page_id"])
		if !ok {
			return nil, fmt.Errorf("wiki: version %v: %w: no page %v",
				row["id"], dump.ErrMissingReference, row["wiki_page_id"])
		}
		user, err := users.Find(row.String("user_id"))
		if err != nil {
			return nil, fmt.Errorf("wiki: version %v: %w", row["id"], err)
		}
		created, err := row.Time("created_at")
		if err != nil {
			return nil, fmt.Errorf("wiki: version %v: %w", row["id"], err)
		}
		updated, err := row.Time("updated_at")
		if err != nil {
			return nil, fmt.Errorf("wiki: version %v: %w", row["id"], err)
		}

		versions = append(versions, &Version{
			Row:       row,
			Page:      page,
			User:      user,
			Number:    row.Int("version"),
			BlobID:    blob.String("blob_id"),
			Comment:   row.String("change_comment"),
			CreatedAt: created,
			UpdatedAt: updated,
		})
	}

	return versions, nil
}

// ReplayEvent is one generated unit of output: a rendered, time-stamped
// change destined for a version-control commit.
type ReplayEvent struct {
	// Name identifies the event for humans: "<page title>:<version>".
	Name string

	// Files maps output file path to rendered content: the page body plus
	// the regenerated index artifact.
	Files map[string]string

	AuthorName  string
	AuthorEmail string
	Date        time.Time

	// Message is the version's change comment, possibly empty.
	Message string
}

// Options configure replay rendering.
type Options struct {
	// ProjectTitle heads the generated index artifact. Defaults to
	// DefaultProjectTitle.
	ProjectTitle string

	// Body, when set, supplies the page body for a version (for example
	// content fetched from the source API). Returning false falls back to
	// the deterministic placeholder rendering.
	Body func(*Version) (string, bool)
}

// Replay is the chronological replay generator: a lazy, one-shot iterator
// over every version of every page, in strictly non-decreasing update
// order. Each event must be consumed before the next is produced; there
// is no random access and the sequence cannot be restarted.
type Replay struct {
	versions []*Version
	order    []*Page
	title    string
	body     func(*Version) (string, bool)
	pos      int
	ev       ReplayEvent
}

// NewReplay merges the enriched versions with the presentation order from
// the tree traversal. The sort is stable: versions with equal update
// times keep their original relative order.
func NewReplay(versions []*Version, order []*Page, opts Options) *Replay {
	sorted := make([]*Version, len(versions))
	copy(sorted, versions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt.Before(sorted[j].UpdatedAt)
	})

	title := opts.ProjectTitle
	if title == "" {
		title = DefaultProjectTitle
	}

	return &Replay{
		versions: sorted,
		order:    order,
		title:    title,
		body:     opts.Body,
	}
}

// Next produces the next replay event. It returns false when the history
// is exhausted.
func (r *Replay) Next() bool {
	if r.pos >= len(r.versions) {
		return false
	}
	v := r.versions[r.pos]
	r.pos++

	now := v.UpdatedAt

	// The set of pages visible at this moment changes over time, so it is
	// recomputed for every version rather than cached.
	active := make([]*Page, 0, len(r.order))
	for _, p := range r.order {
		if p.Status == StatusActive && !p.CreatedAt.After(now) {
			active = append(active, p)
		}
	}

	body := ""
	ok := false
	if r.body != nil {
		body, ok = r.body(v)
	}
	if !ok {
		body = renderBody(v)
	}

	email := v.User.Email
	if email == "" {
		email = FallbackEmail
	}

	files := map[string]string{
		IndexFile:            renderIndex(active, r.title),
		v.Page.Title + ".md": body,
	}

	r.ev = ReplayEvent{
		Name:        v.Page.Title + ":" + strconv.Itoa(v.Number),
		Files:       files,
		AuthorName:  v.User.DisplayName(),
		AuthorEmail: email,
		Date:        now,
		Message:     v.Comment,
	}
	return true
}

// Event returns the event produced by the last successful Next.
func (r *Replay) Event() ReplayEvent {
	return r.ev
}

// renderIndex renders the point-in-time index artifact: a fixed header
// followed by one link line per active page, indented two spaces per
// depth level.
func renderIndex(pages []*Page, title string) string {
	var b strings.Builder
	b.WriteString("**" + title + "**\n")
	for _, p := range pages {
		b.WriteString(strings.Repeat("  ", p.Level))
		b.WriteString("* [[" + p.Title + "]]\n")
	}
	return b.String()
}

// renderBody renders the deterministic placeholder body for a version.
// The export carries no page contents; real bodies come through
// Options.Body when the source API is available.
func renderBody(v *Version) string {
	return fmt.Sprintf(`
# %s

This is revision %d by %s at %s.

## Placeholder page
`, v.Page.Title, v.Number, v.User.DisplayName(), v.UpdatedAt.Format(time.RFC3339))
}
