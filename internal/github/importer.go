package github

import (
	"context"
	"fmt"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"

	"github.com/forgeport/forgeport/internal/dump"
	"github.com/forgeport/forgeport/internal/logger"
)

// Snapshot tables consumed by the importer.
const (
	TableMilestones = "milestones"
	TableTickets    = "tickets"
	TableStatuses   = "ticket_status"
	TableComments   = "ticket_comments"
)

// commentTimeLayout formats the timestamp prefixed to rebuilt comments.
const commentTimeLayout = "2006-01-02 15:04"

// DefaultStatusMap maps source ticket status names to GitHub issue
// states. Unknown statuses fall back to "open".
func DefaultStatusMap() map[string]string {
	return map[string]string{
		"New":                 "open",
		"Accepted":            "open",
		"Test":                "open",
		"Invalid":             "closed",
		"Fixed":               "closed",
		"Demo":                "closed",
		"Review / Estimation": "open",
	}
}

// idString renders a row id the way the dump layer renders values, so
// integral JSON numbers come out without a decimal point.
func idString(id any) string {
	row := dump.Row{"id": id}
	return row.String("id")
}

// TitleKey renders the "[#id]" prefix that links an imported GitHub
// object back to its source row.
func TitleKey(id any) string {
	return fmt.Sprintf("[#%s]", idString(id))
}

// ImportTitle renders the full title of an imported object.
func ImportTitle(id any, title string) string {
	return fmt.Sprintf("%s - %s", TitleKey(id), title)
}

// CommentBody renders a rebuilt issue comment with its original
// creation time prefixed.
func CommentBody(createdAt time.Time, body string) string {
	return fmt.Sprintf("(%s) - %s", createdAt.Format(commentTimeLayout), body)
}

// Milestone is a source milestone prepared for import.
type Milestone struct {
	ID          any
	Key         string
	Title       string
	Description string
}

// Ticket is a source ticket prepared for import.
type Ticket struct {
	ID          any
	Key         string
	Title       string
	Description string
	MilestoneID any
	StatusID    any
	AssigneeID  string
}

// Comment is a source ticket comment prepared for import.
type Comment struct {
	TicketID  any
	CreatedAt time.Time
	Body      string
}

// CollectMilestones reads the milestones table into import order.
func CollectMilestones(snap *dump.Snapshot) []Milestone {
	rows := snap.Rows(TableMilestones)
	out := make([]Milestone, 0, len(rows))
	for _, row := range rows {
		out = append(out, Milestone{
			ID:          row["id"],
			Key:         TitleKey(row["id"]),
			Title:       ImportTitle(row["id"], row.String("title")),
			Description: row.String("description"),
		})
	}
	return out
}

// CollectTickets reads the tickets table into import order. Tickets are
// keyed by their display number, not the internal row id.
func CollectTickets(snap *dump.Snapshot) []Ticket {
	rows := snap.Rows(TableTickets)
	out := make([]Ticket, 0, len(rows))
	for _, row := range rows {
		desc := row.String("description")
		if desc == "" {
			desc = "(no description)"
		}
		out = append(out, Ticket{
			ID:          row["id"],
			Key:         TitleKey(row["number"]),
			Title:       ImportTitle(row["number"], row.String("summary")),
			Description: desc,
			MilestoneID: row["milestone_id"],
			StatusID:    row["ticket_status_id"],
			AssigneeID:  row.String("assigned_to_id"),
		})
	}
	return out
}

// CollectComments reads ticket comments, dropping empty bodies (status
// changes export as comment rows with a null comment). Rows with an
// unparsable created_on are dropped with a warning.
func CollectComments(snap *dump.Snapshot) []Comment {
	rows := snap.Rows(TableComments)
	out := make([]Comment, 0, len(rows))
	for _, row := range rows {
		body := row.String("comment")
		if body == "" {
			continue
		}
		created, err := row.Time("created_on")
		if err != nil {
			logger.Warn("skipping comment on ticket %v: %v", row["ticket_id"], err)
			continue
		}
		out = append(out, Comment{
			TicketID:  row["ticket_id"],
			CreatedAt: created,
			Body:      body,
		})
	}
	return out
}

// StatusNames reads the ticket status table into an id -> name map.
func StatusNames(snap *dump.Snapshot) map[string]string {
	out := make(map[string]string)
	for _, row := range snap.Rows(TableStatuses) {
		out[row.String("id")] = row.String("name")
	}
	return out
}

// IssueState resolves a status name to "open" or "closed" using the
// given mapping, defaulting to "open" for unmapped names.
func IssueState(name string, statuses map[string]string) string {
	if state, ok := statuses[name]; ok {
		return state
	}
	return "open"
}

// Importer synchronises snapshot tickets and milestones into a GitHub
// repository.
type Importer struct {
	client *Client

	// Statuses maps status names to issue states; nil means
	// DefaultStatusMap.
	Statuses map[string]string

	// Logins maps source user ids to GitHub logins for issue assignment.
	Logins map[string]string
}

// NewImporter creates an importer writing through client.
func NewImporter(client *Client) *Importer {
	return &Importer{
		client:   client,
		Statuses: DefaultStatusMap(),
	}
}

// Import pushes milestones, tickets and comments from the snapshot into
// owner/repo. Objects whose "[#id]" key already exists are updated in
// place; comments are wiped and rebuilt since the API offers no reliable
// way to match them up.
func (im *Importer) Import(ctx context.Context, owner, repo string, snap *dump.Snapshot) error {
	milestones := CollectMilestones(snap)
	tickets := CollectTickets(snap)
	comments := CollectComments(snap)
	statusNames := StatusNames(snap)

	milestoneNums, err := im.syncMilestones(ctx, owner, repo, milestones)
	if err != nil {
		return err
	}

	existing, err := im.listIssues(ctx, owner, repo)
	if err != nil {
		return err
	}

	for _, ticket := range tickets {
		if err := im.syncTicket(ctx, owner, repo, ticket, existing, milestoneNums, statusNames, comments); err != nil {
			return err
		}
	}
	return nil
}

// syncMilestones creates or updates one GitHub milestone per source
// milestone and returns source milestone id -> GitHub milestone number.
func (im *Importer) syncMilestones(ctx context.Context, owner, repo string, milestones []Milestone) (map[string]int, error) {
	ghc := im.client.GitHub()

	existing, _, err := ghc.Issues.ListMilestones(ctx, owner, repo, &gh.MilestoneListOptions{
		State:       "all",
		ListOptions: gh.ListOptions{PerPage: 100},
	})
	if err != nil {
		return nil, wrapError(err, "list milestones")
	}

	nums := make(map[string]int, len(milestones))
	for _, m := range milestones {
		found := findByKey(m.Key, existing, func(gm *gh.Milestone) string { return gm.GetTitle() })
		patch := &gh.Milestone{
			Title:       gh.Ptr(m.Title),
			Description: gh.Ptr(m.Description),
		}
		if found == nil {
			logger.Info("creating milestone %s", m.Title)
			created, _, err := ghc.Issues.CreateMilestone(ctx, owner, repo, patch)
			if err != nil {
				return nil, wrapError(err, "create milestone")
			}
			found = created
		} else {
			logger.Info("updating milestone %s", m.Title)
			updated, _, err := ghc.Issues.EditMilestone(ctx, owner, repo, found.GetNumber(), patch)
			if err != nil {
				return nil, wrapError(err, "edit milestone")
			}
			found = updated
		}
		nums[idString(m.ID)] = found.GetNumber()
	}
	return nums, nil
}

// listIssues fetches all issues in the repository, both states.
func (im *Importer) listIssues(ctx context.Context, owner, repo string) ([]*gh.Issue, error) {
	ghc := im.client.GitHub()

	var all []*gh.Issue
	opts := &gh.IssueListByRepoOptions{
		State:       "all",
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	for {
		issues, resp, err := ghc.Issues.ListByRepo(ctx, owner, repo, opts)
		if err != nil {
			return nil, wrapError(err, "list issues")
		}
		all = append(all, issues...)
		if resp.NextPage == 0 {
			break
		}
		opts.ListOptions.Page = resp.NextPage
	}
	return all, nil
}

func (im *Importer) syncTicket(
	ctx context.Context, owner, repo string, ticket Ticket,
	existing []*gh.Issue, milestoneNums map[string]int,
	statusNames map[string]string, comments []Comment,
) error {
	ghc := im.client.GitHub()

	issue := findByKey(ticket.Key, existing, func(is *gh.Issue) string { return is.GetTitle() })
	if issue == nil {
		logger.Info("creating issue %s", ticket.Title)
		created, _, err := ghc.Issues.Create(ctx, owner, repo, &gh.IssueRequest{
			Title: gh.Ptr(ticket.Title),
			Body:  gh.Ptr(ticket.Description),
		})
		if err != nil {
			return wrapError(err, "create issue")
		}
		issue = created
	} else {
		logger.Info("updating issue %s", ticket.Title)
	}

	req := &gh.IssueRequest{
		Title: gh.Ptr(ticket.Title),
		Body:  gh.Ptr(ticket.Description),
	}

	if num, ok := milestoneNums[idString(ticket.MilestoneID)]; ok {
		req.Milestone = gh.Ptr(num)
	}

	name := statusNames[idString(ticket.StatusID)]
	req.State = gh.Ptr(IssueState(name, im.statuses()))

	if login, ok := im.Logins[ticket.AssigneeID]; ok {
		req.Assignee = gh.Ptr(login)
	}

	if _, _, err := ghc.Issues.Edit(ctx, owner, repo, issue.GetNumber(), req); err != nil {
		return wrapError(err, "edit issue")
	}

	return im.rebuildComments(ctx, owner, repo, issue.GetNumber(), ticket, comments)
}

// rebuildComments deletes every comment on the issue and recreates them
// from the source rows.
func (im *Importer) rebuildComments(ctx context.Context, owner, repo string, number int, ticket Ticket, comments []Comment) error {
	ghc := im.client.GitHub()

	existing, _, err := ghc.Issues.ListComments(ctx, owner, repo, number, &gh.IssueListCommentsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	})
	if err != nil {
		return wrapError(err, "list comments")
	}
	for _, c := range existing {
		if _, err := ghc.Issues.DeleteComment(ctx, owner, repo, c.GetID()); err != nil {
			return wrapError(err, "delete comment")
		}
	}

	ticketID := idString(ticket.ID)
	for _, c := range comments {
		if idString(c.TicketID) != ticketID {
			continue
		}
		_, _, err := ghc.Issues.CreateComment(ctx, owner, repo, number, &gh.IssueComment{
			Body: gh.Ptr(CommentBody(c.CreatedAt, c.Body)),
		})
		if err != nil {
			return wrapError(err, "create comment")
		}
	}
	return nil
}

func (im *Importer) statuses() map[string]string {
	if im.Statuses != nil {
		return im.Statuses
	}
	return DefaultStatusMap()
}

// findByKey returns the first item whose title starts with key.
func findByKey[T any](key string, items []T, title func(T) string) T {
	var zero T
	for _, item := range items {
		if strings.HasPrefix(title(item), key) {
			return item
		}
	}
	return zero
}
