package dump

import (
	"fmt"
	"sort"
	"strings"
)

// User is one entry of the user directory: the people referenced anywhere
// in the export. Name and Email are optional; they are filled in from
// configuration or from the source REST API before conversion runs.
type User struct {
	ID    string
	Name  string
	Email string

	// Tables lists the snapshot tables whose rows reference this user id,
	// sorted. Useful when deciding which identities are worth resolving.
	Tables []string
}

// DisplayName returns the user's name, falling back to the raw id when no
// name is known.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.ID
}

// Directory is the user index collaborator: a mapping from user id to its
// User record. The wiki tree builder fails hard on ids absent from the
// directory, so it must be fully populated before the core pipeline runs.
type Directory map[string]*User

// ScrapeUsers walks every non-private snapshot table and collects a stub
// User for each distinct non-empty `user_id` value, recording which tables
// referenced it. Seed entries carry known names and emails; scraping never
// overwrites them.
func ScrapeUsers(snap *Snapshot, seed []User) Directory {
	dir := make(Directory)
	for i := range seed {
		u := seed[i]
		dir[u.ID] = &u
	}

	for _, table := range snap.Tables() {
		if strings.HasPrefix(table, privateMarker) {
			continue
		}
		for _, row := range snap.Rows(table) {
			if _, ok := row["user_id"]; !ok {
				continue
			}
			id := row.String("user_id")
			if id == "" {
				continue
			}
			u, ok := dir[id]
			if !ok {
				u = &User{ID: id}
				dir[id] = u
			}
			u.addTable(table)
		}
	}

	return dir
}

// Find returns the user for id, failing hard when the id is unknown.
func (d Directory) Find(id string) (*User, error) {
	u, ok := d[id]
	if !ok {
		return nil, fmt.Errorf("%w: no user %q in directory", ErrMissingReference, id)
	}
	return u, nil
}

// IDs returns the directory's user ids, sorted.
func (d Directory) IDs() []string {
	ids := make([]string, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (u *User) addTable(table string) {
	i := sort.SearchStrings(u.Tables, table)
	if i < len(u.Tables) && u.Tables[i] == table {
		return
	}
	u.Tables = append(u.Tables, "")
	copy(u.Tables[i+1:], u.Tables[i:])
	u.Tables[i] = table
}
