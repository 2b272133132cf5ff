package dump

import (
	"fmt"
	"strings"

	"github.com/forgeport/forgeport/internal/logger"
)

// privateMarker prefixes table names that hold derived, non-source data.
// Such tables are never indexed.
const privateMarker = "_"

// KeyPolicy controls how tables are keyed during indexing.
type KeyPolicy struct {
	// Default is the key field used for any table without an override.
	Default string

	// Overrides maps table names to their key field.
	Overrides map[string]string

	// Exclude lists tables that must not be indexed at all. Exclusion and
	// absence of a usable key are equivalent in effect.
	Exclude []string
}

// DefaultKeyPolicy returns the policy for workspace exports: rows key on
// `id` except the version-to-blob side table, and the merge-request family
// carries no usable key.
func DefaultKeyPolicy() KeyPolicy {
	return KeyPolicy{
		Default: "id",
		Overrides: map[string]string{
			"wiki_page_blobs": "version_id",
		},
		Exclude: []string{
			"merge_requests",
			"merge_request_versions",
			"merge_request_votes",
			"tickets_merge_requests",
			"test_plan_tickets",
		},
	}
}

// Index holds one key→row lookup table per indexed snapshot table. When a
// key value occurs more than once the last-seen row wins; the collision is
// reported as a warning, never an error.
type Index struct {
	tables map[string]map[any]Row
}

// BuildIndex converts every included snapshot table into a keyed map.
// Indexing is idempotent: building twice from the same snapshot yields
// identical maps. A row missing its key field, or keying on a non-scalar
// value, is a hard error.
func BuildIndex(snap *Snapshot, policy KeyPolicy) (*Index, error) {
	excluded := make(map[string]bool, len(policy.Exclude))
	for _, table := range policy.Exclude {
		excluded[table] = true
	}

	ix := &Index{tables: make(map[string]map[any]Row)}
	for _, table := range snap.Tables() {
		if excluded[table] || strings.HasPrefix(table, privateMarker) {
			continue
		}

		key := policy.Default
		if override, ok := policy.Overrides[table]; ok {
			key = override
		}

		rows := snap.Rows(table)
		keyed := make(map[any]Row, len(rows))
		for _, row := range rows {
			value, ok := row[key]
			if !ok {
				return nil, &MissingKeyError{Table: table, Field: key}
			}
			// JSON arrays and objects decode to unhashable Go values.
			switch value.(type) {
			case nil, string, float64, bool:
			default:
				return nil, &InvalidKeyError{Table: table, Field: key, Value: value}
			}
			keyed[value] = row
		}
		if len(keyed) != len(rows) {
			logger.Warn("non unique id in table %q, %d unique of %d rows", table, len(keyed), len(rows))
		}

		ix.tables[table] = keyed
	}

	// Tables declared in the export but holding no rows are still indexed,
	// as empty maps.
	for table := range snap.schemas {
		if excluded[table] || strings.HasPrefix(table, privateMarker) {
			continue
		}
		if _, done := ix.tables[table]; !done {
			ix.tables[table] = make(map[any]Row)
		}
	}

	return ix, nil
}

// Lookup returns the row keyed by value in table, with an ok flag. This is
// the lenient lookup; use Find when the reference is required.
func (ix *Index) Lookup(table string, key any) (Row, bool) {
	rows, ok := ix.tables[table]
	if !ok {
		return nil, false
	}
	row, ok := rows[key]
	return row, ok
}

// Find returns the row keyed by value in table, failing hard when either
// the table or the key is absent.
func (ix *Index) Find(table string, key any) (Row, error) {
	rows, ok := ix.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoTable, table)
	}
	row, ok := rows[key]
	if !ok {
		return nil, fmt.Errorf("%w: table %q has no key %v", ErrMissingReference, table, key)
	}
	return row, nil
}

// Has reports whether a table was indexed.
func (ix *Index) Has(table string) bool {
	_, ok := ix.tables[table]
	return ok
}

// Len returns the number of keys indexed for a table.
func (ix *Index) Len(table string) int {
	return len(ix.tables[table])
}
