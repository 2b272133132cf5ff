package dump

import "io"

// Snapshot is the immutable relational base built from one export file:
// every table's rows in original file order, plus the last schema declared
// for each table. It grows only while Load runs and is never mutated
// afterwards.
type Snapshot struct {
	tables  map[string][]Row
	order   []string
	schemas map[string][]string
}

// Load drives a Scanner over r and accumulates every data row into a new
// Snapshot. Skipped lines have already been logged by the Scanner; the
// first fatal parse error aborts the load.
func Load(r io.Reader) (*Snapshot, error) {
	snap := &Snapshot{
		tables: make(map[string][]Row),
	}

	sc := NewScanner(r)
	for sc.Scan() {
		rec := sc.Record()
		if _, seen := snap.tables[rec.Table]; !seen {
			snap.order = append(snap.order, rec.Table)
		}
		snap.tables[rec.Table] = append(snap.tables[rec.Table], rec.Row)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	snap.schemas = sc.Schemas()
	return snap, nil
}

// Rows returns the rows of a table in file order. Unknown tables yield nil.
func (s *Snapshot) Rows(table string) []Row {
	return s.tables[table]
}

// Tables returns the table names in order of first appearance.
func (s *Snapshot) Tables() []string {
	return s.order
}

// Schema returns the declared field list for a table, or nil.
func (s *Snapshot) Schema(table string) []string {
	return s.schemas[table]
}
