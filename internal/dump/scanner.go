package dump

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/forgeport/forgeport/internal/logger"
)

const (
	// schemaSep marks a schema declaration line: `<table>:fields, [...]`.
	schemaSep = ":fields, "

	// rowSep marks a data row line: `<table>, [...]`.
	rowSep = ", ["
)

// Record is one classified line of the export: a data row together with
// its provenance. Schema declarations are consumed internally and never
// surface as records.
type Record struct {
	Line  int // 1-based line number
	Raw   string
	Table string
	Row   Row
}

// Scanner reads an export stream line by line and yields one Record per
// data row, preserving input order. It is a single forward pass with no
// lookahead: lines that match neither the schema nor the row syntax, or
// that reference an undeclared table, are logged and skipped, while a
// value count that contradicts the declared schema aborts the scan.
//
// Usage mirrors bufio.Scanner: call Scan until it returns false, then
// check Err.
type Scanner struct {
	src     *bufio.Scanner
	schemas map[string][]string
	line    int
	rec     Record
	err     error
}

// NewScanner creates a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	src := bufio.NewScanner(r)
	src.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &Scanner{
		src:     src,
		schemas: make(map[string][]string),
	}
}

// Scan advances to the next data row. It returns false at end of input or
// on the first fatal error.
func (s *Scanner) Scan() bool {
	if s.err != nil {
		return false
	}

	for s.src.Scan() {
		s.line++
		line := sanitize(s.src.Text(), s.line)
		logger.Debug("line #%d: %s", s.line, line)

		// Schema declaration
		if parts := strings.Split(line, schemaSep); len(parts) > 1 {
			if len(parts) > 2 {
				logger.Error("line #%d: unexpected field separator count in %q", s.line, line)
				continue
			}
			var fields []string
			if err := json.Unmarshal([]byte(parts[1]), &fields); err != nil {
				s.err = fmt.Errorf("dump: line #%d: invalid schema for table %q: %w", s.line, parts[0], err)
				return false
			}
			// Later declarations override earlier ones.
			s.schemas[parts[0]] = fields
			continue
		}

		// Data row
		parts := strings.SplitN(line, rowSep, 2)
		if len(parts) < 2 {
			logger.Error("line #%d: unexpected syntax in %q", s.line, line)
			continue
		}
		table := parts[0]
		fields, ok := s.schemas[table]
		if !ok {
			logger.Error("line #%d: table %q not declared before %q", s.line, table, line)
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, table+", "))
		row, err := zipRow(payload, fields, s.line, table)
		if err != nil {
			s.err = err
			return false
		}

		s.rec = Record{Line: s.line, Raw: line, Table: table, Row: row}
		return true
	}

	s.err = s.src.Err()
	return false
}

// Record returns the record produced by the last successful Scan.
func (s *Scanner) Record() Record {
	return s.rec
}

// Err returns the first fatal error encountered, if any.
func (s *Scanner) Err() error {
	return s.err
}

// Schemas returns the field schemas declared so far, keyed by table.
func (s *Scanner) Schemas() map[string][]string {
	return s.schemas
}

// zipRow parses a JSON array of values and zips it positionally against
// the declared field list. A length mismatch is fatal: it signals the
// schema and data have drifted.
func zipRow(payload string, fields []string, line int, table string) (Row, error) {
	logger.Debug("parsing line #%d as a %s row", line, table)

	var values []any
	if err := json.Unmarshal([]byte(payload), &values); err != nil {
		return nil, fmt.Errorf("dump: line #%d: table %q: invalid row payload: %w", line, table, err)
	}
	if len(values) != len(fields) {
		return nil, &FieldCountError{Line: line, Table: table, Values: len(values), Fields: len(fields)}
	}

	row := make(Row, len(fields))
	for i, field := range fields {
		row[field] = values[i]
	}
	return row, nil
}

// sanitize strips trailing whitespace and drops any character outside the
// printable ASCII set, logging at debug level when that changes the line.
func sanitize(raw string, line int) string {
	trimmed := strings.TrimRight(raw, " \t\r\n\v\f")
	var b strings.Builder
	b.Grow(len(trimmed))
	for _, c := range trimmed {
		if (c >= 0x20 && c <= 0x7e) || c == '\t' || c == '\v' || c == '\f' {
			b.WriteRune(c)
		}
	}
	clean := b.String()
	if clean != trimmed {
		logger.Debug("line #%d: unprintable chars in %q", line, clean)
	}
	return clean
}
