package dump

import (
	"errors"
	"fmt"
)

// Errors shared across the export pipeline.
var (
	// ErrMissingReference indicates an unresolved foreign key during
	// enrichment. Downstream tree and replay logic assume a closed
	// reference graph, so required references fail hard.
	ErrMissingReference = errors.New("dump: unresolved reference")

	// ErrNoTable indicates a lookup against a table the index does not hold.
	ErrNoTable = errors.New("dump: table not indexed")
)

// FieldCountError is the fatal structural error raised when a data row's
// value count does not match the declared schema for its table. It signals
// that the schema and data have drifted, which is not recoverable.
type FieldCountError struct {
	Line   int // 1-based line number in the export file
	Table  string
	Values int // values present on the line
	Fields int // fields declared by the schema
}

func (e *FieldCountError) Error() string {
	return fmt.Sprintf("dump: line #%d: table %q has %d values for %d declared fields",
		e.Line, e.Table, e.Values, e.Fields)
}

// MissingKeyError is raised while indexing when a row lacks the key field
// required by the policy. A keyed map cannot be built without it.
type MissingKeyError struct {
	Table string
	Field string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("dump: table %q: row missing key field %q", e.Table, e.Field)
}

// InvalidKeyError is raised while indexing when a row's key field holds a
// non-scalar value (a nested JSON array or object). Such values cannot
// serve as map keys.
type InvalidKeyError struct {
	Table string
	Field string
	Value any
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("dump: table %q: key field %q holds non-scalar value %v",
		e.Table, e.Field, e.Value)
}
