package dump

import (
	"fmt"
	"strconv"
	"time"
)

// Row is a single record decoded from the export: a mapping from declared
// field name to scalar value. JSON decoding yields string, float64, bool
// or nil values.
type Row map[string]any

// String returns the field rendered as a string. Missing and null fields
// render as the empty string; numbers drop a trailing ".0".
func (r Row) String(field string) string {
	switch v := r[field].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Number returns the field as a float64 with an ok flag.
func (r Row) Number(field string) (float64, bool) {
	v, ok := r[field].(float64)
	return v, ok
}

// Int returns the field as an int, or 0 when the field is missing or not
// numeric.
func (r Row) Int(field string) int {
	v, _ := r.Number(field)
	return int(v)
}

// Truthy reports whether the field holds a value that is neither missing,
// null, zero, false nor the empty string. Parent links in the export use
// null and 0 interchangeably for "no parent".
func (r Row) Truthy(field string) bool {
	switch v := r[field].(type) {
	case nil:
		return false
	case string:
		return v != ""
	case float64:
		return v != 0
	case bool:
		return v
	default:
		return true
	}
}

// timeLayouts are the timestamp shapes seen in workspace exports, most
// specific first.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Time parses the field as a timestamp.
func (r Row) Time(field string) (time.Time, error) {
	s, ok := r[field].(string)
	if !ok {
		return time.Time{}, fmt.Errorf("dump: field %q is not a timestamp string", field)
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("dump: field %q: cannot parse timestamp %q", field, s)
}
