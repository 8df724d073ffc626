package gateway

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// Filter is an equality condition column = value.
type Filter struct {
	Column string
	Value  string
}

// Order sorts the result by one column.
type Order struct {
	Column    string
	Ascending bool
}

// Query narrows a Select. The zero Query selects every visible row in
// backend order.
type Query struct {
	Filters []Filter
	Order   *Order
	Limit   int
}

// Where returns a Query with a single equality filter.
func Where(column, value string) Query {
	return Query{Filters: []Filter{{Column: column, Value: value}}}
}

// OrderBy returns a copy of q sorted by column.
func (q Query) OrderBy(column string, ascending bool) Query {
	q.Order = &Order{Column: column, Ascending: ascending}
	return q
}

// WithLimit returns a copy of q capped at n rows.
func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ValidIdentifier reports whether s is safe to use as a column name.
func ValidIdentifier(s string) bool {
	return identRe.MatchString(s)
}

// Validate checks table and column names in q.
func (q Query) Validate(table string) error {
	if !KnownTable(table) {
		return fmt.Errorf("unknown table %q", table)
	}
	for _, f := range q.Filters {
		if !ValidIdentifier(f.Column) {
			return fmt.Errorf("invalid filter column %q", f.Column)
		}
	}
	if q.Order != nil && !ValidIdentifier(q.Order.Column) {
		return fmt.Errorf("invalid order column %q", q.Order.Column)
	}
	if q.Limit < 0 {
		return fmt.Errorf("invalid limit %d", q.Limit)
	}
	return nil
}

// Columns converts an insert payload (struct or map) into column → value
// using its JSON encoding.
func Columns(values any) (map[string]any, error) {
	b, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("encode values: %w", err)
	}
	cols := map[string]any{}
	if err := json.Unmarshal(b, &cols); err != nil {
		return nil, fmt.Errorf("values must encode to a JSON object: %w", err)
	}
	for c := range cols {
		if !ValidIdentifier(c) {
			return nil, fmt.Errorf("invalid column %q", c)
		}
	}
	return cols, nil
}

// Decode copies src into dst through JSON. A nil dst is a no-op.
func Decode(src any, dst any) error {
	if dst == nil {
		return nil
	}
	b, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}
