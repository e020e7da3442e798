package query

import "strings"

// SortKey is one key of an ordering specification.
type SortKey struct {
	Field string
	Desc  bool
}

// Ordering is a primary sort key plus zero or more secondary keys, in
// declaration order.
type Ordering struct {
	keys []SortKey
}

// OrderBy starts an ordering on a field, ascending.
func OrderBy(field string) *Ordering {
	return &Ordering{keys: []SortKey{{Field: field}}}
}

// OrderByDescending starts an ordering on a field, descending.
func OrderByDescending(field string) *Ordering {
	return &Ordering{keys: []SortKey{{Field: field, Desc: true}}}
}

// ThenBy appends a secondary ascending key.
func (o *Ordering) ThenBy(field string) *Ordering {
	o.keys = append(o.keys, SortKey{Field: field})
	return o
}

// ThenByDescending appends a secondary descending key.
func (o *Ordering) ThenByDescending(field string) *Ordering {
	o.keys = append(o.keys, SortKey{Field: field, Desc: true})
	return o
}

// Keys returns the sort keys in declaration order.
func (o *Ordering) Keys() []SortKey {
	return o.keys
}

// OrderBy translates an ordering specification into an ORDER BY clause in
// declaration order. A nil spec yields an empty string and the caller
// appends no clause.
func (t *Translator) OrderBy(o *Ordering) (string, error) {
	if o == nil || len(o.keys) == 0 {
		return "", nil
	}
	parts := make([]string, len(o.keys))
	for i, k := range o.keys {
		col, err := t.column(k.Field)
		if err != nil {
			return "", err
		}
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		parts[i] = col + " " + dir
	}
	return "ORDER BY " + strings.Join(parts, ", "), nil
}
