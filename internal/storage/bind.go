package storage

import (
	"database/sql"
	"fmt"
	"regexp"

	"persistkit/internal/query"
	"persistkit/internal/schema"
)

var placeholderPattern = regexp.MustCompile(`@\w+`)

// bind converts generated SQL with @name placeholders into driver
// arguments. SQLite binds named parameters natively; Postgres does not, so
// placeholders are rewritten to $n positional arguments in occurrence
// order. Generated SQL text stays identical across providers.
func (s *Store) bind(sqlText string, params query.Params) (string, []any, error) {
	if _, ok := s.dialect.(schema.Postgres); ok {
		return rewritePositional(sqlText, params)
	}

	args := make([]any, len(params))
	for i, p := range params {
		args[i] = sql.Named(p.Name, p.Value)
	}
	return sqlText, args, nil
}

func rewritePositional(sqlText string, params query.Params) (string, []any, error) {
	values := params.Map()
	var args []any
	var missing string

	text := placeholderPattern.ReplaceAllStringFunc(sqlText, func(tok string) string {
		name := tok[1:]
		v, ok := values[name]
		if !ok {
			missing = name
			return tok
		}
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	})
	if missing != "" {
		return "", nil, fmt.Errorf("no value bound for placeholder @%s", missing)
	}
	return text, args, nil
}
