package query

import (
	"fmt"
	"strings"
	"time"

	"persistkit/internal/schema"
)

// SelectOptions shape a translated SELECT: ordering, pagination, and
// whether soft-deleted or expired rows are visible.
type SelectOptions struct {
	Ordering       *Ordering
	Limit          int
	Offset         int
	IncludeDeleted bool
	IncludeExpired bool

	// Now supplies the expiry cutoff; defaults to time.Now. Injected so
	// generated SQL and parameters are reproducible under test.
	Now func() time.Time
}

// Select composes a full SELECT statement: column list, WHERE (business
// predicate, then soft-delete filter, then expiry filter), ORDER BY, and
// LIMIT/OFFSET, in that fixed clause order.
func (t *Translator) Select(pred Expr, opts SelectOptions) (string, Params, error) {
	where, params, err := t.Predicate(pred)
	if err != nil {
		return "", nil, err
	}

	conjuncts := make([]string, 0, 3)
	if where != "" {
		conjuncts = append(conjuncts, where)
	}
	if t.desc.SoftDelete && !opts.IncludeDeleted {
		conjuncts = append(conjuncts,
			fmt.Sprintf("(%s = %s)", schema.SoftDeleteColumn, t.dia.BoolLiteral(false)))
	}
	if t.desc.Expiry && !opts.IncludeExpired {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		name := fmt.Sprintf("p%d", len(params))
		params = append(params, Param{Name: name, Value: now().UTC()})
		conjuncts = append(conjuncts,
			fmt.Sprintf("(%s IS NULL OR %s > @%s)", schema.ExpiryColumn, schema.ExpiryColumn, name))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s",
		strings.Join(t.desc.SelectColumns(), ", "), t.desc.Table)
	if len(conjuncts) > 0 {
		b.WriteString(" WHERE " + strings.Join(conjuncts, " AND "))
	}

	orderBy, err := t.OrderBy(opts.Ordering)
	if err != nil {
		return "", nil, err
	}
	if orderBy != "" {
		b.WriteString(" " + orderBy)
	}

	if opts.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", opts.Limit)
	}
	if opts.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", opts.Offset)
	}

	return b.String(), params, nil
}

// Count composes a COUNT query over the same filter semantics as Select.
func (t *Translator) Count(pred Expr, opts SelectOptions) (string, Params, error) {
	sql, params, err := t.Select(pred, SelectOptions{
		IncludeDeleted: opts.IncludeDeleted,
		IncludeExpired: opts.IncludeExpired,
		Now:            opts.Now,
	})
	if err != nil {
		return "", nil, err
	}
	cols := strings.Join(t.desc.SelectColumns(), ", ")
	return strings.Replace(sql, "SELECT "+cols, "SELECT COUNT(*)", 1), params, nil
}
