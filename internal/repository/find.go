package repository

import (
	"context"
	"database/sql"
	"errors"

	"persistkit/internal/entity"
	"persistkit/internal/query"
)

// Find reads every entity matching the predicate. A nil predicate matches
// everything still visible under the options' soft-delete and expiry
// filters.
func (r *Repository[T]) Find(ctx context.Context, pred query.Expr, opts query.SelectOptions) ([]T, error) {
	if opts.Now == nil {
		opts.Now = r.now
	}
	cmd, err := r.build.Select(pred, opts)
	if err != nil {
		return nil, err
	}

	var out []T
	err = r.retry.Do(ctx, "find "+r.desc.Name, func(ctx context.Context) error {
		rows, err := r.store.Query(ctx, cmd.SQL, cmd.Params)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0] // a retried attempt starts over
		for rows.Next() {
			e := r.newT()
			if err := r.scanInto(rows.Scan, e); err != nil {
				return err
			}
			out = append(out, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FindOne reads the first match under the given ordering. No match is
// entity.NotFoundError.
func (r *Repository[T]) FindOne(ctx context.Context, pred query.Expr, opts query.SelectOptions) (T, error) {
	var zero T
	opts.Limit = 1
	opts.Offset = 0
	matches, err := r.Find(ctx, pred, opts)
	if err != nil {
		return zero, err
	}
	if len(matches) == 0 {
		return zero, &entity.NotFoundError{Type: r.desc.Name}
	}
	return matches[0], nil
}

// Count counts the rows matching the predicate under the options' filters.
func (r *Repository[T]) Count(ctx context.Context, pred query.Expr, opts query.SelectOptions) (int64, error) {
	if opts.Now == nil {
		opts.Now = r.now
	}
	cmd, err := r.build.Count(pred, opts)
	if err != nil {
		return 0, err
	}

	var n int64
	err = r.retry.Do(ctx, "count "+r.desc.Name, func(ctx context.Context) error {
		row, err := r.store.QueryRow(ctx, cmd.SQL, cmd.Params)
		if err != nil {
			return err
		}
		return row.Scan(&n)
	})
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	return n, nil
}
