package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"persistkit/internal/command"
	"persistkit/internal/entity"
	"persistkit/internal/query"
	"persistkit/internal/resilience"
	"persistkit/internal/schema"
	"persistkit/internal/storage"
)

// staleWrite aborts a batch transaction when a version-checked statement
// matched no row. The batch rolls back as a whole; the caller re-checks the
// offending key afterwards.
type staleWrite struct {
	key      entity.Key
	expected int64
}

func (s *staleWrite) Error() string {
	return fmt.Sprintf("stale write for key %v at expected version %d", s.key, s.expected)
}

// CreateAll inserts every entity in one transaction. Any failure rolls the
// whole batch back; a key collision names the offending key.
func (r *Repository[T]) CreateAll(ctx context.Context, es []T) error {
	if len(es) == 0 {
		return nil
	}
	cmds := make([]*command.Command, len(es))
	for i, e := range es {
		cmd, err := r.build.Insert(e)
		if err != nil {
			return err
		}
		cmds[i] = cmd
	}

	var failedKey entity.Key
	err := r.retry.Do(ctx, "create batch "+r.desc.Name, func(ctx context.Context) error {
		return r.store.WithTx(ctx, func(tx *storage.Tx) error {
			for _, cmd := range cmds {
				if _, err := tx.Exec(ctx, cmd.SQL, cmd.Params); err != nil {
					failedKey = cmd.Key
					return err
				}
				if err := r.auditTx(ctx, tx, schema.AuditInsert, cmd.Key, 1); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		if resilience.IsKeyViolation(err) {
			return &entity.AlreadyExistsError{Type: r.desc.Name, Key: failedKey}
		}
		return err
	}

	for i, e := range es {
		rec := e.Record()
		rec.Version = 1
		rec.LastWrite = r.lastWriteOf(cmds[i])
	}
	return nil
}

// UpdateAll applies every update in one transaction. A single stale version
// rolls the whole batch back and surfaces as the conflict or not-found error
// for the offending key.
func (r *Repository[T]) UpdateAll(ctx context.Context, es []T) error {
	if len(es) == 0 {
		return nil
	}
	cmds := make([]*command.Command, len(es))
	for i, e := range es {
		cmd, err := r.build.Update(e, e.Record().Version)
		if err != nil {
			return err
		}
		cmds[i] = cmd
	}

	err := r.retry.Do(ctx, "update batch "+r.desc.Name, func(ctx context.Context) error {
		return r.store.WithTx(ctx, func(tx *storage.Tx) error {
			for _, cmd := range cmds {
				n, err := tx.Exec(ctx, cmd.SQL, cmd.Params)
				if err != nil {
					return err
				}
				if n == 0 {
					return &staleWrite{key: cmd.Key, expected: cmd.ExpectedVersion}
				}
				if err := r.auditTx(ctx, tx, schema.AuditUpdate, cmd.Key, cmd.ExpectedVersion+1); err != nil {
					return err
				}
			}
			return nil
		})
	})
	var stale *staleWrite
	if errors.As(err, &stale) {
		return r.reCheck(ctx, stale.key, stale.expected)
	}
	if err != nil {
		return err
	}

	for i, e := range es {
		rec := e.Record()
		rec.Version = cmds[i].ExpectedVersion + 1
		rec.LastWrite = r.lastWriteOf(cmds[i])
	}
	return nil
}

// DeleteAll deletes every key in one transaction, each guarded by its
// expected version. Keys and versions are parallel slices.
func (r *Repository[T]) DeleteAll(ctx context.Context, keys []entity.Key, expectedVersions []int64) error {
	if len(keys) != len(expectedVersions) {
		return fmt.Errorf("%s: %d keys for %d expected versions",
			r.desc.Name, len(keys), len(expectedVersions))
	}
	if len(keys) == 0 {
		return nil
	}
	cmds := make([]*command.Command, len(keys))
	for i, key := range keys {
		cmd, err := r.build.Delete(key, expectedVersions[i])
		if err != nil {
			return err
		}
		cmds[i] = cmd
	}

	err := r.retry.Do(ctx, "delete batch "+r.desc.Name, func(ctx context.Context) error {
		return r.store.WithTx(ctx, func(tx *storage.Tx) error {
			for _, cmd := range cmds {
				n, err := tx.Exec(ctx, cmd.SQL, cmd.Params)
				if err != nil {
					return err
				}
				if n == 0 {
					return &staleWrite{key: cmd.Key, expected: cmd.ExpectedVersion}
				}
				if err := r.auditTx(ctx, tx, schema.AuditDelete, cmd.Key, cmd.ExpectedVersion+1); err != nil {
					return err
				}
			}
			return nil
		})
	})
	var stale *staleWrite
	if errors.As(err, &stale) {
		return r.reCheck(ctx, stale.key, stale.expected)
	}
	return err
}

type bulkChunk struct {
	sql    string
	params query.Params
	keys   []entity.Key
}

// BulkInsert inserts the entities with chunked multi-row INSERT statements,
// all in one transaction. Chunks are staged concurrently and executed in
// order; every row still lands at version 1 with an audit-trail entry.
func (r *Repository[T]) BulkInsert(ctx context.Context, es []T) error {
	if len(es) == 0 {
		return nil
	}
	now := r.now().UTC()

	nchunks := (len(es) + r.chunk - 1) / r.chunk
	chunks := make([]bulkChunk, nchunks)
	g, _ := errgroup.WithContext(ctx)
	for i := 0; i < nchunks; i++ {
		g.Go(func() error {
			lo := i * r.chunk
			hi := lo + r.chunk
			if hi > len(es) {
				hi = len(es)
			}
			c, err := r.stageChunk(es[lo:hi], now)
			if err != nil {
				return err
			}
			chunks[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	err := r.retry.Do(ctx, "bulk insert "+r.desc.Name, func(ctx context.Context) error {
		return r.store.WithTx(ctx, func(tx *storage.Tx) error {
			for _, c := range chunks {
				if _, err := tx.Exec(ctx, c.sql, c.params); err != nil {
					return err
				}
				for _, key := range c.keys {
					if err := r.auditTx(ctx, tx, schema.AuditInsert, key, 1); err != nil {
						return err
					}
				}
			}
			return nil
		})
	})
	if err != nil {
		if resilience.IsKeyViolation(err) {
			return &entity.AlreadyExistsError{Type: r.desc.Name}
		}
		return err
	}

	for _, e := range es {
		rec := e.Record()
		rec.Version = 1
		rec.LastWrite = now
	}
	return nil
}

// stageChunk renders one multi-row INSERT with synthesized placeholders.
func (r *Repository[T]) stageChunk(es []T, now time.Time) (bulkChunk, error) {
	cols := r.desc.ColumnNames()
	cols = append(cols, schema.VersionColumn, schema.LastWriteColumn)
	if r.desc.Expiry {
		cols = append(cols, schema.ExpiryColumn)
	}

	var c bulkChunk
	c.params = make(query.Params, 0, len(es)*len(cols))
	n := 0
	bind := func(v any) string {
		name := fmt.Sprintf("p%d", n)
		n++
		c.params = append(c.params, query.Param{Name: name, Value: v})
		return "@" + name
	}

	rows := make([]string, 0, len(es))
	for _, e := range es {
		values := e.Values()
		if len(values) != len(r.desc.Columns) {
			return bulkChunk{}, fmt.Errorf("%s: %d values for %d mapped columns",
				r.desc.Name, len(values), len(r.desc.Columns))
		}
		var key entity.Key
		ph := make([]string, 0, len(cols))
		for i, col := range r.desc.Columns {
			ph = append(ph, bind(values[i]))
			if col.PrimaryKey {
				key = append(key, values[i])
			}
		}
		ph = append(ph, bind(int64(1)), bind(now))
		if r.desc.Expiry {
			var at any
			if p := e.Record().ExpiresAt; p != nil {
				at = p.UTC()
			}
			ph = append(ph, bind(at))
		}
		rows = append(rows, "("+strings.Join(ph, ", ")+")")
		c.keys = append(c.keys, key)
	}

	c.sql = fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		r.desc.Table, strings.Join(cols, ", "), strings.Join(rows, ", "))
	return c, nil
}

// Purge hard-deletes every expired row. Types without expiry have nothing
// to purge.
func (r *Repository[T]) Purge(ctx context.Context) (int64, error) {
	if !r.desc.Expiry {
		return 0, nil
	}
	sqlText := fmt.Sprintf("DELETE FROM %s WHERE (%s IS NOT NULL) AND (%s <= @now)",
		r.desc.Table, schema.ExpiryColumn, schema.ExpiryColumn)
	params := query.Params{{Name: "now", Value: r.now().UTC()}}

	var n int64
	err := r.retry.Do(ctx, "purge "+r.desc.Name, func(ctx context.Context) error {
		var err error
		n, err = r.store.Exec(ctx, sqlText, params)
		return err
	})
	return n, err
}
