// Package repository is the typed facade over the persistence engine. A
// Repository binds one registered entity type to a store and a retryer and
// exposes version-checked CRUD, filtered reads, batch writes, and the audit
// trail. Retries are transport-level only; version interpretation happens
// exactly once per call, after the write settles.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"persistkit/internal/command"
	"persistkit/internal/entity"
	"persistkit/internal/query"
	"persistkit/internal/resilience"
	"persistkit/internal/schema"
	"persistkit/internal/storage"
	"persistkit/internal/telemetry"
)

const defaultChunkSize = 100

// Repository drives one entity type. It is safe for concurrent use.
type Repository[T entity.Entity] struct {
	store *storage.Store
	desc  *schema.Descriptor
	build *command.Builder
	retry *resilience.Retryer
	hub   *telemetry.Hub
	newT  func() T
	now   func() time.Time
	chunk int
}

type settings struct {
	registry *schema.Registry
	hub      *telemetry.Hub
	now      func() time.Time
	chunk    int
}

// Option configures a Repository.
type Option func(*settings)

// WithRegistry reads descriptors from a registry other than schema.Default.
func WithRegistry(reg *schema.Registry) Option {
	return func(s *settings) { s.registry = reg }
}

// WithHub attaches an observability hub for command outcomes.
func WithHub(h *telemetry.Hub) Option {
	return func(s *settings) { s.hub = h }
}

// WithClock injects the timestamp source, for reproducible tests.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithChunkSize sets the row count per multi-row INSERT in BulkInsert.
func WithChunkSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.chunk = n
		}
	}
}

// New binds a repository to the entity type produced by newT. The type must
// already be registered; its descriptor drives every generated statement.
func New[T entity.Entity](store *storage.Store, retry *resilience.Retryer, newT func() T, opts ...Option) (*Repository[T], error) {
	s := settings{registry: schema.Default, now: time.Now, chunk: defaultChunkSize}
	for _, opt := range opts {
		opt(&s)
	}

	name := newT().SchemaName()
	desc, ok := s.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("no descriptor registered for %s", name)
	}

	return &Repository[T]{
		store: store,
		desc:  desc,
		build: command.NewBuilder(desc, store.Dialect(), command.WithClock(s.now)),
		retry: retry,
		hub:   s.hub,
		newT:  newT,
		now:   s.now,
		chunk: s.chunk,
	}, nil
}

// Descriptor returns the mapping the repository operates on.
func (r *Repository[T]) Descriptor() *schema.Descriptor { return r.desc }

// EnsureSchema applies the entity's DDL to the store.
func (r *Repository[T]) EnsureSchema(ctx context.Context) error {
	return r.store.EnsureSchema(ctx, r.desc)
}

// Create inserts the entity at version 1. A primary-key or unique collision
// surfaces as entity.AlreadyExistsError.
func (r *Repository[T]) Create(ctx context.Context, e T) error {
	cmd, err := r.build.Insert(e)
	if err != nil {
		return err
	}
	if err := cmd.Begin(); err != nil {
		return err
	}

	err = r.retry.Do(ctx, "create "+r.desc.Name, func(ctx context.Context) error {
		return r.store.WithTx(ctx, func(tx *storage.Tx) error {
			if _, err := tx.Exec(ctx, cmd.SQL, cmd.Params); err != nil {
				return err
			}
			return r.auditTx(ctx, tx, schema.AuditInsert, cmd.Key, 1)
		})
	})
	if err != nil {
		if resilience.IsKeyViolation(err) {
			err = &entity.AlreadyExistsError{Type: r.desc.Name, Key: cmd.Key}
		}
		r.finish(cmd, command.StateFaulted, err)
		return err
	}

	rec := e.Record()
	rec.Version = 1
	rec.LastWrite = r.lastWriteOf(cmd)
	r.finish(cmd, command.StateCommitted, nil)
	return nil
}

// Update rewrites the entity's mapped columns, guarded by the version the
// entity was read at. On success the entity's record advances to the new
// version. A stale version yields entity.ConflictError; a vanished row
// yields entity.NotFoundError.
func (r *Repository[T]) Update(ctx context.Context, e T) error {
	expected := e.Record().Version
	cmd, err := r.build.Update(e, expected)
	if err != nil {
		return err
	}
	if err := cmd.Begin(); err != nil {
		return err
	}

	affected, err := r.execWrite(ctx, "update", cmd, schema.AuditUpdate, expected+1)
	if err != nil {
		r.finish(cmd, command.StateFaulted, err)
		return err
	}
	if affected == 0 {
		err := r.reCheck(ctx, cmd.Key, expected)
		r.finish(cmd, stateFor(err), err)
		return err
	}

	rec := e.Record()
	rec.Version = expected + 1
	rec.LastWrite = r.lastWriteOf(cmd)
	r.finish(cmd, command.StateCommitted, nil)
	return nil
}

// Delete removes the row for the key, guarded by the expected version.
// Soft-delete capable types keep the row and set the tombstone flag.
func (r *Repository[T]) Delete(ctx context.Context, key entity.Key, expectedVersion int64) error {
	cmd, err := r.build.Delete(key, expectedVersion)
	if err != nil {
		return err
	}
	if err := cmd.Begin(); err != nil {
		return err
	}

	affected, err := r.execWrite(ctx, "delete", cmd, schema.AuditDelete, expectedVersion+1)
	if err != nil {
		r.finish(cmd, command.StateFaulted, err)
		return err
	}
	if affected == 0 {
		err := r.reCheck(ctx, key, expectedVersion)
		r.finish(cmd, stateFor(err), err)
		return err
	}
	r.finish(cmd, command.StateCommitted, nil)
	return nil
}

// Get reads one entity by primary key. Soft-deleted and expired rows read
// as entity.NotFoundError.
func (r *Repository[T]) Get(ctx context.Context, key entity.Key) (T, error) {
	var zero T
	cmd, err := r.build.SelectByKey(key, query.SelectOptions{Now: r.now})
	if err != nil {
		return zero, err
	}

	e := r.newT()
	err = r.retry.Do(ctx, "get "+r.desc.Name, func(ctx context.Context) error {
		row, err := r.store.QueryRow(ctx, cmd.SQL, cmd.Params)
		if err != nil {
			return err
		}
		return r.scanInto(row.Scan, e)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return zero, &entity.NotFoundError{Type: r.desc.Name, Key: key}
	}
	if err != nil {
		return zero, err
	}
	return e, nil
}

// execWrite runs a version-checked write and its audit row in one
// transaction, under the retry policy. A zero affected count commits the
// empty transaction and is reported to the caller for interpretation.
func (r *Repository[T]) execWrite(ctx context.Context, op string, cmd *command.Command, auditOp string, newVersion int64) (int64, error) {
	var affected int64
	err := r.retry.Do(ctx, op+" "+r.desc.Name, func(ctx context.Context) error {
		return r.store.WithTx(ctx, func(tx *storage.Tx) error {
			n, err := tx.Exec(ctx, cmd.SQL, cmd.Params)
			if err != nil {
				return err
			}
			affected = n
			if n == 0 {
				return nil
			}
			return r.auditTx(ctx, tx, auditOp, cmd.Key, newVersion)
		})
	})
	return affected, err
}

// reCheck distinguishes a version conflict from a missing row after a write
// matched nothing. The probe runs outside the write and ignores soft-delete
// and expiry filters; a probe failure still reports a conflict, with the
// current version unknown.
func (r *Repository[T]) reCheck(ctx context.Context, key entity.Key, expected int64) error {
	conflict := func(current int64) error {
		return &entity.ConflictError{Type: r.desc.Name, Key: key, Current: current, Expected: expected}
	}

	probe, err := r.build.CurrentVersion(key)
	if err != nil {
		return conflict(entity.VersionUnknown)
	}
	row, err := r.store.QueryRow(ctx, probe.SQL, probe.Params)
	if err != nil {
		return conflict(entity.VersionUnknown)
	}

	var current int64
	switch err := row.Scan(&current); {
	case err == nil:
		return conflict(current)
	case errors.Is(err, sql.ErrNoRows):
		return &entity.NotFoundError{Type: r.desc.Name, Key: key}
	default:
		return conflict(entity.VersionUnknown)
	}
}

// scanInto fills the entity's mapped fields and version record from one row.
func (r *Repository[T]) scanInto(scan func(...any) error, e T) error {
	rec := e.Record()
	dest := append(e.Pointers(), &rec.Version, &rec.LastWrite)

	var expiry sql.NullTime
	if r.desc.Expiry {
		dest = append(dest, &expiry)
	}
	if err := scan(dest...); err != nil {
		return err
	}
	if r.desc.Expiry {
		rec.ExpiresAt = storage.NullToTimePtr(expiry)
	}
	return nil
}

func (r *Repository[T]) lastWriteOf(cmd *command.Command) time.Time {
	if v, ok := cmd.Params.Map()[schema.LastWriteColumn].(time.Time); ok {
		return v
	}
	return r.now().UTC()
}

func (r *Repository[T]) finish(cmd *command.Command, st command.State, opErr error) {
	_ = cmd.Finish(st)
	ev := telemetry.Event{
		Kind:      telemetry.EventCommandOutcome,
		Operation: cmd.Kind.String() + " " + r.desc.Name,
		Outcome:   st.String(),
	}
	if opErr != nil {
		ev.Err = opErr.Error()
	}
	r.hub.Publish(ev)
}

func stateFor(err error) command.State {
	var conflict *entity.ConflictError
	var notFound *entity.NotFoundError
	switch {
	case errors.As(err, &conflict):
		return command.StateConflictDetected
	case errors.As(err, &notFound):
		return command.StateNotFound
	default:
		return command.StateFaulted
	}
}
