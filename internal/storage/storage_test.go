package storage

import (
	"context"
	"database/sql"
	"reflect"
	"testing"
	"time"

	"persistkit/internal/query"
	"persistkit/internal/schema"
)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestStore opens an in-memory SQLite store for testing
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(ProviderSQLite, ":memory:")
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// assertNoError fails the test if err is not nil
func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// assertEqual fails the test if expected != actual
func assertEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		t.Fatalf("expected %v, got %v", expected, actual)
	}
}

func testDescriptor(t *testing.T) *schema.Descriptor {
	t.Helper()
	b := schema.Define("Widget").Table("Widgets")
	b.Column("Id", schema.TypeInt64).PrimaryKey()
	b.Column("Name", schema.TypeText).NotNull()
	b.Index("IX_Widgets_Name", schema.IndexColumn{Name: "Name"})
	d, err := b.Build()
	assertNoError(t, err)
	return d
}

// ============================================================================
// Binding Tests
// ============================================================================

func TestRewritePositional(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		params   query.Params
		wantSQL  string
		wantArgs []interface{}
	}{
		{
			name:     "single placeholder",
			sql:      "SELECT * FROM t WHERE (Name = @p0)",
			params:   query.Params{{Name: "p0", Value: "x"}},
			wantSQL:  "SELECT * FROM t WHERE (Name = $1)",
			wantArgs: []interface{}{"x"},
		},
		{
			name: "occurrence order",
			sql:  "UPDATE t SET a = @a WHERE (Id = @Id) AND (Version = @expectedVersion)",
			params: query.Params{
				{Name: "Id", Value: int64(7)},
				{Name: "a", Value: "v"},
				{Name: "expectedVersion", Value: int64(2)},
			},
			wantSQL:  "UPDATE t SET a = $1 WHERE (Id = $2) AND (Version = $3)",
			wantArgs: []interface{}{"v", int64(7), int64(2)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSQL, gotArgs, err := rewritePositional(tt.sql, tt.params)
			assertNoError(t, err)
			assertEqual(t, tt.wantSQL, gotSQL)
			assertEqual(t, tt.wantArgs, gotArgs)
		})
	}
}

func TestRewritePositional_MissingValue(t *testing.T) {
	_, _, err := rewritePositional("SELECT * FROM t WHERE (a = @p0)", nil)
	if err == nil {
		t.Fatal("expected error for unbound placeholder")
	}
}

// ============================================================================
// Store Tests
// ============================================================================

func TestOpen_UnknownProvider(t *testing.T) {
	_, err := Open("oracle", "")
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestEnsureSchema_CreatesTableAndIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assertNoError(t, s.EnsureSchema(ctx, testDescriptor(t)))

	exists, err := s.TableExists(ctx, "Widgets")
	assertNoError(t, err)
	assertEqual(t, true, exists)

	exists, err = s.TableExists(ctx, "Gadgets")
	assertNoError(t, err)
	assertEqual(t, false, exists)

	// Idempotent
	assertNoError(t, s.EnsureSchema(ctx, testDescriptor(t)))
}

func TestExecAndQuery_NamedParams(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	d := testDescriptor(t)
	assertNoError(t, s.EnsureSchema(ctx, d))

	now := time.Now().UTC()
	affected, err := s.Exec(ctx,
		d.Templates(s.Dialect()).Insert,
		query.Params{
			{Name: "Id", Value: int64(1)},
			{Name: "Name", Value: "anvil"},
			{Name: "Version", Value: int64(1)},
			{Name: "LastWriteTime", Value: now},
		})
	assertNoError(t, err)
	assertEqual(t, int64(1), affected)

	row, err := s.QueryRow(ctx,
		"SELECT Name, Version FROM Widgets WHERE (Id = @Id)",
		query.Params{{Name: "Id", Value: int64(1)}})
	assertNoError(t, err)

	var name string
	var version int64
	assertNoError(t, row.Scan(&name, &version))
	assertEqual(t, "anvil", name)
	assertEqual(t, int64(1), version)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	d := testDescriptor(t)
	assertNoError(t, s.EnsureSchema(ctx, d))

	insert := d.Templates(s.Dialect()).Insert
	params := query.Params{
		{Name: "Id", Value: int64(1)},
		{Name: "Name", Value: "anvil"},
		{Name: "Version", Value: int64(1)},
		{Name: "LastWriteTime", Value: time.Now().UTC()},
	}

	wantErr := context.Canceled
	err := s.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.Exec(ctx, insert, params); err != nil {
			return err
		}
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}

	row, err := s.QueryRow(ctx, "SELECT COUNT(*) FROM Widgets", nil)
	assertNoError(t, err)
	var count int
	assertNoError(t, row.Scan(&count))
	assertEqual(t, 0, count)
}

func TestNullHelpers(t *testing.T) {
	now := time.Now()

	if got := NullToTimePtr(sql.NullTime{Time: now, Valid: true}); got == nil || !got.Equal(now) {
		t.Fatalf("expected %v, got %v", now, got)
	}
	if got := NullToTimePtr(sql.NullTime{}); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
	assertEqual(t, sql.NullTime{Time: now, Valid: true}, TimePtrToNull(&now))
	assertEqual(t, sql.NullTime{}, TimePtrToNull(nil))
	assertEqual(t, "x", NullToString(sql.NullString{String: "x", Valid: true}))
	assertEqual(t, sql.NullString{String: "x", Valid: true}, StringToNull("x"))
	assertEqual(t, sql.NullString{}, StringToNull(""))
}
