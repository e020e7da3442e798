package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"persistkit/internal/entity"
	"persistkit/internal/query"
	"persistkit/internal/schema"
)

type item struct {
	entity.Versioned
	ID   int64
	Name string
}

func (i *item) SchemaName() string { return "Item" }
func (i *item) Values() []any      { return []any{i.ID, i.Name} }
func (i *item) Pointers() []any    { return []any{&i.ID, &i.Name} }

func itemDescriptor(t *testing.T, soft, expiry bool) *schema.Descriptor {
	t.Helper()
	b := schema.Define("Item").Table("Items")
	b.Column("Id", schema.TypeInt64).PrimaryKey()
	b.Column("Name", schema.TypeText).NotNull()
	if soft {
		b.SoftDelete()
	}
	if expiry {
		b.Expiry()
	}
	d, err := b.Build()
	require.NoError(t, err)
	return d
}

var testClock = func() time.Time {
	return time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
}

func TestBuilder_Insert(t *testing.T) {
	b := NewBuilder(itemDescriptor(t, false, false), schema.SQLite{}, WithClock(testClock))

	cmd, err := b.Insert(&item{ID: 7, Name: "anvil"})
	require.NoError(t, err)

	assert.Equal(t, KindInsert, cmd.Kind)
	assert.Equal(t,
		"INSERT INTO Items (Id, Name, Version, LastWriteTime) VALUES (@Id, @Name, @Version, @LastWriteTime)",
		cmd.SQL)
	assert.Equal(t, query.Params{
		{Name: "Id", Value: int64(7)},
		{Name: "Name", Value: "anvil"},
		{Name: "Version", Value: int64(1)},
		{Name: "LastWriteTime", Value: testClock()},
	}, cmd.Params)
	assert.Equal(t, entity.Key{int64(7)}, cmd.Key)
	assert.Equal(t, StateBuilding, cmd.State())
}

func TestBuilder_UpdateCarriesExpectedVersion(t *testing.T) {
	b := NewBuilder(itemDescriptor(t, false, false), schema.SQLite{}, WithClock(testClock))

	cmd, err := b.Update(&item{ID: 7, Name: "hammer"}, 3)
	require.NoError(t, err)

	assert.Equal(t, KindUpdate, cmd.Kind)
	assert.Contains(t, cmd.SQL, "AND (Version = @expectedVersion)")
	assert.Equal(t, int64(3), cmd.ExpectedVersion)
	assert.Equal(t, query.Param{Name: "expectedVersion", Value: int64(3)},
		cmd.Params[len(cmd.Params)-1])
}

func TestBuilder_DeleteHardVsSoft(t *testing.T) {
	hard := NewBuilder(itemDescriptor(t, false, false), schema.SQLite{}, WithClock(testClock))
	cmd, err := hard.Delete(entity.Key{int64(7)}, 2)
	require.NoError(t, err)
	assert.Equal(t,
		"DELETE FROM Items WHERE (Id = @Id) AND (Version = @expectedVersion)", cmd.SQL)
	assert.Equal(t, query.Params{
		{Name: "Id", Value: int64(7)},
		{Name: "expectedVersion", Value: int64(2)},
	}, cmd.Params)

	soft := NewBuilder(itemDescriptor(t, true, false), schema.SQLite{}, WithClock(testClock))
	cmd, err = soft.Delete(entity.Key{int64(7)}, 2)
	require.NoError(t, err)
	assert.Contains(t, cmd.SQL, "UPDATE Items SET IsDeleted = 1")
	assert.Contains(t, cmd.SQL, "AND (IsDeleted = 0)")
}

func TestBuilder_SelectByKeyFilters(t *testing.T) {
	b := NewBuilder(itemDescriptor(t, true, true), schema.SQLite{}, WithClock(testClock))

	cmd, err := b.SelectByKey(entity.Key{int64(7)}, query.SelectOptions{Now: testClock})
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT Id, Name, Version, LastWriteTime, AbsoluteExpiration FROM Items WHERE (Id = @Id)"+
			" AND (IsDeleted = 0) AND (AbsoluteExpiration IS NULL OR AbsoluteExpiration > @now)",
		cmd.SQL)

	cmd, err = b.SelectByKey(entity.Key{int64(7)}, query.SelectOptions{
		IncludeDeleted: true,
		IncludeExpired: true,
	})
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT Id, Name, Version, LastWriteTime, AbsoluteExpiration FROM Items WHERE (Id = @Id)",
		cmd.SQL)
}

func TestBuilder_CurrentVersionIgnoresFilters(t *testing.T) {
	b := NewBuilder(itemDescriptor(t, true, true), schema.SQLite{})

	cmd, err := b.CurrentVersion(entity.Key{int64(7)})
	require.NoError(t, err)
	assert.Equal(t, "SELECT Version FROM Items WHERE (Id = @Id)", cmd.SQL)
}

func TestBuilder_ExpiryParam(t *testing.T) {
	b := NewBuilder(itemDescriptor(t, false, true), schema.SQLite{}, WithClock(testClock))

	at := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	e := &item{ID: 1, Name: "session"}
	e.ExpiresAt = &at

	cmd, err := b.Insert(e)
	require.NoError(t, err)
	assert.Equal(t, query.Param{Name: "AbsoluteExpiration", Value: at},
		cmd.Params[len(cmd.Params)-1])

	cmd, err = b.Insert(&item{ID: 2, Name: "eternal"})
	require.NoError(t, err)
	assert.Equal(t, query.Param{Name: "AbsoluteExpiration", Value: nil},
		cmd.Params[len(cmd.Params)-1])
}

func TestBuilder_KeyArityMismatch(t *testing.T) {
	b := NewBuilder(itemDescriptor(t, false, false), schema.SQLite{})

	_, err := b.Delete(entity.Key{int64(1), "extra"}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key values")
}

func TestCommand_StateMachine(t *testing.T) {
	b := NewBuilder(itemDescriptor(t, false, false), schema.SQLite{})
	cmd, err := b.Insert(&item{ID: 1, Name: "x"})
	require.NoError(t, err)

	require.NoError(t, cmd.Begin())
	assert.Equal(t, StateExecuting, cmd.State())
	assert.Error(t, cmd.Begin()) // begins at most once

	require.NoError(t, cmd.Finish(StateCommitted))
	assert.Equal(t, StateCommitted, cmd.State())
	assert.Error(t, cmd.Finish(StateFaulted)) // terminal states are final
}

func TestCommand_FinishRequiresTerminalState(t *testing.T) {
	b := NewBuilder(itemDescriptor(t, false, false), schema.SQLite{})
	cmd, err := b.Insert(&item{ID: 1, Name: "x"})
	require.NoError(t, err)

	require.NoError(t, cmd.Begin())
	assert.Error(t, cmd.Finish(StateBuilding))
	assert.Error(t, cmd.Finish(StateExecuting))
}
