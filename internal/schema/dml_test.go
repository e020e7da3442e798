package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplates_PlainType(t *testing.T) {
	b := Define("Item").Table("Items")
	b.Column("Id", TypeInt64).PrimaryKey()
	b.Column("Name", TypeText).NotNull()
	d, err := b.Build()
	require.NoError(t, err)

	tpl := d.Templates(SQLite{})

	assert.Equal(t,
		"INSERT INTO Items (Id, Name, Version, LastWriteTime) VALUES (@Id, @Name, @Version, @LastWriteTime)",
		tpl.Insert)
	assert.Equal(t,
		"UPDATE Items SET Name = @Name, Version = Version + 1, LastWriteTime = @LastWriteTime "+
			"WHERE (Id = @Id) AND (Version = @expectedVersion)",
		tpl.Update)
	assert.Equal(t,
		"DELETE FROM Items WHERE (Id = @Id) AND (Version = @expectedVersion)",
		tpl.Delete)
	assert.Equal(t,
		"SELECT Id, Name, Version, LastWriteTime FROM Items WHERE (Id = @Id)",
		tpl.SelectByKey)
}

func TestTemplates_SoftDeleteMapsDeleteToUpdate(t *testing.T) {
	b := Define("Doc").Table("Docs")
	b.Column("Id", TypeText).PrimaryKey()
	b.Column("Body", TypeText)
	b.SoftDelete()
	d, err := b.Build()
	require.NoError(t, err)

	tpl := d.Templates(SQLite{})

	assert.Equal(t,
		"UPDATE Docs SET IsDeleted = 1, Version = Version + 1, LastWriteTime = @LastWriteTime "+
			"WHERE (Id = @Id) AND (Version = @expectedVersion) AND (IsDeleted = 0)",
		tpl.Delete)
	assert.Contains(t, tpl.Update, "AND (IsDeleted = 0)")
}

func TestTemplates_CompositeKeyWhereOrder(t *testing.T) {
	b := Define("Membership").Table("Memberships")
	b.Column("GroupId", TypeText).PrimaryKey()
	b.Column("MemberId", TypeText).PrimaryKey()
	b.Column("Role", TypeText)
	d, err := b.Build()
	require.NoError(t, err)

	tpl := d.Templates(SQLite{})
	assert.Equal(t,
		"UPDATE Memberships SET Role = @Role, Version = Version + 1, LastWriteTime = @LastWriteTime "+
			"WHERE (GroupId = @GroupId) AND (MemberId = @MemberId) AND (Version = @expectedVersion)",
		tpl.Update)
}

func TestTemplates_ExpiryColumnIncludedInWrites(t *testing.T) {
	b := Define("Session").Table("Sessions")
	b.Column("Id", TypeText).PrimaryKey()
	b.Column("Data", TypeBlob)
	b.Expiry()
	d, err := b.Build()
	require.NoError(t, err)

	tpl := d.Templates(SQLite{})
	assert.Contains(t, tpl.Insert, "AbsoluteExpiration) VALUES")
	assert.Contains(t, tpl.Insert, "@AbsoluteExpiration)")
	assert.Contains(t, tpl.Update, "AbsoluteExpiration = @AbsoluteExpiration")
	assert.Contains(t, tpl.SelectByKey, "AbsoluteExpiration FROM Sessions")
}

func TestTemplates_Deterministic(t *testing.T) {
	d := customerDescriptor(t)
	first := d.Templates(SQLite{})
	second := d.Templates(SQLite{})
	assert.Equal(t, first, second)
}
