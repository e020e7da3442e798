// Package schema implements the metadata mapper: record types are described
// through explicit builder registrations, validated exhaustively at
// registration time, and cached as immutable descriptors from which table
// DDL and parameterized DML templates are generated.
package schema

import (
	"fmt"
)

// LogicalType is the abstract storage type of a mapped column. Dialects
// translate it to a concrete SQL type name.
type LogicalType int

const (
	TypeText LogicalType = iota
	TypeInt64
	TypeFloat64
	TypeBool
	TypeTime
	TypeBlob
	TypeDecimal
)

func (t LogicalType) String() string {
	switch t {
	case TypeText:
		return "text"
	case TypeInt64:
		return "int64"
	case TypeFloat64:
		return "float64"
	case TypeBool:
		return "bool"
	case TypeTime:
		return "time"
	case TypeBlob:
		return "blob"
	case TypeDecimal:
		return "decimal"
	default:
		return fmt.Sprintf("logical(%d)", int(t))
	}
}

// System columns owned by the engine. They are appended to generated DDL and
// DML and may not be redeclared by a registration.
const (
	VersionColumn    = "Version"
	LastWriteColumn  = "LastWriteTime"
	SoftDeleteColumn = "IsDeleted"
	ExpiryColumn     = "AbsoluteExpiration"
)

// Column describes one mapped field.
type Column struct {
	Field         string // source field name on the record type
	Name          string // target column name
	Type          LogicalType
	NotNull       bool
	Size          int // text length; 0 means unbounded
	Precision     int // decimal precision; 0 means dialect default
	Scale         int
	Default       string // default value expression, passed through verbatim
	AutoIncrement bool
	PrimaryKey    bool
}

// CascadeRule is a referential action on a foreign key.
type CascadeRule string

const (
	CascadeNone     CascadeRule = ""
	CascadeDelete   CascadeRule = "CASCADE"
	CascadeSetNull  CascadeRule = "SET NULL"
	CascadeRestrict CascadeRule = "RESTRICT"
)

// ForeignKey describes a reference from one mapped column to a column of
// another registered table.
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
	OnDelete  CascadeRule
}

// IndexColumn is one key of an index, with optional descending order.
type IndexColumn struct {
	Name string
	Desc bool
}

// Index describes a named index. Where, when set, is a partial-index
// predicate emitted verbatim.
type Index struct {
	Name    string
	Columns []IndexColumn
	Unique  bool
	Where   string
}

// Descriptor is the immutable mapping of one record type. Descriptors are
// built once per type through a Registry and shared by all callers; they are
// never mutated after Build.
type Descriptor struct {
	Name        string // record type name, the registry key
	Table       string
	Columns     []Column // mapped columns in declared order
	PK          []string // primary-key column names in declared order
	SoftDelete  bool
	Expiry      bool
	Audit       bool
	ForeignKeys []ForeignKey
	Indexes     []Index

	byField map[string]int
	byName  map[string]int
}

// ColumnForField resolves a source field name to its column.
func (d *Descriptor) ColumnForField(field string) (Column, bool) {
	i, ok := d.byField[field]
	if !ok {
		return Column{}, false
	}
	return d.Columns[i], true
}

// ColumnNamed resolves a target column name.
func (d *Descriptor) ColumnNamed(name string) (Column, bool) {
	i, ok := d.byName[name]
	if !ok {
		return Column{}, false
	}
	return d.Columns[i], true
}

// ColumnNames returns the mapped column names in declared order.
func (d *Descriptor) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// SelectColumns returns the full read column list: mapped columns in
// declared order followed by the system columns a read must hydrate.
func (d *Descriptor) SelectColumns() []string {
	cols := d.ColumnNames()
	cols = append(cols, VersionColumn, LastWriteColumn)
	if d.Expiry {
		cols = append(cols, ExpiryColumn)
	}
	return cols
}

// IsPrimaryKey reports whether the named column is part of the primary key.
func (d *Descriptor) IsPrimaryKey(name string) bool {
	for _, pk := range d.PK {
		if pk == name {
			return true
		}
	}
	return false
}

// MappingError reports bad or contradictory registration metadata. It is
// fatal: the registration is rejected and nothing is cached.
type MappingError struct {
	Type   string
	Reason string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("mapping %s: %s", e.Type, e.Reason)
}
