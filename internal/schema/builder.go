package schema

import "fmt"

// Builder accumulates a declarative registration for one record type.
// Obtain one through Define (or Registry.Define) and finish with Build.
type Builder struct {
	name       string
	table      string
	cols       []*ColumnBuilder
	fks        []ForeignKey
	idxs       []*IndexBuilder
	softDelete bool
	expiry     bool
	audit      bool
}

// Define starts a registration for the named record type. The table name
// defaults to the type name until overridden with Table.
func Define(name string) *Builder {
	return &Builder{name: name, table: name}
}

// Table overrides the target table name.
func (b *Builder) Table(name string) *Builder {
	b.table = name
	return b
}

// Column declares a mapped field. The column name defaults to the field
// name; use Named to override.
func (b *Builder) Column(field string, t LogicalType) *ColumnBuilder {
	cb := &ColumnBuilder{col: Column{Field: field, Name: field, Type: t}}
	b.cols = append(b.cols, cb)
	return cb
}

// ForeignKey declares a reference from a mapped column to a column of
// another registered table. The target must be resolvable when the
// registration is built.
func (b *Builder) ForeignKey(column, refTable, refColumn string, onDelete CascadeRule) *Builder {
	b.fks = append(b.fks, ForeignKey{Column: column, RefTable: refTable, RefColumn: refColumn, OnDelete: onDelete})
	return b
}

// Index declares a named index over the given columns, preserving order.
func (b *Builder) Index(name string, columns ...IndexColumn) *IndexBuilder {
	ib := &IndexBuilder{idx: Index{Name: name, Columns: columns}}
	b.idxs = append(b.idxs, ib)
	return ib
}

// SoftDelete marks the type as soft-delete capable: deletes become updates
// of the IsDeleted flag and default reads exclude flagged rows.
func (b *Builder) SoftDelete() *Builder {
	b.softDelete = true
	return b
}

// Expiry marks the type as expiry capable: rows past AbsoluteExpiration are
// excluded from default reads.
func (b *Builder) Expiry() *Builder {
	b.expiry = true
	return b
}

// Audit marks the type as audit-trail capable: every successful write
// produces an audit record.
func (b *Builder) Audit() *Builder {
	b.audit = true
	return b
}

// ColumnBuilder refines one column declaration.
type ColumnBuilder struct {
	col       Column
	notMapped bool
}

// Named overrides the target column name.
func (cb *ColumnBuilder) Named(name string) *ColumnBuilder {
	cb.col.Name = name
	return cb
}

// PrimaryKey marks the column as part of the primary key. Composite keys
// are declared by marking several columns; their declaration order is the
// key order.
func (cb *ColumnBuilder) PrimaryKey() *ColumnBuilder {
	cb.col.PrimaryKey = true
	cb.col.NotNull = true
	return cb
}

// AutoIncrement marks a single-column integer primary key as
// engine-assigned.
func (cb *ColumnBuilder) AutoIncrement() *ColumnBuilder {
	cb.col.AutoIncrement = true
	return cb
}

// NotNull adds a NOT NULL constraint.
func (cb *ColumnBuilder) NotNull() *ColumnBuilder {
	cb.col.NotNull = true
	return cb
}

// Size bounds a text column.
func (cb *ColumnBuilder) Size(n int) *ColumnBuilder {
	cb.col.Size = n
	return cb
}

// Precision sets decimal precision and scale.
func (cb *ColumnBuilder) Precision(p, s int) *ColumnBuilder {
	cb.col.Precision = p
	cb.col.Scale = s
	return cb
}

// Default sets a default value expression, emitted verbatim.
func (cb *ColumnBuilder) Default(expr string) *ColumnBuilder {
	cb.col.Default = expr
	return cb
}

// NotMapped excludes the field from the mapping entirely, even when the
// declaration was inherited from a shared registration helper.
func (cb *ColumnBuilder) NotMapped() *ColumnBuilder {
	cb.notMapped = true
	return cb
}

// IndexBuilder refines one index declaration.
type IndexBuilder struct {
	idx Index
}

// Unique marks the index unique.
func (ib *IndexBuilder) Unique() *IndexBuilder {
	ib.idx.Unique = true
	return ib
}

// Where sets a partial-index predicate, emitted verbatim.
func (ib *IndexBuilder) Where(pred string) *IndexBuilder {
	ib.idx.Where = pred
	return ib
}

// Build validates the registration and produces an immutable descriptor.
// Foreign-key targets are resolved against reg when one is supplied.
func (b *Builder) Build() (*Descriptor, error) {
	return b.build(nil)
}

func (b *Builder) build(reg *Registry) (*Descriptor, error) {
	d := &Descriptor{
		Name:       b.name,
		Table:      b.table,
		SoftDelete: b.softDelete,
		Expiry:     b.expiry,
		Audit:      b.audit,
		byField:    make(map[string]int),
		byName:     make(map[string]int),
	}

	reserved := map[string]bool{
		VersionColumn:   true,
		LastWriteColumn: true,
	}
	if b.softDelete {
		reserved[SoftDeleteColumn] = true
	}
	if b.expiry {
		reserved[ExpiryColumn] = true
	}

	for _, cb := range b.cols {
		if cb.notMapped {
			continue
		}
		c := cb.col
		if reserved[c.Name] {
			return nil, &MappingError{Type: b.name, Reason: fmt.Sprintf("column %q collides with a system column", c.Name)}
		}
		if _, dup := d.byName[c.Name]; dup {
			return nil, &MappingError{Type: b.name, Reason: fmt.Sprintf("duplicate column %q", c.Name)}
		}
		d.byName[c.Name] = len(d.Columns)
		d.byField[c.Field] = len(d.Columns)
		d.Columns = append(d.Columns, c)
		if c.PrimaryKey {
			d.PK = append(d.PK, c.Name)
		}
	}

	if len(d.PK) == 0 {
		return nil, &MappingError{Type: b.name, Reason: "no primary key declared"}
	}

	for _, c := range d.Columns {
		if !c.AutoIncrement {
			continue
		}
		if !c.PrimaryKey || len(d.PK) != 1 || c.Type != TypeInt64 {
			return nil, &MappingError{Type: b.name, Reason: fmt.Sprintf("auto-increment column %q must be the sole integer primary key", c.Name)}
		}
	}

	for _, fk := range b.fks {
		if _, ok := d.byName[fk.Column]; !ok {
			return nil, &MappingError{Type: b.name, Reason: fmt.Sprintf("foreign key on unknown column %q", fk.Column)}
		}
		if reg != nil && fk.RefTable != d.Table && !reg.tableKnown(fk.RefTable) {
			return nil, &MappingError{Type: b.name, Reason: fmt.Sprintf("foreign key target table %q is not registered", fk.RefTable)}
		}
		d.ForeignKeys = append(d.ForeignKeys, fk)
	}

	for _, ib := range b.idxs {
		for _, ic := range ib.idx.Columns {
			if _, ok := d.byName[ic.Name]; !ok {
				return nil, &MappingError{Type: b.name, Reason: fmt.Sprintf("index %q references unknown column %q", ib.idx.Name, ic.Name)}
			}
		}
		d.Indexes = append(d.Indexes, ib.idx)
	}

	return d, nil
}
