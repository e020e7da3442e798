package schema

import (
	"fmt"
	"strings"
)

// CreateTableSQL renders the CREATE TABLE statement for the descriptor,
// including the primary-key clause (inline for a single-column key,
// table-level for a composite key), NOT NULL and DEFAULT clauses, system
// columns, and foreign-key clauses with their cascade rules.
func (d *Descriptor) CreateTableSQL(dia Dialect) string {
	inlinePK := len(d.PK) == 1

	var defs []string
	for _, c := range d.Columns {
		if inlinePK && c.PrimaryKey && c.AutoIncrement {
			defs = append(defs, dia.AutoIncrementPK(c))
			continue
		}
		def := c.Name + " " + dia.TypeName(c)
		if c.NotNull {
			def += " NOT NULL"
		}
		if c.Default != "" {
			def += " DEFAULT " + c.Default
		}
		if inlinePK && c.PrimaryKey {
			def += " PRIMARY KEY"
		}
		defs = append(defs, def)
	}

	defs = append(defs,
		fmt.Sprintf("%s %s NOT NULL DEFAULT 1", VersionColumn, dia.TypeName(Column{Type: TypeInt64})),
		fmt.Sprintf("%s %s NOT NULL DEFAULT CURRENT_TIMESTAMP", LastWriteColumn, dia.TypeName(Column{Type: TypeTime})),
	)
	if d.SoftDelete {
		defs = append(defs, fmt.Sprintf("%s %s NOT NULL DEFAULT %s",
			SoftDeleteColumn, dia.TypeName(Column{Type: TypeBool}), dia.BoolLiteral(false)))
	}
	if d.Expiry {
		defs = append(defs, fmt.Sprintf("%s %s", ExpiryColumn, dia.TypeName(Column{Type: TypeTime})))
	}

	if !inlinePK {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(d.PK, ", ")))
	}

	for _, fk := range d.ForeignKeys {
		def := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s(%s)", fk.Column, fk.RefTable, fk.RefColumn)
		if fk.OnDelete != CascadeNone {
			def += " ON DELETE " + string(fk.OnDelete)
		}
		defs = append(defs, def)
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS " + d.Table + " (\n")
	for i, def := range defs {
		b.WriteString("    " + def)
		if i < len(defs)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")
	return b.String()
}

// CreateIndexSQL renders one CREATE INDEX statement per declared index,
// preserving declared column order and the uniqueness flag. Partial-index
// predicates pass through verbatim.
func (d *Descriptor) CreateIndexSQL(dia Dialect) []string {
	_ = dia // index DDL is dialect-neutral for the supported engines

	stmts := make([]string, 0, len(d.Indexes))
	for _, idx := range d.Indexes {
		cols := make([]string, len(idx.Columns))
		for i, ic := range idx.Columns {
			cols[i] = ic.Name
			if ic.Desc {
				cols[i] += " DESC"
			}
		}
		kind := "INDEX"
		if idx.Unique {
			kind = "UNIQUE INDEX"
		}
		stmt := fmt.Sprintf("CREATE %s IF NOT EXISTS %s ON %s (%s)",
			kind, idx.Name, d.Table, strings.Join(cols, ", "))
		if idx.Where != "" {
			stmt += " WHERE " + idx.Where
		}
		stmts = append(stmts, stmt)
	}
	return stmts
}
