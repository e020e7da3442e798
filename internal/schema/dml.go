package schema

import (
	"fmt"
	"strings"
)

// Templates are the parameterized DML statements generated from a
// descriptor. Placeholders are named after the column they bind
// (`@ColumnName`), except the version guard which always binds
// `@expectedVersion`. WHERE conjuncts follow the fixed order: primary key,
// version check, soft-delete guard.
type Templates struct {
	Insert      string
	Update      string
	Delete      string
	SelectByKey string
}

// Templates generates the DML templates for the descriptor. Soft-delete
// capable types map Delete to an UPDATE of the IsDeleted flag; every write
// template increments Version by exactly 1 and refreshes LastWriteTime.
func (d *Descriptor) Templates(dia Dialect) Templates {
	return Templates{
		Insert:      d.insertSQL(),
		Update:      d.updateSQL(dia),
		Delete:      d.deleteSQL(dia),
		SelectByKey: d.selectByKeySQL(),
	}
}

func (d *Descriptor) insertSQL() string {
	cols := d.ColumnNames()
	cols = append(cols, VersionColumn, LastWriteColumn)
	if d.Expiry {
		cols = append(cols, ExpiryColumn)
	}
	params := make([]string, len(cols))
	for i, c := range cols {
		params[i] = "@" + c
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Table, strings.Join(cols, ", "), strings.Join(params, ", "))
}

func (d *Descriptor) updateSQL(dia Dialect) string {
	var sets []string
	for _, c := range d.Columns {
		if c.PrimaryKey {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = @%s", c.Name, c.Name))
	}
	sets = append(sets,
		fmt.Sprintf("%s = %s + 1", VersionColumn, VersionColumn),
		fmt.Sprintf("%s = @%s", LastWriteColumn, LastWriteColumn),
	)
	if d.Expiry {
		sets = append(sets, fmt.Sprintf("%s = @%s", ExpiryColumn, ExpiryColumn))
	}

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s AND (%s = @expectedVersion)",
		d.Table, strings.Join(sets, ", "), d.pkWhere(), VersionColumn)
	if d.SoftDelete {
		sql += d.liveGuard(dia)
	}
	return sql
}

func (d *Descriptor) deleteSQL(dia Dialect) string {
	if d.SoftDelete {
		return fmt.Sprintf("UPDATE %s SET %s = %s, %s = %s + 1, %s = @%s WHERE %s AND (%s = @expectedVersion)%s",
			d.Table,
			SoftDeleteColumn, dia.BoolLiteral(true),
			VersionColumn, VersionColumn,
			LastWriteColumn, LastWriteColumn,
			d.pkWhere(), VersionColumn, d.liveGuard(dia))
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s AND (%s = @expectedVersion)",
		d.Table, d.pkWhere(), VersionColumn)
}

func (d *Descriptor) selectByKeySQL() string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		strings.Join(d.SelectColumns(), ", "), d.Table, d.pkWhere())
}

// pkWhere renders the primary-key conjuncts in declared key order.
func (d *Descriptor) pkWhere() string {
	parts := make([]string, len(d.PK))
	for i, pk := range d.PK {
		parts[i] = fmt.Sprintf("(%s = @%s)", pk, pk)
	}
	return strings.Join(parts, " AND ")
}

func (d *Descriptor) liveGuard(dia Dialect) string {
	return fmt.Sprintf(" AND (%s = %s)", SoftDeleteColumn, dia.BoolLiteral(false))
}
