// Package report renders the registered schema as a diagnostics document:
// per-type mapping summaries plus the exact DDL and DML the engine would
// generate for a dialect.
package report

import (
	"time"

	"persistkit/internal/schema"
)

// SchemaReport is the full diagnostics document
type SchemaReport struct {
	GeneratedAt time.Time    `json:"generated_at" yaml:"generated_at"`
	Dialect     string       `json:"dialect" yaml:"dialect"`
	Types       []TypeReport `json:"types" yaml:"types"`
}

// TypeReport describes one registered type and its generated statements
type TypeReport struct {
	Name        string         `json:"name" yaml:"name"`
	Table       string         `json:"table" yaml:"table"`
	Columns     []ColumnReport `json:"columns" yaml:"columns"`
	PrimaryKey  []string       `json:"primary_key" yaml:"primary_key"`
	SoftDelete  bool           `json:"soft_delete" yaml:"soft_delete"`
	Expiry      bool           `json:"expiry" yaml:"expiry"`
	Audit       bool           `json:"audit" yaml:"audit"`
	CreateTable string         `json:"create_table" yaml:"create_table"`
	Indexes     []string       `json:"indexes,omitempty" yaml:"indexes,omitempty"`
	Insert      string         `json:"insert" yaml:"insert"`
	Update      string         `json:"update" yaml:"update"`
	Delete      string         `json:"delete" yaml:"delete"`
	SelectByKey string         `json:"select_by_key" yaml:"select_by_key"`
}

// ColumnReport describes one mapped column
type ColumnReport struct {
	Field      string `json:"field" yaml:"field"`
	Column     string `json:"column" yaml:"column"`
	Type       string `json:"type" yaml:"type"`
	SQLType    string `json:"sql_type" yaml:"sql_type"`
	NotNull    bool   `json:"not_null,omitempty" yaml:"not_null,omitempty"`
	PrimaryKey bool   `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
}

// Build assembles the report for every type in the registry, in name order.
func Build(reg *schema.Registry, dia schema.Dialect) *SchemaReport {
	rep := &SchemaReport{
		GeneratedAt: time.Now().UTC(),
		Dialect:     dia.Name(),
	}

	for _, d := range reg.Descriptors() {
		tpl := d.Templates(dia)
		tr := TypeReport{
			Name:        d.Name,
			Table:       d.Table,
			PrimaryKey:  d.PK,
			SoftDelete:  d.SoftDelete,
			Expiry:      d.Expiry,
			Audit:       d.Audit,
			CreateTable: d.CreateTableSQL(dia),
			Indexes:     d.CreateIndexSQL(dia),
			Insert:      tpl.Insert,
			Update:      tpl.Update,
			Delete:      tpl.Delete,
			SelectByKey: tpl.SelectByKey,
		}
		for _, c := range d.Columns {
			tr.Columns = append(tr.Columns, ColumnReport{
				Field:      c.Field,
				Column:     c.Name,
				Type:       c.Type.String(),
				SQLType:    dia.TypeName(c),
				NotNull:    c.NotNull,
				PrimaryKey: c.PrimaryKey,
			})
		}
		rep.Types = append(rep.Types, tr)
	}

	return rep
}
