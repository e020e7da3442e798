package schema

import "fmt"

// Dialect renders the engine-specific parts of generated SQL. Generated
// statement shape and placeholder names are identical across dialects; only
// type names, boolean literals, and auto-increment columns differ.
type Dialect interface {
	Name() string
	TypeName(c Column) string
	// AutoIncrementPK renders the full column definition for a
	// single-column auto-increment primary key.
	AutoIncrementPK(c Column) string
	BoolLiteral(v bool) string
}

// SQLite is the primary storage dialect.
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) TypeName(c Column) string {
	switch c.Type {
	case TypeText:
		if c.Size > 0 {
			return fmt.Sprintf("VARCHAR(%d)", c.Size)
		}
		return "TEXT"
	case TypeInt64, TypeBool:
		return "INTEGER"
	case TypeFloat64:
		return "REAL"
	case TypeTime:
		return "TIMESTAMP"
	case TypeBlob:
		return "BLOB"
	case TypeDecimal:
		if c.Precision > 0 {
			return fmt.Sprintf("DECIMAL(%d,%d)", c.Precision, c.Scale)
		}
		return "DECIMAL"
	default:
		return "TEXT"
	}
}

func (d SQLite) AutoIncrementPK(c Column) string {
	return c.Name + " INTEGER PRIMARY KEY AUTOINCREMENT"
}

func (SQLite) BoolLiteral(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// Postgres is the optional second dialect, reached through the pgx
// database/sql driver.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) TypeName(c Column) string {
	switch c.Type {
	case TypeText:
		if c.Size > 0 {
			return fmt.Sprintf("VARCHAR(%d)", c.Size)
		}
		return "TEXT"
	case TypeInt64:
		return "BIGINT"
	case TypeBool:
		return "BOOLEAN"
	case TypeFloat64:
		return "DOUBLE PRECISION"
	case TypeTime:
		return "TIMESTAMPTZ"
	case TypeBlob:
		return "BYTEA"
	case TypeDecimal:
		if c.Precision > 0 {
			return fmt.Sprintf("NUMERIC(%d,%d)", c.Precision, c.Scale)
		}
		return "NUMERIC"
	default:
		return "TEXT"
	}
}

func (d Postgres) AutoIncrementPK(c Column) string {
	return c.Name + " BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY"
}

func (Postgres) BoolLiteral(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}
