package schema

import "fmt"

// AuditTable is the shared audit-trail table. Every audit-capable type
// writes its trail rows here, one row per committed write, in the same
// transaction as the write itself.
const AuditTable = "AuditTrail"

// Audit operation labels.
const (
	AuditInsert = "insert"
	AuditUpdate = "update"
	AuditDelete = "delete"
)

// AuditTableSQL renders the shared audit-trail table DDL for the dialect.
func AuditTableSQL(dia Dialect) string {
	text := dia.TypeName(Column{Type: TypeText})
	i64 := dia.TypeName(Column{Type: TypeInt64})
	ts := dia.TypeName(Column{Type: TypeTime})
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n"+
			"    Id %s PRIMARY KEY,\n"+
			"    EntityType %s NOT NULL,\n"+
			"    EntityKey %s NOT NULL,\n"+
			"    Operation %s NOT NULL,\n"+
			"    Version %s NOT NULL,\n"+
			"    At %s NOT NULL)",
		AuditTable, text, text, text, text, i64, ts)
}

// AuditInsertSQL is the parameterized audit-row insert. It is
// dialect-neutral; the storage layer binds the named placeholders.
func AuditInsertSQL() string {
	return fmt.Sprintf(
		"INSERT INTO %s (Id, EntityType, EntityKey, Operation, Version, At)"+
			" VALUES (@Id, @EntityType, @EntityKey, @Operation, @Version, @At)",
		AuditTable)
}
