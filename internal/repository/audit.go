package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"persistkit/internal/entity"
	"persistkit/internal/query"
	"persistkit/internal/schema"
	"persistkit/internal/storage"
)

// AuditEntry is one row of the shared audit trail.
type AuditEntry struct {
	ID         string
	EntityType string
	EntityKey  string
	Operation  string
	Version    int64
	At         time.Time
}

// auditTx writes the trail row for a committed write, inside the write's
// own transaction. Types without the audit capability write nothing.
func (r *Repository[T]) auditTx(ctx context.Context, tx *storage.Tx, op string, key entity.Key, version int64) error {
	if !r.desc.Audit {
		return nil
	}
	params := query.Params{
		{Name: "Id", Value: uuid.NewString()},
		{Name: "EntityType", Value: r.desc.Name},
		{Name: "EntityKey", Value: keyString(key)},
		{Name: "Operation", Value: op},
		{Name: "Version", Value: version},
		{Name: "At", Value: r.now().UTC()},
	}
	if _, err := tx.Exec(ctx, schema.AuditInsertSQL(), params); err != nil {
		return fmt.Errorf("write audit row: %w", err)
	}
	return nil
}

// Trail reads the audit entries recorded for one key, oldest first.
func (r *Repository[T]) Trail(ctx context.Context, key entity.Key) ([]AuditEntry, error) {
	sqlText := fmt.Sprintf(
		"SELECT Id, EntityType, EntityKey, Operation, Version, At FROM %s"+
			" WHERE (EntityType = @type) AND (EntityKey = @key) ORDER BY Version ASC, At ASC",
		schema.AuditTable)
	params := query.Params{
		{Name: "type", Value: r.desc.Name},
		{Name: "key", Value: keyString(key)},
	}

	var out []AuditEntry
	err := r.retry.Do(ctx, "trail "+r.desc.Name, func(ctx context.Context) error {
		rows, err := r.store.Query(ctx, sqlText, params)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			var e AuditEntry
			if err := rows.Scan(&e.ID, &e.EntityType, &e.EntityKey, &e.Operation, &e.Version, &e.At); err != nil {
				return err
			}
			out = append(out, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// keyString flattens a key tuple into the trail's stable text form.
func keyString(key entity.Key) string {
	parts := make([]string, len(key))
	for i, v := range key {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, "/")
}
