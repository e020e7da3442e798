package storage

import (
	"database/sql"
	"time"
)

// Null type conversion helpers shared by the repository layer.

// NullToTimePtr safely converts sql.NullTime to *time.Time
func NullToTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

// TimePtrToNull safely converts *time.Time to sql.NullTime
func TimePtrToNull(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// NullToString safely converts sql.NullString to string
func NullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// StringToNull safely converts string to sql.NullString
func StringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
