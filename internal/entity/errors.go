package entity

import "fmt"

// VersionUnknown is reported as the current version when a conflicting
// row's version could not be re-read (for example because the row was
// deleted between the write and the re-check).
const VersionUnknown int64 = -1

// ConflictError reports an optimistic-concurrency conflict: the row exists
// but its stored version no longer matches the expected one. Recoverable by
// re-reading and retrying at the application level.
type ConflictError struct {
	Type     string
	Key      Key
	Current  int64
	Expected int64
}

func (e *ConflictError) Error() string {
	if e.Current == VersionUnknown {
		return fmt.Sprintf("%s %v: version conflict, expected %d, current version unknown",
			e.Type, e.Key, e.Expected)
	}
	return fmt.Sprintf("%s %v: version conflict, expected %d, current %d",
		e.Type, e.Key, e.Expected, e.Current)
}

// NotFoundError reports that no row exists for the key.
type NotFoundError struct {
	Type string
	Key  Key
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v: not found", e.Type, e.Key)
}

// AlreadyExistsError reports an insert that collided with an existing key
// or unique constraint.
type AlreadyExistsError struct {
	Type string
	Key  Key
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s %v: already exists", e.Type, e.Key)
}
