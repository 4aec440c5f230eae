package models

import "fmt"

// EntityState records how a tracked document was obtained and what was done to it
type EntityState int

const (
	StateAdded EntityState = iota + 1
	StateDeleted
	// StateReadFromSource is known to the store, possibly modified since.
	StateReadFromSource
	// StateNoActionRequired was queued for insert then deleted before submit.
	StateNoActionRequired
)

func (s EntityState) String() string {
	switch s {
	case StateAdded:
		return "added"
	case StateDeleted:
		return "deleted"
	case StateReadFromSource:
		return "read-from-source"
	case StateNoActionRequired:
		return "no-action-required"
	}
	return fmt.Sprintf("EntityState(%d)", int(s))
}
