package model

import "fmt"

// ValidationError reports a precondition failure caught before any
// local or remote state was touched.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError reports that a referenced entity is absent from the
// local model.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ConflictError reports that a mutation was rejected because another
// mutation against the same entity is still in flight.
type ConflictError struct {
	Entity string
	ID     string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s has a mutation in flight", e.Entity, e.ID)
}

// PersistenceError reports that the remote store rejected a mutation.
// By the time the caller observes it the local model has already been
// rolled back to the pre-mutation snapshot.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// PartialLogError reports that the history append failed after the
// primary mutation had already been persisted. It is logged internally
// and never rolls back the primary mutation.
type PartialLogError struct {
	Action string
	Err    error
}

func (e *PartialLogError) Error() string {
	return fmt.Sprintf("recording %s history after successful mutation: %v", e.Action, e.Err)
}

func (e *PartialLogError) Unwrap() error { return e.Err }
