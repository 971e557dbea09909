package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrRepository marks failures of the backing store, as opposed to
	// "nothing matched".
	ErrRepository = errors.New("postil repository failure")

	// ErrInvalidInput indicates a request that cannot be served as given.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates a postil ID that does not exist.
	ErrNotFound = errors.New("not found")
)

// RepositoryError wraps a store failure with the operation that hit it. It
// matches both ErrRepository and the underlying error with errors.Is.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() []error {
	return []error{ErrRepository, e.Err}
}
