package index

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfig         = errors.New("invalid index configuration")
	ErrIndexInit      = errors.New("index initialization failed")
	ErrIndexWrite     = errors.New("index write failed")
	ErrIndexQuery     = errors.New("index query failed")
	ErrNotInitialized = errors.New("collection not initialized")
	ErrDimension      = errors.New("vector dimension mismatch")
)

// Error carries the failing operation and its category. Both the category
// and the cause match with errors.Is.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// BatchError reports a partially applied batch. Ids in Committed were
// durably written before the failure; ids in Failed were not.
type BatchError struct {
	Committed []string
	Failed    []string
	Err       error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch upsert: %d committed, %d failed: %v", len(e.Committed), len(e.Failed), e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

func newError(op string, kind error, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

func configError(problems []string) error {
	return newError("validate", ErrConfig, errors.New(strings.Join(problems, "; ")))
}
