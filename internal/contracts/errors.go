package contracts

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned when no valid records exist across all sources
var ErrEmptyInput = errors.New("no valid contract records")

// EmptyInputError is fatal: the run cannot produce a series
type EmptyInputError struct {
	Sources int // 검사한 소스 수
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("%s (sources scanned: %d)", ErrEmptyInput.Error(), e.Sources)
}

// Is reports ErrEmptyInput equivalence for errors.Is
func (e *EmptyInputError) Is(target error) bool {
	return target == ErrEmptyInput
}

// MalformedRecordError describes an unusable row or source.
// Line == 0 means the whole source was rejected.
type MalformedRecordError struct {
	Source string
	Line   int
	Field  string
	Value  string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %s: %v", e.Source, e.Field, e.Err)
	}
	return fmt.Sprintf("%s:%d: %s=%q: %v", e.Source, e.Line, e.Field, e.Value, e.Err)
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

// IsFileLevel reports whether the whole source was rejected
func (e *MalformedRecordError) IsFileLevel() bool {
	return e.Line == 0
}
