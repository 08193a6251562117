package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure so callers can decide skip vs abort.
type Kind string

const (
	KindFatal        Kind = "fatal"
	KindUnresolvable Kind = "unresolvable"
	KindFetch        Kind = "fetch"
	KindRowMalformed Kind = "row_malformed"
	KindEmpty        Kind = "empty"
	KindCommit       Kind = "commit"
)

// Error carries the classification of a failure and the file it concerns.
type Error struct {
	Kind Kind
	File string
	Err  error
}

func (e *Error) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Kind, e.File, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err aborts the whole run.
func IsFatal(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == KindFatal
	}
	return err != nil
}

func fatal(err error) error {
	return &Error{Kind: KindFatal, Err: err}
}
