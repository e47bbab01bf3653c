// Package apperr holds the error kinds every layer reports with, so the HTTP
// boundary can map failures without knowing where they came from.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	Validation   Kind = "validation_error"
	Unauthorized Kind = "unauthorized"
	Conflict     Kind = "conflict"
	NotFound     Kind = "not_found"
	Storage      Kind = "storage_error"
)

// Error is a failure of a known kind. Fields carries per-field details for
// validation failures.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match on kind alone, e.g. errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation   = &Error{Kind: Validation}
	ErrUnauthorized = &Error{Kind: Unauthorized}
	ErrConflict     = &Error{Kind: Conflict}
	ErrNotFound     = &Error{Kind: NotFound}
	ErrStorage      = &Error{Kind: Storage}
)

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// StorageErr wraps a backing store failure.
func StorageErr(op string, err error) *Error {
	return &Error{Kind: Storage, Message: op, Err: err}
}

// FieldErrors collects validation problems keyed by field name.
type FieldErrors map[string]string

func (f FieldErrors) Add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

// Err returns nil when nothing was collected.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return &Error{Kind: Validation, Message: "validation failed", Fields: f}
}

// KindOf reports the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
