// Package syncerr defines the failure classes of a sync run. Each typed error
// unwraps to its sentinel so callers can branch with errors.Is.
package syncerr

import (
	"errors"
	"fmt"
)

var (
	// ErrAuth aborts the run of a single shop.
	ErrAuth = errors.New("authentication failed")
	// ErrFetch truncates a listing to what was read so far.
	ErrFetch = errors.New("fetch failed")
	// ErrValidation skips a single record.
	ErrValidation = errors.New("invalid record")
	// ErrWrite is counted and never stops sibling steps.
	ErrWrite = errors.New("write failed")
)

type AuthError struct {
	Shop string
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth for shop %s: %v", e.Shop, e.Err)
}

func (e *AuthError) Unwrap() []error { return []error{ErrAuth, e.Err} }

type FetchError struct {
	Page int
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch page %d: %v", e.Page, e.Err)
}

func (e *FetchError) Unwrap() []error { return []error{ErrFetch, e.Err} }

type ValidationError struct {
	SKU    string
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("record %q missing or invalid: %v", e.SKU, e.Fields)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

type WriteError struct {
	Op  string
	SKU string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s for %s: %v", e.Op, e.SKU, e.Err)
}

func (e *WriteError) Unwrap() []error { return []error{ErrWrite, e.Err} }
