// Package collerrors implements the error taxonomy of spec §7, shared by
// btree and linearhash. NotFound is not represented here: find operations
// return an absent result, never an error (see btree.Find, linearhash.Find).
package collerrors

import (
	"errors"
	"fmt"

	"github.com/daemonkv/collections/objstore"
)

// DecodeError means a payload did not match its expected encoding: an
// unknown root key, trailing garbage after a node's keys, or a header of
// the wrong kind. Always fatal for the operation that hit it.
type DecodeError struct {
	Context string
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode error (%s): %v", e.Context, e.Err)
	}
	return fmt.Sprintf("decode error (%s)", e.Context)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// NewDecodeError wraps err with the context in which decoding failed.
func NewDecodeError(context string, err error) *DecodeError {
	return &DecodeError{Context: context, Err: err}
}

// InvariantError means an internal self-check failed: wrong child count,
// keys out of order, leaves at unequal depth. It always indicates a bug in
// this module or in a caller that mutated store state out of band; callers
// should treat it as fatal rather than retry.
type InvariantError struct {
	Message string
}

func (e *InvariantError) Error() string { return "invariant violation: " + e.Message }

// NewInvariantError constructs an InvariantError with the given message.
func NewInvariantError(format string, args ...any) *InvariantError {
	return &InvariantError{Message: fmt.Sprintf(format, args...)}
}

// StoreError wraps an underlying objstore failure other than a restart
// signal (permission, disconnection, etc). It is surfaced verbatim to the
// caller of the public operation that triggered it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store error during %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError wraps err as having occurred during op.
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// WrapStoreError classifies an error returned by an objstore.Txn method: a
// restart signal is passed through untouched, since spec §7 makes it the
// transaction driver's private concern and never user-visible as a
// StoreError, while everything else is wrapped so callers of the public
// btree/linearhash API can classify it with IsStore.
func WrapStoreError(op string, err error) error {
	if err == nil || errors.Is(err, objstore.ErrRestart) {
		return err
	}
	return NewStoreError(op, err)
}

// IsDecode, IsInvariant and IsStore let callers classify a returned error
// per the taxonomy without importing the concrete types directly.
func IsDecode(err error) bool {
	var d *DecodeError
	return errors.As(err, &d)
}

func IsInvariant(err error) bool {
	var i *InvariantError
	return errors.As(err, &i)
}

func IsStore(err error) bool {
	var s *StoreError
	return errors.As(err, &s)
}
