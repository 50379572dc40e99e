// Package objstore describes the external transactional object store that
// the btree and linearhash packages are layered on top of (spec §6.1). It
// is an interface only: no implementation of a real store lives in this
// module. internal/refstore provides an in-memory double used by this
// module's own tests, mirroring the role bplustree.InMemoryPager plays for
// the teacher's on-disk pager.
package objstore

import (
	"context"
	"errors"
)

// ErrRestart is returned by Txn methods, or by RunTransaction's fn, to
// signal the store needs the enclosing transaction re-run from scratch.
// It is never observable through the btree/linearhash public API: the
// transaction driver retries internally until it either commits or a
// non-restart error propagates.
var ErrRestart = errors.New("objstore: restart needed")

// Handle is an opaque reference to a store object. Handles compare by
// referent identity, not structural equality — use Same, never ==, unless
// the concrete type is known to be comparable and sourced from the same
// store.
type Handle interface {
	// Same reports whether h and other refer to the same store object.
	Same(other Handle) bool
}

// Txn is the transactional context passed to the closure given to
// RunTransaction. All object creation, reads and writes for one logical
// operation happen through a single Txn.
type Txn interface {
	// Create allocates a new store object holding payload and refs.
	Create(payload []byte, refs []Handle) (Handle, error)
	// Read returns the current payload and refs of h.
	Read(h Handle) (payload []byte, refs []Handle, err error)
	// Write replaces the payload and refs of h.
	Write(h Handle, payload []byte, refs []Handle) error
}

// Store runs transactions against the object store.
type Store interface {
	// RunTransaction executes fn inside a transaction. If fn or the store
	// itself signals ErrRestart, the store re-invokes fn with a fresh Txn;
	// fn must not carry any decoded state across such a restart. The
	// context may be used by real implementations to bound retries; this
	// module never cancels it itself.
	RunTransaction(ctx context.Context, fn func(Txn) (any, error)) (any, error)
}

// RunTransaction is a small type-safe wrapper over Store.RunTransaction for
// callers that know their result type, so btree/linearhash call sites don't
// each repeat the any-to-T cast.
func RunTransaction[T any](ctx context.Context, s Store, fn func(Txn) (T, error)) (T, error) {
	res, err := s.RunTransaction(ctx, func(txn Txn) (any, error) {
		return fn(txn)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if res == nil {
		var zero T
		return zero, nil
	}
	return res.(T), nil
}
