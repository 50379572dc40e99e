// Package refstore is a reference, in-memory implementation of
// objstore.Store used only by this module's own test suites. It plays the
// same "something to actually run the algorithm against" role that
// bplustree.InMemoryPager plays for the teacher's on-disk pager: the real
// transactional object store (spec §6.1) is an external collaborator this
// module never implements for production use.
//
// refstore additionally supports fault injection (InjectRestarts) so tests
// can exercise the restart-and-redrive path described in spec §5 and §7.
package refstore

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/daemonkv/collections/objstore"
)

// Store is an in-memory objstore.Store. Zero value is not usable; use New.
type Store struct {
	mu      sync.Mutex
	objects map[uint64]*object
	nextID  uint64
	cache   *handleCache
	logger  *log.Logger

	// pendingRestarts, when > 0, makes the next Read/Write/Create call
	// return objstore.ErrRestart and decrements the counter. Used only by
	// tests to exercise RunTransaction's retry loop.
	pendingRestarts int
}

type object struct {
	payload []byte
	refs    []objstore.Handle
}

// handle is refstore's concrete objstore.Handle: a store-scoped object id.
type handle struct {
	id uint64
}

func (h handle) Same(other objstore.Handle) bool {
	oh, ok := other.(handle)
	return ok && oh.id == h.id
}

// New creates an empty reference store, with an underlying handle cache
// sized for cacheCapacity objects (see cache.go).
func New(cacheCapacity int64) *Store {
	c, err := newHandleCache(cacheCapacity)
	if err != nil {
		// The reference store is test-only infrastructure; a
		// misconfigured cache here is a programming error, not a
		// runtime condition callers need to handle.
		panic(fmt.Sprintf("refstore: creating handle cache: %v", err))
	}
	s := &Store{
		objects: make(map[uint64]*object),
		nextID:  1,
		logger:  log.New(io.Discard, "", 0),
	}
	c.logger = s.logger
	s.cache = c
	return s
}

// SetLogger redirects the store's and its handle cache's diagnostic
// output, off by default the way New leaves it. Passing nil restores
// silence.
func (s *Store) SetLogger(l *log.Logger) {
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = l
	s.cache.logger = l
}

// InjectRestarts arranges for the next n store operations (across however
// many RunTransaction attempts it takes) to fail with objstore.ErrRestart.
func (s *Store) InjectRestarts(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingRestarts = n
}

func (s *Store) maybeRestart() error {
	if s.pendingRestarts > 0 {
		s.pendingRestarts--
		return objstore.ErrRestart
	}
	return nil
}

// RunTransaction retries fn until it returns a non-restart result. There is
// no real optimistic-concurrency conflict detection here (this store is
// single-process, single-goroutine-per-call); the only source of restarts
// is InjectRestarts.
func (s *Store) RunTransaction(ctx context.Context, fn func(objstore.Txn) (any, error)) (any, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		res, err := fn(&txn{store: s})
		if err == nil {
			s.logger.Printf("[refstore] COMMIT complete")
			return res, nil
		}
		if err == objstore.ErrRestart {
			s.logger.Printf("[refstore] RESTART")
			continue
		}
		return nil, err
	}
}

type txn struct {
	store *Store
}

func (t *txn) Create(payload []byte, refs []objstore.Handle) (objstore.Handle, error) {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.maybeRestart(); err != nil {
		return nil, err
	}
	id := s.nextID
	s.nextID++
	obj := &object{payload: append([]byte(nil), payload...), refs: append([]objstore.Handle(nil), refs...)}
	s.objects[id] = obj
	h := handle{id: id}
	s.cache.set(id, obj)
	return h, nil
}

func (t *txn) Read(h objstore.Handle) ([]byte, []objstore.Handle, error) {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.maybeRestart(); err != nil {
		return nil, nil, err
	}
	id, err := toID(h)
	if err != nil {
		return nil, nil, err
	}
	if obj, ok := s.cache.get(id); ok {
		return append([]byte(nil), obj.payload...), append([]objstore.Handle(nil), obj.refs...), nil
	}
	obj, ok := s.objects[id]
	if !ok {
		return nil, nil, fmt.Errorf("refstore: no object with id %d", id)
	}
	s.cache.set(id, obj)
	return append([]byte(nil), obj.payload...), append([]objstore.Handle(nil), obj.refs...), nil
}

func (t *txn) Write(h objstore.Handle, payload []byte, refs []objstore.Handle) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.maybeRestart(); err != nil {
		return err
	}
	id, err := toID(h)
	if err != nil {
		return err
	}
	obj, ok := s.objects[id]
	if !ok {
		return fmt.Errorf("refstore: no object with id %d", id)
	}
	obj.payload = append([]byte(nil), payload...)
	obj.refs = append([]objstore.Handle(nil), refs...)
	s.cache.set(id, obj)
	return nil
}

func toID(h objstore.Handle) (uint64, error) {
	rh, ok := h.(handle)
	if !ok {
		return 0, fmt.Errorf("refstore: foreign handle type %T", h)
	}
	return rh.id, nil
}
