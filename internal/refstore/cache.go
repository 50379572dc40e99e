package refstore

import (
	"io"
	"log"

	"github.com/dgraph-io/ristretto/v2"
)

// handleCache is an admission/eviction cache in front of Store's object
// table, playing the role bplustree.BufferPool plays for the teacher's
// on-disk pager: a real store would pay a network round trip per Read, so
// even this in-memory reference double models that cost being worth
// caching. Eviction here only drops the cache's own bookkeeping — the
// object table in Store.objects remains authoritative, so a cache miss
// just costs a map lookup, never data loss.
type handleCache struct {
	c      *ristretto.Cache[uint64, *object]
	logger *log.Logger
}

func newHandleCache(capacity int64) (*handleCache, error) {
	if capacity <= 0 {
		capacity = 1024
	}
	c, err := ristretto.NewCache(&ristretto.Config[uint64, *object]{
		NumCounters: capacity * 10,
		MaxCost:     capacity,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &handleCache{c: c, logger: log.New(io.Discard, "", 0)}, nil
}

func (h *handleCache) get(id uint64) (*object, bool) {
	obj, ok := h.c.Get(id)
	if ok {
		h.logger.Printf("[refstore] HIT id=%d", id)
	} else {
		h.logger.Printf("[refstore] MISS id=%d", id)
	}
	return obj, ok
}

func (h *handleCache) set(id uint64, obj *object) {
	h.c.Set(id, obj, 1)
}
