package catalog

import (
	"sync"
	"time"
)

// index caches the external id -> catalog id mapping of a whole library so
// repeated Exists checks within a pass cost one request.
type index struct {
	mu      sync.RWMutex
	ids     map[string]int64
	expires time.Time
	ttl     time.Duration
}

func newIndex(ttl time.Duration) *index {
	return &index{ttl: ttl}
}

func (i *index) get() (map[string]int64, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.ids == nil || time.Now().After(i.expires) {
		return nil, false
	}
	return i.ids, true
}

func (i *index) set(ids map[string]int64) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.ids = ids
	i.expires = time.Now().Add(i.ttl)
}

func (i *index) invalidate() {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.ids = nil
}
