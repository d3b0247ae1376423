package cache

import (
	"fmt"
	"time"

	"github.com/umputun/swipecache/app/store"
)

// Manager is the single access point to the offline cache. It owns the
// backing store and hands out the job cache and the pending queue sharing it.
// Construct one per database file and keep it for the life of the process;
// callers decide what to do when New fails, typically running with caching
// disabled.
type Manager struct {
	store   *store.Store
	jobs    *JobCache
	pending *PendingQueue
}

// New opens (or creates) the cache database at path and builds the facade.
// A non-positive ttl selects DefaultTTL.
func New(path string, ttl time.Duration) (*Manager, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache store: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		store:   st,
		jobs:    &JobCache{store: st, ttl: ttl, now: time.Now},
		pending: &PendingQueue{store: st},
	}, nil
}

// Jobs returns the job feed snapshot cache.
func (m *Manager) Jobs() *JobCache { return m.jobs }

// Pending returns the queue of swipes awaiting delivery.
func (m *Manager) Pending() *PendingQueue { return m.pending }

// Close releases the backing store. The manager is unusable afterwards.
func (m *Manager) Close() error {
	return m.store.Close()
}
