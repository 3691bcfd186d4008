package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/coinscope/coinscope/pkg/types"
)

// Entry is a snapshot together with the time it was last received.
type Entry struct {
	Snapshot  *types.MarketSnapshot
	UpdatedAt time.Time
}

// Store is a thread-safe in-memory snapshot store, keyed by source_id.
// A background goroutine (Run) periodically evicts entries that have not
// been updated within the configured TTL.
type Store struct {
	mu   sync.RWMutex
	data map[string]*Entry
	ttl  time.Duration
	now  func() time.Time // injectable for deterministic tests
}

// New creates a Store with the given TTL.
func New(ttl time.Duration) *Store {
	return &Store{
		data: make(map[string]*Entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// TTL returns how long an entry stays live after its last update.
func (s *Store) TTL() time.Duration { return s.ttl }

// Put stores or replaces the snapshot for snap.SourceID.
// Callers must not modify snap after calling Put.
func (s *Store) Put(snap *types.MarketSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[snap.SourceID] = &Entry{
		Snapshot:  snap,
		UpdatedAt: s.now(),
	}
}

// Get returns the Entry for the given source ID and a boolean indicating
// whether an entry was found. The entry may be stale if TTL has elapsed.
func (s *Store) Get(sourceID string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[sourceID]
	return e, ok
}

// List returns all entries updated within the TTL, ordered by source ID.
// Stale entries that have not yet been evicted are excluded.
func (s *Store) List() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := s.now().Add(-s.ttl)
	out := make([]*Entry, 0, len(s.data))
	for _, e := range s.data {
		if e.UpdatedAt.After(cutoff) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Snapshot.SourceID < out[j].Snapshot.SourceID
	})
	return out
}

// Latest returns the most recently updated live entry. With several agents
// this is the freshest market view.
func (s *Store) Latest() (*Entry, bool) {
	return s.LatestWhere(nil)
}

// LatestWhere is Latest restricted to snapshots accepted by keep.
// A nil keep accepts every snapshot.
func (s *Store) LatestWhere(keep func(*types.MarketSnapshot) bool) (*Entry, bool) {
	var best *Entry
	for _, e := range s.List() {
		if keep != nil && !keep(e.Snapshot) {
			continue
		}
		if best == nil || e.UpdatedAt.After(best.UpdatedAt) {
			best = e
		}
	}
	return best, best != nil
}

// Count returns the total number of entries currently held, including stale ones.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Evict removes entries whose UpdatedAt is older than now minus TTL.
// It returns the number of entries removed.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.ttl)
	removed := 0
	for id, e := range s.data {
		if !e.UpdatedAt.After(cutoff) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

// Run starts the background TTL eviction loop. It ticks at half the TTL
// (minimum 1 second) and blocks until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Info("store: evicted stale snapshots", "count", n)
			}
		}
	}
}
