package analysis

import (
	"sync"

	"github.com/couchcryptid/weather-insight-service/internal/domain"
)

// LatestSlot holds the most recent finished analysis. Every request takes a
// sequence number up front; a result is only accepted if no newer request has
// already committed, so a slow early request never overwrites a later one.
type LatestSlot struct {
	mu        sync.Mutex
	next      uint64
	committed uint64
	snapshot  domain.Snapshot
	has       bool
}

// Begin reserves the next sequence number.
func (s *LatestSlot) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return s.next
}

// Commit stores the snapshot if seq is not older than the newest accepted
// result. It reports whether the snapshot was stored.
func (s *LatestSlot) Commit(seq uint64, snap domain.Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.committed {
		return false
	}
	s.committed = seq
	s.snapshot = snap
	s.has = true
	return true
}

// Latest returns the current snapshot and whether one exists.
func (s *LatestSlot) Latest() (domain.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot, s.has
}
