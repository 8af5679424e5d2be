package issuer

import (
	"sync"

	"github.com/google/uuid"
)

type lockKey struct {
	companyID uuid.UUID
	series    int
}

// seriesLocks serializes emissions per (company, series) so the sequence
// counter is read and bumped by one emission at a time.
type seriesLocks struct {
	mu    sync.Mutex
	locks map[lockKey]*sync.Mutex
}

func newSeriesLocks() *seriesLocks {
	return &seriesLocks{locks: make(map[lockKey]*sync.Mutex)}
}

func (s *seriesLocks) acquire(companyID uuid.UUID, series int) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := lockKey{companyID: companyID, series: series}
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}

	return lock
}
