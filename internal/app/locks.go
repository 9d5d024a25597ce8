package service

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const defaultLockStripes = 64

// stripedLocks serialises work per item id. Ids hashing to the same stripe
// share a mutex; distinct stripes proceed in parallel.
type stripedLocks struct {
	stripes []sync.Mutex
}

func newStripedLocks(n int) *stripedLocks {
	if n < 1 {
		n = defaultLockStripes
	}
	return &stripedLocks{stripes: make([]sync.Mutex, n)}
}

func (l *stripedLocks) stripe(id string) int {
	return int(xxhash.Sum64String(id) % uint64(len(l.stripes)))
}

// lock acquires the stripe for id and returns its unlock function.
func (l *stripedLocks) lock(id string) func() {
	m := &l.stripes[l.stripe(id)]
	m.Lock()
	return m.Unlock
}
