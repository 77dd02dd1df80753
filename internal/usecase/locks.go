package usecase

import "sync"

// keyedLock serializes mutating operations per article id. Locks are never
// removed; the map is bounded by the number of articles ever touched.
type keyedLock struct {
	mu    sync.Mutex
	locks map[uint64]*sync.Mutex
}

func newKeyedLock() *keyedLock {
	return &keyedLock{locks: make(map[uint64]*sync.Mutex)}
}

// lock acquires the mutex for id and returns its unlock function.
func (k *keyedLock) lock(id uint64) func() {
	k.mu.Lock()
	m, ok := k.locks[id]
	if !ok {
		m = &sync.Mutex{}
		k.locks[id] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
