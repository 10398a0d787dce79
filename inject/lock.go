package inject

import "sync"

// LockManager hands out one mutex per binding, so that a singleton is never built twice.
type LockManager struct {
	mu    sync.Mutex
	locks map[slot]*sync.Mutex
}

func NewLockManager() *LockManager {
	return &LockManager{
		locks: make(map[slot]*sync.Mutex),
	}
}

func (lm *LockManager) GetLockFor(id slot) *sync.Mutex {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if lock, exists := lm.locks[id]; exists {
		return lock
	}

	lock := &sync.Mutex{}
	lm.locks[id] = lock
	return lock
}

// ReleaseLock forgets the mutex of a binding once its singleton is stored. Goroutines still waiting on the
// forgotten mutex, and the ones getting a new mutex, find the singleton in the store once they hold their lock.
// A failed build must keep its mutex, so that the retries stay serialized.
func (lm *LockManager) ReleaseLock(id slot) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	delete(lm.locks, id)
}
