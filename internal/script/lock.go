package script

import "sync"

// LockManager hands out one mutex per key so runs of the same script are
// serialized while different scripts run concurrently.
//
// The outer mutex protects only the map. Per-key mutexes are created on first
// use and never removed; the key space is the fixed set of configured rules.
type LockManager struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLockManager creates an empty lock manager
func NewLockManager() *LockManager {
	return &LockManager{
		locks: make(map[string]*sync.Mutex),
	}
}

func (lm *LockManager) get(key string) *sync.Mutex {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lock, exists := lm.locks[key]
	if !exists {
		lock = &sync.Mutex{}
		lm.locks[key] = lock
	}
	return lock
}

// Lock blocks until the lock for key is held.
func (lm *LockManager) Lock(key string) {
	lm.get(key).Lock()
}

// Unlock releases the lock for key. Unlocking an unknown key is a no-op.
func (lm *LockManager) Unlock(key string) {
	lm.mu.Lock()
	lock := lm.locks[key]
	lm.mu.Unlock()

	if lock != nil {
		lock.Unlock()
	}
}
