package script

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// acquired locks key on a goroutine and closes the returned channel once held
func acquired(lm *LockManager, key string) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		lm.Lock(key)
		close(done)
	}()
	return done
}

func TestLockManager_KeysAreIndependent(t *testing.T) {
	lm := NewLockManager()
	lm.Lock("deploy")

	select {
	case <-acquired(lm, "notify"):
	case <-time.After(time.Second):
		t.Fatal("Lock on a different key should not block")
	}
	lm.Unlock("notify")

	second := acquired(lm, "deploy")
	select {
	case <-second:
		t.Fatal("Lock on a held key should block")
	case <-time.After(50 * time.Millisecond):
	}

	lm.Unlock("deploy")
	select {
	case <-second:
	case <-time.After(time.Second):
		t.Fatal("Lock should be acquired after unlock")
	}
	lm.Unlock("deploy")
}

func TestLockManager_UnlockUnknownKey(t *testing.T) {
	lm := NewLockManager()
	// must not panic
	lm.Unlock("never-locked")
}

func TestLockManager_LockSerializes(t *testing.T) {
	lm := NewLockManager()

	var active, maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lm.Lock("deploy")
			defer lm.Unlock("deploy")

			n := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxActive)
				if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}

	wg.Wait()

	if maxActive != 1 {
		t.Errorf("Expected at most 1 concurrent holder, got %d", maxActive)
	}
}
