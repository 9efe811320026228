package memoryengine

import (
	"context"
	"sync"
	"time"

	"github.com/liblend/lending-engine-go/lending"
)

// keyedMutex provides one mutex per int64 key, created on demand.
//
// Each entry is a one-slot channel semaphore so lock acquisition can respect
// a deadline: a caller that cannot obtain the slot in time fails with
// lending.ErrBusy instead of blocking indefinitely. Entries are never
// removed; the key space (copies, patrons, loans) is small and long-lived.
type keyedMutex struct {
	mu    sync.Mutex
	slots map[int64]chan struct{}
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{
		slots: make(map[int64]chan struct{}),
	}
}

func (k *keyedMutex) slot(key int64) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()

	slot, ok := k.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		k.slots[key] = slot
	}

	return slot
}

// lock acquires the mutex for key, waiting at most timeout (or until the
// context is done, whichever comes first).
func (k *keyedMutex) lock(ctx context.Context, key int64, timeout time.Duration) error {
	slot := k.slot(key)

	select {
	case slot <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case slot <- struct{}{}:
		return nil
	case <-timer.C:
		return lending.ErrBusy
	case <-ctx.Done():
		return lending.ErrBusy
	}
}

// unlock releases the mutex for key. Unlocking a key that is not held panics,
// matching sync.Mutex semantics.
func (k *keyedMutex) unlock(key int64) {
	slot := k.slot(key)

	select {
	case <-slot:
	default:
		panic("keyedMutex: unlock of unlocked key")
	}
}
