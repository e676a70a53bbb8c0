package sqlite

import (
	"sync"

	"github.com/iamwavecut/ngmod/internal/db"
)

// keyLock hands out one mutex per member key and forgets it once nobody holds or waits for it.
type keyLock struct {
	mu    sync.Mutex
	locks map[db.MemberKey]*keyLockEntry
}

type keyLockEntry struct {
	sync.Mutex
	refs int
}

func newKeyLock() *keyLock {
	return &keyLock{locks: make(map[db.MemberKey]*keyLockEntry)}
}

// Lock blocks until key is free and returns the matching unlock.
func (k *keyLock) Lock(key db.MemberKey) (unlock func()) {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyLockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.Lock()
	return func() {
		entry.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyLock) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
