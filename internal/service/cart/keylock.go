package cartservice

import (
	"strconv"
	"sync"
)

// keyLocker serializes callers that share a key. Entries are dropped once
// nobody holds or waits on them.
type keyLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocker() *keyLocker {
	return &keyLocker{locks: make(map[string]*keyLock)}
}

func (k *keyLocker) Lock(key string) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyLocker) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

func foodKey(foodId int64) string {
	return "food:" + strconv.FormatInt(foodId, 10)
}

func itemKey(cartItemId int64) string {
	return "item:" + strconv.FormatInt(cartItemId, 10)
}
