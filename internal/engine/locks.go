package engine

import "sync"

// keyedLocks hands out one mutex per user id. Every balance read-modify-write
// runs under the owner's lock, which is what makes account mutations atomic
// per key without any cross-user lock.
type keyedLocks struct {
	mu sync.Mutex
	m  map[int64]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{m: make(map[int64]*sync.Mutex)}
}

// lock acquires the mutex for id and returns its unlock func.
func (k *keyedLocks) lock(id int64) func() {
	k.mu.Lock()
	l := k.m[id]
	if l == nil {
		l = &sync.Mutex{}
		k.m[id] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
