package ingest

import "sync"

// collectionLocks hands out one mutex per collection name. Entries are
// removed once no goroutine holds or waits for them.
type collectionLocks struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

func newCollectionLocks() *collectionLocks {
	return &collectionLocks{locks: make(map[string]*refLock)}
}

// lock blocks until name is free and returns the matching unlock.
func (c *collectionLocks) lock(name string) func() {
	c.mu.Lock()
	l, ok := c.locks[name]
	if !ok {
		l = &refLock{}
		c.locks[name] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, name)
		}
		c.mu.Unlock()
	}
}

func (c *collectionLocks) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.locks)
}
