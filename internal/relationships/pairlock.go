// internal/relationships/pairlock.go

package relationships

import "sync"

// pairLock serializes mutations per unordered user pair so the
// read-then-write sequences in the service keep the edge invariants
// consistent without blocking unrelated pairs.
type pairLock struct {
	mu    sync.Mutex
	locks map[[2]int64]*pairEntry
}

type pairEntry struct {
	sync.Mutex
	refs int
}

func newPairLock() *pairLock {
	return &pairLock{
		locks: make(map[[2]int64]*pairEntry),
	}
}

func pairKey(a, b int64) [2]int64 {
	if a > b {
		a, b = b, a
	}
	return [2]int64{a, b}
}

// Lock acquires the mutex for the unordered pair {a,b} and returns
// the unlock function.
func (p *pairLock) Lock(a, b int64) func() {
	key := pairKey(a, b)

	p.mu.Lock()
	entry, ok := p.locks[key]
	if !ok {
		entry = &pairEntry{}
		p.locks[key] = entry
	}
	entry.refs++
	p.mu.Unlock()

	entry.Mutex.Lock()

	return func() {
		entry.Mutex.Unlock()

		p.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(p.locks, key)
		}
		p.mu.Unlock()
	}
}
