package service

import "sync"

// userLocks serializes timer mutations per user so that stop-then-create in
// Start cannot interleave with another mutation for the same user. Locks for
// different users are independent. Mutexes are kept for the life of the
// process; the footprint is one mutex per user ever seen.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the user's mutex and returns the unlock function.
func (l *userLocks) lock(userID string) func() {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
