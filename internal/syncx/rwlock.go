package syncx

import "sync"

// RWLock is a readers-preferred reader/writer lock.
//
// Readers wait only while a writer holds the lock, so a steady stream of
// readers can keep a writer waiting; writers wait until there is neither an
// active reader nor another writer. The zero value is ready to use.
type RWLock struct {
	// mu protects readers and writing.
	mu sync.Mutex
	// cond is signaled whenever readers drops to zero or a writer leaves.
	cond *sync.Cond
	// readers is the number of readers inside the lock.
	readers int
	// writing is true while a writer holds the lock.
	writing bool
}

func (l *RWLock) init() {
	if l.cond == nil {
		l.cond = sync.NewCond(&l.mu)
	}
}

// RLock acquires shared access.
func (l *RWLock) RLock() {
	l.mu.Lock()
	l.init()

	for l.writing {
		l.cond.Wait()
	}

	l.readers++
	l.mu.Unlock()
}

// RUnlock releases shared access.
func (l *RWLock) RUnlock() {
	l.mu.Lock()
	l.init()

	if l.readers <= 0 {
		l.mu.Unlock()
		panic("syncx: RUnlock of unlocked RWLock")
	}

	l.readers--
	if l.readers == 0 {
		l.cond.Broadcast()
	}

	l.mu.Unlock()
}

// Lock acquires exclusive access.
func (l *RWLock) Lock() {
	l.mu.Lock()
	l.init()

	for l.writing || l.readers > 0 {
		l.cond.Wait()
	}

	l.writing = true
	l.mu.Unlock()
}

// Unlock releases exclusive access.
func (l *RWLock) Unlock() {
	l.mu.Lock()
	l.init()

	if !l.writing {
		l.mu.Unlock()
		panic("syncx: Unlock of unlocked RWLock")
	}

	l.writing = false
	l.cond.Broadcast()
	l.mu.Unlock()
}
