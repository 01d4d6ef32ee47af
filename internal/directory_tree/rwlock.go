package directory_tree

import "sync"

// RWLock admits many shared holders or one exclusive holder. Once an
// exclusive request is waiting, new shared requests queue behind it, so a
// writer is granted the lock as soon as the current readers drain.
//
// Unlike sync.RWMutex, releasing a lock that is not held returns an error
// instead of panicking.
type RWLock struct {
	mu             sync.Mutex
	cond           *sync.Cond
	readers        int
	writer         bool
	waitingWriters int
}

func NewRWLock() *RWLock {
	l := &RWLock{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *RWLock) Lock(exclusive bool) {
	if exclusive {
		l.lockExclusive()
		return
	}
	l.lockShared()
}

func (l *RWLock) Unlock(exclusive bool) error {
	if exclusive {
		return l.unlockExclusive()
	}
	return l.unlockShared()
}

func (l *RWLock) lockShared() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for l.writer || l.waitingWriters > 0 {
		l.cond.Wait()
	}
	l.readers++
}

func (l *RWLock) lockExclusive() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.waitingWriters++
	for l.writer || l.readers > 0 {
		l.cond.Wait()
	}
	l.waitingWriters--
	l.writer = true
}

func (l *RWLock) unlockShared() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.readers == 0 {
		return ErrInvalidState
	}
	l.readers--
	if l.readers == 0 {
		l.cond.Broadcast()
	}
	return nil
}

func (l *RWLock) unlockExclusive() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.writer {
		return ErrInvalidState
	}
	l.writer = false
	l.cond.Broadcast()
	return nil
}

// held reports whether the lock is currently held in the given mode.
func (l *RWLock) held(exclusive bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if exclusive {
		return l.writer
	}
	return l.readers > 0
}

// holders reports the current shared count and whether an exclusive holder
// exists.
func (l *RWLock) holders() (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readers, l.writer
}
