package repository

import "sync"

// keyedLocks hands out reference counted RW mutexes per key so idle keys do
// not accumulate.
type keyedLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	rw   sync.RWMutex
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{entries: make(map[string]*lockEntry)}
}

func (k *keyedLocks) acquire(key string) *lockEntry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.entries[key]
	if !ok {
		e = &lockEntry{}
		k.entries[key] = e
	}
	e.refs++
	return e
}

func (k *keyedLocks) release(key string, e *lockEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

// Lock takes key exclusively and returns its unlock func.
func (k *keyedLocks) Lock(key string) func() {
	e := k.acquire(key)
	e.rw.Lock()
	return func() {
		e.rw.Unlock()
		k.release(key, e)
	}
}

// RLock takes key shared and returns its unlock func.
func (k *keyedLocks) RLock(key string) func() {
	e := k.acquire(key)
	e.rw.RLock()
	return func() {
		e.rw.RUnlock()
		k.release(key, e)
	}
}

func (k *keyedLocks) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

// lockParticipant serializes mutations of one participant's list. The shared
// event lock keeps them out of event-wide operations.
func (s *GormStore) lockParticipant(eventID, participantID string) func() {
	unlockEvent := s.eventLocks.RLock(eventID)
	unlockParticipant := s.participantLocks.Lock(eventID + "\x00" + participantID)
	return func() {
		unlockParticipant()
		unlockEvent()
	}
}

// lockEvent excludes every participant mutation in the event.
func (s *GormStore) lockEvent(eventID string) func() {
	return s.eventLocks.Lock(eventID)
}
