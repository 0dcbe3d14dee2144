// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tempo Contributors

package session

import (
	"sync"
)

// entry pairs a session with its own lock so mutations of unrelated
// sessions never contend.
type entry struct {
	mu sync.Mutex
	s  *Session
}

// Store is a keyed registry of live sessions. It owns the canonical copy
// of every Session; Get and Snapshot hand out value copies. A Store is
// an explicitly constructed instance with lifecycle scoped to its owner,
// not a process-wide singleton.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// PutIfAbsent registers a session under its token. Returns false without
// storing if a live session already holds the token.
func (st *Store) PutIfAbsent(s *Session) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, exists := st.entries[s.Token]; exists {
		return false
	}
	copied := *s
	st.entries[s.Token] = &entry{s: &copied}
	return true
}

// Get returns a copy of the session for token. The copy is safe to read
// without synchronization and mutating it has no effect on the Store.
func (st *Store) Get(token string) (Session, bool) {
	st.mu.RLock()
	e, ok := st.entries[token]
	st.mu.RUnlock()
	if !ok {
		return Session{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// The entry may have been removed between the map read and taking
	// the entry lock.
	if e.s == nil {
		return Session{}, false
	}
	return *e.s, true
}

// Mutate runs fn against the canonical session for token while holding
// that session's lock, serializing it against concurrent mutations of the
// same session. The store-wide lock is not held while fn runs. Returns
// ErrNotFound if the token has no live session.
func (st *Store) Mutate(token string, fn func(*Session) error) error {
	st.mu.RLock()
	e, ok := st.entries[token]
	st.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// The entry may have been removed between the map read and taking
	// the entry lock.
	if e.s == nil {
		return ErrNotFound
	}
	return fn(e.s)
}

// Remove deletes the session for token. Removing an absent token is a
// no-op. Terminal: the failed-attempt counter and all other state are
// discarded with the entry.
func (st *Store) Remove(token string) {
	st.mu.Lock()
	e, ok := st.entries[token]
	if ok {
		delete(st.entries, token)
	}
	st.mu.Unlock()
	if !ok {
		return
	}

	// Mark the detached entry dead for mutators that already hold a
	// reference to it.
	e.mu.Lock()
	e.s = nil
	e.mu.Unlock()
}

// Snapshot returns copies of all live sessions. The store-wide lock is
// held only long enough to collect entries, so a slow consumer never
// blocks the whole store.
func (st *Store) Snapshot() []Session {
	st.mu.RLock()
	refs := make([]*entry, 0, len(st.entries))
	for _, e := range st.entries {
		refs = append(refs, e)
	}
	st.mu.RUnlock()

	out := make([]Session, 0, len(refs))
	for _, e := range refs {
		e.mu.Lock()
		if e.s != nil {
			out = append(out, *e.s)
		}
		e.mu.Unlock()
	}
	return out
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.entries)
}
