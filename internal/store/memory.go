package store

import (
	"sync"
)

// subscriberBuffer is the per-subscriber channel depth. A full buffer means
// the subscriber misses updates rather than blocking the poll path.
const subscriberBuffer = 16

// MemoryStore is an in-memory implementation of [Store].
//
// MemoryStore keeps only the latest snapshot; each update supersedes the
// previous one, mirroring the poll semantics upstream. Subscribers receive
// updates via buffered channels with non-blocking sends.
type MemoryStore struct {
	mu        sync.RWMutex
	latest    Snapshot
	hasLatest bool

	subMu       sync.RWMutex
	subscribers map[chan Snapshot]struct{}
}

// NewMemoryStore creates a new in-memory [Store] implementation.
//
// The store is immediately ready for use. No cleanup is required when done.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// Update stores a [Snapshot] and notifies all subscribers.
func (m *MemoryStore) Update(s Snapshot) {
	m.mu.Lock()
	m.latest = s
	m.hasLatest = true
	m.mu.Unlock()

	m.notifySubscribers(s)
}

// Latest returns the most recent snapshot, and false if none was stored yet.
func (m *MemoryStore) Latest() (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest, m.hasLatest
}

// Subscribe creates a new subscription and returns a channel for updates.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource
// leaks.
func (m *MemoryStore) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Snapshot) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends the snapshot to all active subscribers.
//
// Non-blocking: a subscriber whose buffer is full misses this update rather
// than stalling the poll path.
func (m *MemoryStore) notifySubscribers(s Snapshot) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- s:
		default:
			// subscriber is slow, drop the message
		}
	}
}
