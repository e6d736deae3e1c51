package store

import (
	"sort"
	"sync"
)

// subscriberBuffer is the channel capacity of each subscription.
const subscriberBuffer = 100

// MemoryStore is an in-memory implementation of [Store].
//
// Snapshots are keyed by host ID, with new snapshots replacing previous
// values. Updates are sent to subscribers non-blocking; if a subscriber's
// buffer is full, the update is dropped for that subscriber.
type MemoryStore struct {
	mu          sync.RWMutex
	hosts       map[uint64]HostSnapshot
	subscribers map[chan HostSnapshot]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory [Store] implementation.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hosts:       make(map[uint64]HostSnapshot),
		subscribers: make(map[chan HostSnapshot]struct{}),
	}
}

// Update stores snapshot and notifies all subscribers.
func (m *MemoryStore) Update(snapshot HostSnapshot) {
	m.mu.Lock()
	m.hosts[snapshot.ID] = snapshot
	m.mu.Unlock()

	m.notifySubscribers(snapshot)
}

// Get returns the snapshot stored for id.
func (m *MemoryStore) Get(id uint64) (HostSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.hosts[id]
	return s, ok
}

// GetAll returns a copy of all stored snapshots ordered by host ID.
func (m *MemoryStore) GetAll() []HostSnapshot {
	m.mu.RLock()
	all := make([]HostSnapshot, 0, len(m.hosts))
	for _, s := range m.hosts {
		all = append(all, s)
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

// Subscribe creates a new subscription and returns a channel for receiving
// updates.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan HostSnapshot {
	ch := make(chan HostSnapshot, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan HostSnapshot) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	// the map is keyed by the bidirectional channel
	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends snapshot to all active subscribers without blocking.
func (m *MemoryStore) notifySubscribers(snapshot HostSnapshot) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- snapshot:
		default:
			// subscriber is slow, drop the message
		}
	}
}
