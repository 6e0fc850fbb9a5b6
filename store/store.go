package store

import "sync"

// Store defines a public type used by farmsession APIs.
//
// Store is the persistence contract for the credential pair and cached session
// user. Implementations never return errors: Get reports absence on failure,
// Set and Remove report false. Implementations must be safe for concurrent use.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) bool
	Remove(key string) bool
}

// Memory defines a public type used by farmsession APIs.
//
// Memory is an in-process Store backed by a mutex-guarded map. The zero value
// is not usable; construct with NewMemory.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory describes the newmemory operation and its observable behavior.
//
// NewMemory returns an empty in-process store. It never fails.
func NewMemory() *Memory {
	return &Memory{
		values: make(map[string]string),
	}
}

// Get describes the get operation and its observable behavior.
//
// Get reports the stored value and whether it was present.
// Get does not mutate shared global state and can be used concurrently.
func (m *Memory) Get(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	return v, ok
}

// Set describes the set operation and its observable behavior.
//
// Set stores the value under key and reports success. The in-memory backend
// cannot fail, so Set always reports true on a constructed store.
func (m *Memory) Set(key, value string) bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return true
}

// Remove describes the remove operation and its observable behavior.
//
// Remove deletes the value under key. Removing an absent key still reports
// true: the post-condition (key absent) holds either way.
func (m *Memory) Remove(key string) bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return true
}
