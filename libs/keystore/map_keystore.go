package keystore

import (
	"bytes"
	"fmt"
	"slices"
	"sync"
)

// memKeystore keeps keys in memory only. Keys are copied in and out,
// so callers never share a key body with the store.
type memKeystore struct {
	lk   sync.RWMutex
	keys map[KeyName][]byte
}

// NewMapKeystore constructs an in-memory Keystore, used by nodes that persist nothing.
func NewMapKeystore() Keystore {
	return &memKeystore{keys: make(map[KeyName][]byte)}
}

func (m *memKeystore) Put(n KeyName, k PrivKey) error {
	m.lk.Lock()
	defer m.lk.Unlock()

	if _, ok := m.keys[n]; ok {
		return fmt.Errorf("%w: %s", ErrExists, n)
	}
	m.keys[n] = bytes.Clone(k.Body)
	return nil
}

func (m *memKeystore) Get(n KeyName) (PrivKey, error) {
	m.lk.RLock()
	defer m.lk.RUnlock()

	body, ok := m.keys[n]
	if !ok {
		return PrivKey{}, fmt.Errorf("%w: %s", ErrNotFound, n)
	}
	return PrivKey{Body: bytes.Clone(body)}, nil
}

func (m *memKeystore) Delete(n KeyName) error {
	m.lk.Lock()
	defer m.lk.Unlock()

	if _, ok := m.keys[n]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, n)
	}
	delete(m.keys, n)
	return nil
}

// List returns the names of all the keys in lexicographic order.
func (m *memKeystore) List() ([]KeyName, error) {
	m.lk.RLock()
	defer m.lk.RUnlock()

	names := make([]KeyName, 0, len(m.keys))
	for n := range m.keys {
		names = append(names, n)
	}
	slices.Sort(names)
	return names, nil
}
