package store

import (
	"fmt"
	"sync"

	"godct/block"
)

// Store is a blob store for named tensors. Save overwrites any previous
// payload under the same name; Load fills a preallocated destination whose
// dimensions fix how many bytes the payload must carry.
type Store interface {
	Save(name string, layout Layout, b *block.Blocked) error
	Load(name string, layout Layout, into *block.Blocked) error
	Delete(name string) error
	Close() error
}

// Memory is an in-process Store backed by a map. Safe for concurrent use.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

// Save encodes b and keeps the payload under name.
func (m *Memory) Save(name string, layout Layout, b *block.Blocked) error {
	payload, err := encode(b, layout)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.blobs[name] = payload
	m.mu.Unlock()
	return nil
}

// Load decodes the payload under name into the destination tensor.
func (m *Memory) Load(name string, layout Layout, into *block.Blocked) error {
	m.mu.RLock()
	payload, ok := m.blobs[name]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return decode(payload, layout, into)
}

// Delete drops the payload under name. Missing names are not an error.
func (m *Memory) Delete(name string) error {
	m.mu.Lock()
	delete(m.blobs, name)
	m.mu.Unlock()
	return nil
}

// Close releases the map.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.blobs = nil
	m.mu.Unlock()
	return nil
}
