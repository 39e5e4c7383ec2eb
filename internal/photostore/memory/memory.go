// Package memory keeps meal photos in process memory. It is the default
// backend: sessions are throwaway and photos only need to survive long
// enough to be analyzed and displayed, so nothing has to touch disk.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/platelens/platelens/internal/photostore"
)

type MemoryPhotoStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	mimes   map[string]string
	counter int
}

func NewMemoryPhotoStore() *MemoryPhotoStore {
	return &MemoryPhotoStore{
		data:  make(map[string][]byte),
		mimes: make(map[string]string),
	}
}

func (m *MemoryPhotoStore) Save(_ context.Context, prefix, mimeType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read photo: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	key := fmt.Sprintf("%s_%d", prefix, m.counter)
	m.data[key] = data
	m.mimes[key] = mimeType
	return key, nil
}

func (m *MemoryPhotoStore) Get(_ context.Context, storageKey string) (io.ReadCloser, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[storageKey]
	if !ok {
		return nil, "", photostore.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), m.mimes[storageKey], nil
}

func (m *MemoryPhotoStore) Delete(_ context.Context, storageKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[storageKey]; !ok {
		return photostore.ErrNotFound
	}
	delete(m.data, storageKey)
	delete(m.mimes, storageKey)
	return nil
}
