package server

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// memStore is an in-memory BlobStore. It backs unit tests and the
// DR_STORE=memory development mode; contents are lost on process exit.
type memStore struct {
	mu         sync.RWMutex
	namespaces map[string]map[string][]byte
}

// NewMemStore returns an empty in-memory blob store.
func NewMemStore() BlobStore {
	return &memStore{namespaces: make(map[string]map[string][]byte)}
}

func (s *memStore) CreateNamespace(_ context.Context, ns string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.namespaces[ns]; !ok {
		s.namespaces[ns] = make(map[string][]byte)
	}
	return nil
}

func (s *memStore) NamespaceExists(_ context.Context, ns string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.namespaces[ns]
	return ok, nil
}

func (s *memStore) RemoveNamespace(_ context.Context, ns string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.namespaces, ns)
	return nil
}

func (s *memStore) Put(_ context.Context, ns, name string, r io.Reader, _ int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	blobs, ok := s.namespaces[ns]
	if !ok {
		return ErrRoomNotFound
	}
	blobs[name] = data
	return nil
}

func (s *memStore) Get(_ context.Context, ns, name string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blobs, ok := s.namespaces[ns]
	if !ok {
		return nil, ErrRoomNotFound
	}
	data, ok := blobs[name]
	if !ok {
		return nil, ErrFileNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return io.NopCloser(bytes.NewReader(cp)), nil
}

func (s *memStore) Remove(_ context.Context, ns, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if blobs, ok := s.namespaces[ns]; ok {
		delete(blobs, name)
	}
	return nil
}
