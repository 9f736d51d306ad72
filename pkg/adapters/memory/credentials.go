package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/aretw0/holon/pkg/domain"
)

// CredentialStore implements ports.CredentialStore in memory.
type CredentialStore struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

// NewCredentialStore creates an empty credential store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{data: make(map[string]map[string]string)}
}

func (s *CredentialStore) Get(_ context.Context, provider string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values, ok := s.data[provider]
	if !ok {
		return nil, domain.ErrCredentialsNotFound
	}
	return maps.Clone(values), nil
}

func (s *CredentialStore) Set(_ context.Context, provider string, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[provider] = maps.Clone(values)
	return nil
}

func (s *CredentialStore) Delete(_ context.Context, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, provider)
	return nil
}

func (s *CredentialStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.data)), nil
}
