package file

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
	"sync"

	"github.com/aretw0/holon/pkg/domain"
)

// CredentialStore implements ports.CredentialStore as a single JSON file
// mapping provider to key/value pairs. The file is written with mode 0600.
// Wrap it with middleware.NewEncryptionMiddleware to keep values encrypted
// at rest.
type CredentialStore struct {
	Path string
	mu   sync.Mutex
}

// NewCredentialStore creates a store backed by path.
func NewCredentialStore(path string) *CredentialStore {
	return &CredentialStore{Path: path}
}

func (s *CredentialStore) read() (map[string]map[string]string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	all := map[string]map[string]string{}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("failed to decode credentials: %w", err)
	}
	return all, nil
}

func (s *CredentialStore) write(all map[string]map[string]string) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	return writeAtomic(s.Path, data, 0o600)
}

func (s *CredentialStore) Get(_ context.Context, provider string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return nil, err
	}
	values, ok := all[provider]
	if !ok {
		return nil, domain.ErrCredentialsNotFound
	}
	return values, nil
}

func (s *CredentialStore) Set(_ context.Context, provider string, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return err
	}
	all[provider] = maps.Clone(values)
	return s.write(all)
}

func (s *CredentialStore) Delete(_ context.Context, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := all[provider]; !ok {
		return nil
	}
	delete(all, provider)
	return s.write(all)
}

func (s *CredentialStore) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(all)), nil
}
