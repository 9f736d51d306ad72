package redis

import (
	"context"
	"fmt"
	"slices"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/holon/pkg/domain"
)

// CredentialStore implements ports.CredentialStore with one Redis hash per
// provider and a set indexing the providers.
type CredentialStore struct {
	client *backend.Client
	prefix string
}

// NewCredentialStore creates a credential store; an empty prefix means
// DefaultPrefix.
func NewCredentialStore(client *backend.Client, prefix string) *CredentialStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &CredentialStore{client: client, prefix: prefix}
}

func (s *CredentialStore) key(provider string) string {
	return s.prefix + "credentials:" + provider
}

func (s *CredentialStore) indexKey() string {
	return s.prefix + "credentials:index"
}

func (s *CredentialStore) Get(ctx context.Context, provider string) (map[string]string, error) {
	values, err := s.client.HGetAll(ctx, s.key(provider)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}
	if len(values) == 0 {
		return nil, domain.ErrCredentialsNotFound
	}
	return values, nil
}

func (s *CredentialStore) Set(ctx context.Context, provider string, values map[string]string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(provider))
	if len(values) > 0 {
		pipe.HSet(ctx, s.key(provider), values)
	}
	pipe.SAdd(ctx, s.indexKey(), provider)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

func (s *CredentialStore) Delete(ctx context.Context, provider string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(provider))
	pipe.SRem(ctx, s.indexKey(), provider)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *CredentialStore) List(ctx context.Context) ([]string, error) {
	providers, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	slices.Sort(providers)
	return providers, nil
}
