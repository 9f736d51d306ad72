// Package memory provides in-memory implementations of the holon ports.
// They are safe for concurrent use and meant for tests, embedding and the
// single-process devserver.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/holon/pkg/domain"
)

// Store implements ports.SourceStore and ports.Watchable in memory.
// Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	data     map[string][]byte
	watchers []chan string
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{data: make(map[string][]byte)}
}

// NewStoreFrom creates a store preloaded with sources keyed by name.
func NewStoreFrom(sources map[string]string) *Store {
	s := NewStore()
	for name, src := range sources {
		s.data[name] = []byte(src)
	}
	return s
}

// Load returns a copy of the stored source.
func (s *Store) Load(_ context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src, ok := s.data[name]
	if !ok {
		return nil, domain.ErrSourceNotFound
	}
	return slices.Clone(src), nil
}

// Save stores a copy of src and notifies watchers.
func (s *Store) Save(_ context.Context, name string, src []byte) error {
	s.mu.Lock()
	s.data[name] = slices.Clone(src)
	watchers := slices.Clone(s.watchers)
	s.mu.Unlock()

	s.notify(watchers, name)
	return nil
}

// Delete removes the source and notifies watchers if it existed.
func (s *Store) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	_, existed := s.data[name]
	delete(s.data, name)
	watchers := slices.Clone(s.watchers)
	s.mu.Unlock()

	if existed {
		s.notify(watchers, name)
	}
	return nil
}

// List returns the stored names, sorted.
func (s *Store) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// Watch reports every Save and Delete until ctx is done. A watcher that
// falls behind misses notifications rather than blocking writers.
func (s *Store) Watch(ctx context.Context) (<-chan string, error) {
	ch := make(chan string, 16)

	s.mu.Lock()
	s.watchers = append(s.watchers, ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		s.watchers = slices.DeleteFunc(s.watchers, func(c chan string) bool { return c == ch })
		s.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

func (s *Store) notify(watchers []chan string, name string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range watchers {
		// a watcher removed meanwhile has a closed channel
		if !slices.Contains(s.watchers, ch) {
			continue
		}
		select {
		case ch <- name:
		default:
		}
	}
}
