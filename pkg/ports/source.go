package ports

import "context"

// SourceStore defines where workflow source files live.
// Names are slash-separated and carry the .go extension, e.g. "flows/main.go".
type SourceStore interface {
	// Load returns the source text stored under name.
	// Returns domain.ErrSourceNotFound if nothing is stored there.
	Load(ctx context.Context, name string) ([]byte, error)

	// Save replaces the source text stored under name.
	Save(ctx context.Context, name string, src []byte) error

	// Delete removes name. Deleting a missing name is not an error.
	Delete(ctx context.Context, name string) error

	// List returns every stored name, sorted.
	List(ctx context.Context) ([]string, error)
}

// Watchable defines an interface for stores that can notify about backend changes.
// This is typically used for hot-reload or dev-mode functionality.
type Watchable interface {
	// Watch returns a channel receiving the name of every changed source.
	// The channel is closed when ctx is done.
	Watch(ctx context.Context) (<-chan string, error)
}
