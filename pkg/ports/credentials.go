package ports

import "context"

// CredentialStore keeps the credentials of model and tool providers,
// one key/value map per provider (e.g. "openai" -> {"api_key": "..."}).
type CredentialStore interface {
	// Get returns the credentials of provider.
	// Returns domain.ErrCredentialsNotFound if none are stored.
	Get(ctx context.Context, provider string) (map[string]string, error)

	// Set replaces the credentials of provider.
	Set(ctx context.Context, provider string, values map[string]string) error

	// Delete removes provider. Deleting a missing provider is not an error.
	Delete(ctx context.Context, provider string) error

	// List returns the providers with stored credentials, sorted.
	List(ctx context.Context) ([]string, error)
}
