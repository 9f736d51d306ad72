package middleware

import (
	"context"
	"maps"
	"regexp"

	"github.com/aretw0/holon/pkg/ports"
)

// Mask replaces redacted values.
const Mask = "***"

// DefaultSecretPatterns match the credential keys redacted by default.
var DefaultSecretPatterns = []string{`(?i)key`, `(?i)secret`, `(?i)token`, `(?i)password`}

type redactionMiddleware struct {
	next     ports.CredentialStore
	patterns []*regexp.Regexp
}

// NewRedactionMiddleware creates a middleware that masks, on Get, the values
// of keys matching any of the patterns. Writes go through untouched, so the
// wrapped view is safe to hand to display surfaces.
func NewRedactionMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.CredentialStore) ports.CredentialStore {
		return &redactionMiddleware{next: next, patterns: patterns}
	}
}

func (m *redactionMiddleware) Get(ctx context.Context, provider string) (map[string]string, error) {
	values, err := m.next.Get(ctx, provider)
	if err != nil {
		return nil, err
	}
	masked := maps.Clone(values)
	for k := range masked {
		for _, p := range m.patterns {
			if p.MatchString(k) {
				masked[k] = Mask
				break
			}
		}
	}
	return masked, nil
}

func (m *redactionMiddleware) Set(ctx context.Context, provider string, values map[string]string) error {
	return m.next.Set(ctx, provider, values)
}

func (m *redactionMiddleware) Delete(ctx context.Context, provider string) error {
	return m.next.Delete(ctx, provider)
}

func (m *redactionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
