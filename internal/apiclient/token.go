package apiclient

import (
	"context"
	"sync/atomic"
)

// TokenProvider produces a bearer token on demand. An empty token means "none".
type TokenProvider func(ctx context.Context) (string, error)

// TokenSource holds the active TokenProvider. The client is built before anyone has
// logged in, so the provider is swapped in and out as the session changes.
type TokenSource struct {
	provider atomic.Pointer[TokenProvider]
}

// NewTokenSource returns a source with no provider installed.
func NewTokenSource() *TokenSource {
	return &TokenSource{}
}

// Set installs the provider. Last write wins; nil disables token attachment.
func (s *TokenSource) Set(p TokenProvider) {
	if p == nil {
		s.provider.Store(nil)
		return
	}
	s.provider.Store(&p)
}

// Provider returns the current provider or nil.
func (s *TokenSource) Provider() TokenProvider {
	p := s.provider.Load()
	if p == nil {
		return nil
	}
	return *p
}

// StaticToken returns a provider that always yields token.
func StaticToken(token string) TokenProvider {
	return func(context.Context) (string, error) {
		return token, nil
	}
}
