package repositories

import (
	"context"
	"strings"
)

type scopedStore struct {
	inner  KeyValueStore
	prefix string
}

// NewScopedStore namespaces every key under scope, giving each client its
// own view of a shared store. An empty scope returns inner unchanged.
func NewScopedStore(inner KeyValueStore, scope string) KeyValueStore {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return inner
	}
	return &scopedStore{inner: inner, prefix: scope + ":"}
}

func (s *scopedStore) Get(ctx context.Context, key string) (string, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s *scopedStore) Set(ctx context.Context, key, value string) error {
	return s.inner.Set(ctx, s.prefix+key, value)
}

func (s *scopedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.prefix+key)
}
