package scope

import (
	"context"
	"sync"

	"github.com/goliatone/go-productwebhook/core"
)

type MemoryOption func(*MemorySource)

func WithCipher(cipher core.SecretCipher) MemoryOption {
	return func(s *MemorySource) {
		s.resolver = NewResolver(cipher)
	}
}

// MemorySource keeps scoped settings in process. Every EndpointConfig call
// resolves the current values; nothing is cached.
type MemorySource struct {
	mu       sync.RWMutex
	values   map[Ref]Values
	resolver *Resolver
}

func NewMemorySource(opts ...MemoryOption) *MemorySource {
	source := &MemorySource{
		values:   map[Ref]Values{},
		resolver: NewResolver(nil),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(source)
	}
	return source
}

func (s *MemorySource) Set(ref Ref, key string, value string) error {
	ref, err := NormalizeRef(ref)
	if err != nil {
		return err
	}
	key, err = NormalizeKey(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values[ref] == nil {
		s.values[ref] = Values{}
	}
	s.values[ref][key] = value
	return nil
}

// SetValues replaces every value of ref.
func (s *MemorySource) SetValues(ref Ref, values Values) error {
	ref, err := NormalizeRef(ref)
	if err != nil {
		return err
	}
	next := Values{}
	for key, value := range values {
		normalized, err := NormalizeKey(key)
		if err != nil {
			return err
		}
		next[normalized] = value
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[ref] = next
	return nil
}

func (s *MemorySource) Delete(ref Ref, key string) error {
	ref, err := NormalizeRef(ref)
	if err != nil {
		return err
	}
	key, err = NormalizeKey(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values[ref], key)
	return nil
}

func (s *MemorySource) Values(ref Ref) Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[ref].clone()
}

func (s *MemorySource) EndpointConfig(ctx context.Context, storeID int64) (core.EndpointConfig, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.RLock()
	defaults := s.values[DefaultRef()].clone()
	store := s.values[StoreRef(storeID)].clone()
	s.mu.RUnlock()
	return s.resolver.Resolve(ctx, storeID, defaults, store)
}

var _ core.ConfigSource = (*MemorySource)(nil)
