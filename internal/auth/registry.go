package auth

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Factory constructs a Method. Concrete strategies capture their
// collaborators (API client, browser, config) in the closure registered at
// process start.
type Factory func() (Method, error)

// UnknownMethodError is the configuration error returned when a strategy key
// is not registered. It is never retried.
type UnknownMethodError struct {
	Key   MethodType
	Known []MethodType
}

// Error implements the error interface.
func (e *UnknownMethodError) Error() string {
	known := make([]string, len(e.Known))
	for i, k := range e.Known {
		known[i] = string(k)
	}
	return fmt.Sprintf("unknown authentication method %q (known methods: %s)",
		e.Key, strings.Join(known, ", "))
}

// Registry maps strategy identifiers to method factories. Registration
// happens during harness bootstrap; lookups afterwards are read-only, so a
// single RWMutex is enough for concurrent test workers.
type Registry struct {
	mu        sync.RWMutex
	factories map[MethodType]Factory
	logger    *zap.Logger
}

// NewRegistry creates an empty method registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		factories: make(map[MethodType]Factory),
		logger:    logger,
	}
}

// Register registers a factory under the given key. Re-registering an
// existing key overwrites the prior entry; last write wins.
func (r *Registry) Register(key MethodType, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[key]; exists {
		r.logger.Debug("overwriting authentication method registration",
			zap.String("method", string(key)),
		)
	}
	r.factories[key] = factory
}

// Known returns the sorted set of registered strategy identifiers.
func (r *Registry) Known() []MethodType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	known := make([]MethodType, 0, len(r.factories))
	for key := range r.factories {
		known = append(known, key)
	}
	sort.Slice(known, func(i, j int) bool { return known[i] < known[j] })
	return known
}

// Create instantiates the method registered under key. An unregistered key
// is a configuration error naming the key and the known set.
func (r *Registry) Create(key MethodType) (Method, error) {
	r.mu.RLock()
	factory, ok := r.factories[key]
	r.mu.RUnlock()

	if !ok {
		return nil, &UnknownMethodError{Key: key, Known: r.Known()}
	}
	return factory()
}

// CreateWithFallback resolves both keys and returns a fallback-wrapped
// composite. Either key being unregistered yields the same unknown-key error
// as Create.
func (r *Registry) CreateWithFallback(primaryKey, fallbackKey MethodType) (Method, error) {
	primary, err := r.Create(primaryKey)
	if err != nil {
		return nil, err
	}
	fallback, err := r.Create(fallbackKey)
	if err != nil {
		return nil, err
	}
	return NewFallback(primary, fallback, r.logger), nil
}
