package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	apperrors "github.com/kbukum/speechkit/errors"
	"github.com/kbukum/speechkit/logger"
)

// Manager owns the initialized providers of one kind and hands them out,
// either the configured default or whatever the Selector picks.
type Manager[T Provider] struct {
	mu          sync.RWMutex
	registry    *Registry[T]
	selector    Selector[T]
	providers   map[string]T
	defaultName string
	log         *logger.Logger
}

// NewManager creates a Manager over registry using selector.
func NewManager[T Provider](registry *Registry[T], selector Selector[T]) *Manager[T] {
	return &Manager[T]{
		registry:  registry,
		selector:  selector,
		providers: make(map[string]T),
		log:       logger.Get("provider"),
	}
}

// Register adds a factory to the underlying registry.
func (m *Manager[T]) Register(name string, factory Factory[T]) {
	m.registry.RegisterFactory(name, factory)
	m.log.Debug("factory registered", logger.Fields(logger.FieldBackend, name))
}

// Initialize builds the named provider without running Init.
func (m *Manager[T]) Initialize(name string, cfg map[string]any) error {
	return m.InitializeWithContext(context.Background(), name, cfg)
}

// InitializeWithContext builds the named provider, runs Init when the
// provider is Initializable, and stores it for selection.
func (m *Manager[T]) InitializeWithContext(ctx context.Context, name string, cfg map[string]any) error {
	instance, err := m.registry.Create(name, cfg)
	if err != nil {
		return fmt.Errorf("initialize backend %q: %w", name, err)
	}
	if in, ok := any(instance).(Initializable); ok {
		if err := in.Init(ctx); err != nil {
			return fmt.Errorf("init backend %q: %w", name, err)
		}
	}
	m.mu.Lock()
	m.providers[name] = instance
	m.mu.Unlock()
	m.registry.Set(name, instance)
	m.log.Info("backend initialized", logger.Fields(logger.FieldBackend, name))
	return nil
}

// Get returns the default provider when set, otherwise the selector's pick.
func (m *Manager[T]) Get(ctx context.Context) (T, error) {
	m.mu.RLock()
	defaultName := m.defaultName
	providers := m.snapshotLocked()
	m.mu.RUnlock()

	if defaultName != "" {
		if p, ok := providers[defaultName]; ok {
			return p, nil
		}
		var zero T
		return zero, apperrors.NotFound("default backend", defaultName)
	}
	return m.selector.Select(ctx, providers)
}

// GetByName returns an initialized provider.
func (m *Manager[T]) GetByName(name string) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.providers[name]; ok {
		return p, nil
	}
	var zero T
	return zero, apperrors.NotFound("backend", name)
}

// SetDefault makes name the provider returned by Get.
func (m *Manager[T]) SetDefault(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.providers[name]; !ok {
		return apperrors.NotFound("backend", name)
	}
	m.defaultName = name
	m.log.Info("default backend set", logger.Fields(logger.FieldBackend, name))
	return nil
}

// Available returns the sorted names of initialized providers.
func (m *Manager[T]) Available() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every Closeable provider and returns the joined errors.
func (m *Manager[T]) Close(ctx context.Context) error {
	m.mu.Lock()
	providers := m.snapshotLocked()
	m.providers = make(map[string]T)
	m.defaultName = ""
	m.mu.Unlock()

	var errs []error
	for name, p := range providers {
		c, ok := any(p).(Closeable)
		if !ok {
			continue
		}
		if err := c.Close(ctx); err != nil {
			m.log.Warn("backend close failed", logger.MergeWithError(logger.Fields(logger.FieldBackend, name), err))
			errs = append(errs, fmt.Errorf("close backend %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager[T]) snapshotLocked() map[string]T {
	cp := make(map[string]T, len(m.providers))
	for k, v := range m.providers {
		cp[k] = v
	}
	return cp
}
