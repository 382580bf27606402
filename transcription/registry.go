package transcription

import "github.com/kbukum/speechkit/provider"

// NewRegistry creates a registry of transcription backends.
func NewRegistry() *provider.Registry[Client] {
	return provider.NewRegistry[Client]()
}

// ManagerOption configures NewManager.
type ManagerOption func(*managerConfig)

type managerConfig struct {
	selector provider.Selector[Client]
	registry *provider.Registry[Client]
}

// WithSelector sets how the manager picks a backend when no default is set.
func WithSelector(s provider.Selector[Client]) ManagerOption {
	return func(c *managerConfig) {
		c.selector = s
	}
}

// WithRegistry makes the manager use an existing registry.
func WithRegistry(r *provider.Registry[Client]) ManagerOption {
	return func(c *managerConfig) {
		c.registry = r
	}
}

// NewManager creates a manager of transcription backends.
func NewManager(opts ...ManagerOption) *provider.Manager[Client] {
	cfg := &managerConfig{
		selector: &provider.HealthCheckSelector[Client]{},
	}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.registry == nil {
		cfg.registry = NewRegistry()
	}
	return provider.NewManager(cfg.registry, cfg.selector)
}
