package provider

import "context"

// Provider is implemented by every backend that can be registered and selected.
type Provider interface {
	// Name returns the backend's registry name.
	Name() string
	// IsAvailable reports whether the backend can accept work right now.
	IsAvailable(ctx context.Context) bool
}

// Factory builds a provider from a loosely typed configuration map, usually
// one entry of the backends section of the application config.
type Factory[T Provider] func(cfg map[string]any) (T, error)

// ConfigString reads a string value from a factory configuration map.
func ConfigString(cfg map[string]any, key, def string) string {
	if v, ok := cfg[key].(string); ok && v != "" {
		return v
	}
	return def
}

// ConfigInt reads an integer value from a factory configuration map.
// Numbers decoded from YAML or JSON arrive as int, int64 or float64.
func ConfigInt(cfg map[string]any, key string, def int) int {
	switch v := cfg[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}
