package provider

import "context"

// Initializable is implemented by providers that must do work before their
// first request, such as checking a model file or an external binary.
// Manager.InitializeWithContext calls it.
type Initializable interface {
	Init(ctx context.Context) error
}

// Closeable is implemented by providers holding connections or processes.
// Manager.Close calls it for every initialized provider.
type Closeable interface {
	Close(ctx context.Context) error
}
