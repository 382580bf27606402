package main

import (
	"context"
	"fmt"
	"io"

	"github.com/kbukum/speechkit/config"
	"github.com/kbukum/speechkit/observability"
	"github.com/kbukum/speechkit/provider"
	"github.com/kbukum/speechkit/transcription"
	"github.com/kbukum/speechkit/transcription/assemblyai"
	"github.com/kbukum/speechkit/transcription/azure"
	"github.com/kbukum/speechkit/transcription/openai"
	"github.com/kbukum/speechkit/transcription/whisper"
)

var factories = map[string]provider.Factory[transcription.Client]{
	assemblyai.ProviderName: assemblyai.Factory,
	azure.ProviderName:      azure.Factory,
	openai.ProviderName:     openai.Factory,
	whisper.ProviderName:    whisper.Factory,
}

// newManager initializes every backend that has a config section and
// makes cfg.Backend the default.
func newManager(ctx context.Context, cfg *config.Config) (*provider.Manager[transcription.Client], error) {
	m := transcription.NewManager()
	for name, factory := range factories {
		m.Register(name, factory)
	}
	for _, name := range cfg.BackendNames() {
		bcfg, err := cfg.BackendConfig(name)
		if err != nil {
			return nil, err
		}
		if err := m.InitializeWithContext(ctx, name, bcfg); err != nil {
			_ = m.Close(ctx)
			return nil, err
		}
	}
	if cfg.Backend != "" {
		if err := m.SetDefault(cfg.Backend); err != nil {
			_ = m.Close(ctx)
			return nil, err
		}
	}
	return m, nil
}

func reportHealth(ctx context.Context, cfg *config.Config, m *provider.Manager[transcription.Client], out io.Writer) error {
	health := observability.NewServiceHealth(cfg.Name, cfg.Version)
	for _, name := range m.Available() {
		c, err := m.GetByName(name)
		if err != nil {
			return err
		}
		health.AddComponent(observability.CheckProvider(ctx, c))
	}
	for _, h := range health.Components {
		fmt.Fprintf(out, "%-12s %s %s\n", h.Name, h.Status, h.Message)
	}
	fmt.Fprintf(out, "%-12s %s\n", "service", health.Status)
	return nil
}
