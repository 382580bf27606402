package process

import (
	"context"
	"time"

	"github.com/kbukum/speechkit/provider"
)

var _ provider.Provider = (*Microphone)(nil)

// MicrophoneConfig configures live capture.
type MicrophoneConfig struct {
	Tool        string        `yaml:"tool" mapstructure:"tool"`
	SampleRate  int           `yaml:"sample_rate" mapstructure:"sample_rate"`
	GracePeriod time.Duration `yaml:"grace_period" mapstructure:"grace_period"`
}

// Microphone captures the default input device through sox.
type Microphone struct {
	cfg MicrophoneConfig
}

// NewMicrophone returns a Microphone; SampleRate defaults to 16000.
func NewMicrophone(cfg MicrophoneConfig) *Microphone {
	if cfg.Tool == "" {
		cfg.Tool = "sox"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	return &Microphone{cfg: cfg}
}

func (m *Microphone) Name() string { return "microphone" }

// IsAvailable reports whether the capture tool runs.
func (m *Microphone) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := Run(ctx, Command{Binary: m.cfg.Tool, Args: []string{"--version"}})
	return err == nil
}

// Command returns the capture command line.
func (m *Microphone) Command() Command {
	cmd := MicrophoneCommand(m.cfg.Tool, m.cfg.SampleRate)
	cmd.GracePeriod = m.cfg.GracePeriod
	return cmd
}

// Open starts capturing. The stream yields WAV data until closed.
func (m *Microphone) Open(ctx context.Context) (*Stream, error) {
	return Start(ctx, m.Command())
}
