// Command transcribe sends an audio file, a remote URL or live microphone
// input to one of the configured transcription backends and prints the
// result.
//
//	transcribe -backend openai -file meeting.wav
//	transcribe -backend assemblyai -mic -stream
//	transcribe -check
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/speechkit/audio"
	"github.com/kbukum/speechkit/audiototext"
	"github.com/kbukum/speechkit/config"
	"github.com/kbukum/speechkit/logger"
	"github.com/kbukum/speechkit/observability"
	"github.com/kbukum/speechkit/process"
	"github.com/kbukum/speechkit/provider"
	"github.com/kbukum/speechkit/transcription"
	"github.com/kbukum/speechkit/version"
)

const serviceName = "transcribe"

type flags struct {
	configFile string
	backend    string
	file       string
	url        string
	mic        bool
	stream     bool
	language   string
	model      string
	interop    bool
	check      bool
	version    bool
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	fs.StringVar(&f.configFile, "config", "", "config file (default: search cmd/transcribe, config, .)")
	fs.StringVar(&f.backend, "backend", "", "backend name; overrides the configured default")
	fs.StringVar(&f.file, "file", "", "audio file to transcribe")
	fs.StringVar(&f.url, "url", "", "transcribe audio by reference (http(s) or file:// URL)")
	fs.BoolVar(&f.mic, "mic", false, "capture the default microphone (implies -stream)")
	fs.BoolVar(&f.stream, "stream", false, "print streaming updates instead of one result")
	fs.StringVar(&f.language, "language", "", "source language tag, e.g. en-US")
	fs.StringVar(&f.model, "model", "", "backend model")
	fs.BoolVar(&f.interop, "interop", false, "route calls through the audio-to-text service adapter")
	fs.BoolVar(&f.check, "check", false, "report backend availability and exit")
	fs.BoolVar(&f.version, "version", false, "print the build version and exit")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	if f.mic {
		f.stream = true
	}
	if !f.check && !f.version && !f.mic && f.file == "" && f.url == "" {
		return f, fmt.Errorf("one of -file, -url or -mic is required")
	}
	return f, nil
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if f.version {
		fmt.Println(version.Get().Full())
		return
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, f, os.Stdout); err != nil {
		logger.Error("transcribe failed", logger.ErrorFields("run", err))
		os.Exit(1)
	}
}

func loadConfig(f flags) (*config.Config, error) {
	opts := []config.LoaderOption{config.WithEnvPrefix("SPEECHKIT")}
	if f.configFile != "" {
		opts = append(opts, config.WithConfigFile(f.configFile))
	}
	cfg := &config.Config{Name: serviceName}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = serviceName
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().String()
	}
	if f.backend != "" {
		cfg.Backend = f.backend
	}
	if f.language != "" {
		cfg.Transcription.Language = f.language
	}
	if f.model != "" {
		cfg.Transcription.Model = f.model
	}
	if f.stream {
		cfg.Transcription.Stream = true
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, f flags, out io.Writer) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	logger.Init(cfg.Logging)
	log := logger.GetGlobalLogger()

	shutdown, err := initTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	manager, err := newManager(ctx, cfg)
	if err != nil {
		return err
	}
	defer manager.Close(context.WithoutCancel(ctx))

	if f.check {
		return reportHealth(ctx, cfg, manager, out)
	}

	client, err := manager.Get(ctx)
	if err != nil {
		return err
	}
	client = transcription.WithLogging(client, log)
	if cfg.Telemetry.Enabled {
		client, err = transcription.WithTelemetry(client, observability.Tracer(serviceName), observability.Meter(serviceName))
		if err != nil {
			return err
		}
	}
	if f.interop {
		svc := provider.Chain(provider.WithLogging[audiototext.Request, []audiototext.TextContent](log))(audiototext.FromClient(client))
		client = audiototext.ToClient(svc)
	}

	src, closeSrc, err := openSource(ctx, f, cfg)
	if err != nil {
		return err
	}
	defer closeSrc()

	opts := transcription.Options{
		Model:      cfg.Transcription.Model,
		Language:   cfg.Transcription.Language,
		SampleRate: cfg.Transcription.SampleRate,
		FileName:   f.file,
	}
	if cfg.Transcription.Stream {
		return printStream(ctx, client, src, opts, out)
	}
	return printCompletion(ctx, client, src, opts, out)
}

func initTelemetry(ctx context.Context, cfg *config.Config) (func(), error) {
	if !cfg.Telemetry.Enabled {
		return func() {}, nil
	}
	tp, err := observability.InitTracer(ctx, cfg.Telemetry.Tracing)
	if err != nil {
		return nil, err
	}
	mp, err := observability.InitMeter(ctx, cfg.Telemetry.Metrics)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	return func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(sctx)
		_ = mp.Shutdown(sctx)
	}, nil
}

// openSource returns the audio selected by the flags and a func that
// releases it.
func openSource(ctx context.Context, f flags, cfg *config.Config) (audio.Source, func(), error) {
	switch {
	case f.mic:
		mic := process.NewMicrophone(process.MicrophoneConfig{Tool: cfg.Capture.Tool, SampleRate: cfg.Capture.SampleRate})
		stream, err := mic.Open(ctx)
		if err != nil {
			return nil, nil, err
		}
		return audio.NewStreamSource(stream, "audio/wav"), func() { _ = stream.Close() }, nil
	case f.url != "":
		return audio.NewReferenceSource(f.url), func() {}, nil
	default:
		src, err := audio.OpenFile(f.file)
		if err != nil {
			return nil, nil, err
		}
		return src, func() { _ = src.Close() }, nil
	}
}

func printCompletion(ctx context.Context, c transcription.Client, src audio.Source, opts transcription.Options, out io.Writer) error {
	comp, err := c.Transcribe(ctx, src, opts)
	if err != nil {
		return err
	}
	if !comp.HasText() {
		fmt.Fprintln(out, "(no speech recognized)")
		return nil
	}
	fmt.Fprintf(out, "[%s - %s] %s\n", comp.Start, comp.End, comp.Text())
	return nil
}

func printStream(ctx context.Context, c transcription.Client, src audio.Source, opts transcription.Options, out io.Writer) error {
	it, err := c.TranscribeStream(ctx, src, opts)
	if err != nil {
		return err
	}
	defer it.Close()
	for {
		u, ok, err := it.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		fmt.Fprintln(out, formatUpdate(u))
	}
}

func formatUpdate(u transcription.Update) string {
	switch u.Kind {
	case transcription.KindTranscribing, transcription.KindTranscribed:
		return fmt.Sprintf("%-12s [%s - %s] %s", u.Kind, u.Start, u.End, u.Text)
	case transcription.KindError, transcription.KindNoMatch:
		return fmt.Sprintf("%-12s %s", u.Kind, u.Text)
	default:
		return fmt.Sprintf("%-12s %s", u.Kind, u.ID)
	}
}
