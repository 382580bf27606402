package audiototext

import (
	"context"
	"io"

	"github.com/kbukum/speechkit/audio"
	apperrors "github.com/kbukum/speechkit/errors"
	"github.com/kbukum/speechkit/provider"
	"github.com/kbukum/speechkit/transcription"
)

type transcribeCall struct {
	src  audio.Source
	opts transcription.Options
}

// clientCall presents Client.Transcribe as a RequestResponse.
type clientCall struct {
	client transcription.Client
}

func (c clientCall) Name() string                         { return c.client.Name() }
func (c clientCall) IsAvailable(ctx context.Context) bool { return c.client.IsAvailable(ctx) }
func (c clientCall) Execute(ctx context.Context, in transcribeCall) (*transcription.Completion, error) {
	return c.client.Transcribe(ctx, in.src, in.opts)
}

type clientService struct {
	Service
	client transcription.Client
}

// FromClient exposes c as a Service. A client made by ToClient is
// unwrapped to its service.
func FromClient(c transcription.Client) Service {
	if sc, ok := c.(*serviceClient); ok {
		return sc.svc
	}
	svc := provider.Adapt[Request, []TextContent, transcribeCall, *transcription.Completion](
		clientCall{client: c},
		c.Name(),
		func(_ context.Context, req Request) (transcribeCall, error) {
			if len(req.Audio.Data) == 0 && req.Audio.URI == "" {
				return transcribeCall{}, apperrors.NoAudio()
			}
			return transcribeCall{src: contentSource(req.Audio), opts: OptionsFromSettings(req.Settings)}, nil
		},
		func(comp *transcription.Completion) ([]TextContent, error) {
			return []TextContent{{Text: comp.Text(), Metadata: copyProps(comp.Properties), Inner: comp}}, nil
		},
	)
	return &clientService{Service: svc, client: c}
}

func contentSource(c Content) audio.Source {
	if c.HasData() {
		return audio.FromBytes(c.Data, c.MediaType)
	}
	return audio.NewReferenceSource(c.URI)
}

// serviceClient exposes a Service as a transcription.Client.
type serviceClient struct {
	svc Service
}

var _ transcription.Client = (*serviceClient)(nil)

// ToClient exposes svc as a transcription.Client. Inline audio is read
// fully into memory before the service is called. A service made by
// FromClient is unwrapped to its client.
func ToClient(svc Service) transcription.Client {
	if cs, ok := svc.(*clientService); ok {
		return cs.client
	}
	return &serviceClient{svc: svc}
}

func (s *serviceClient) Name() string                         { return s.svc.Name() }
func (s *serviceClient) IsAvailable(ctx context.Context) bool { return s.svc.IsAvailable(ctx) }

func (s *serviceClient) Close(_ context.Context) error {
	if c, ok := s.svc.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *serviceClient) Transcribe(ctx context.Context, src audio.Source, opts transcription.Options) (*transcription.Completion, error) {
	first, err := transcription.FirstChunk(ctx, src)
	if err != nil {
		return nil, err
	}
	return s.call(ctx, first, src, opts)
}

func (s *serviceClient) TranscribeStream(ctx context.Context, src audio.Source, opts transcription.Options) (provider.Iterator[transcription.Update], error) {
	if ctx.Err() != nil {
		return provider.FromSlice[transcription.Update](), nil
	}
	first, err := transcription.FirstChunk(ctx, src)
	if err != nil {
		return nil, err
	}
	done := false
	return provider.IteratorFunc(func(nctx context.Context) (transcription.Update, bool, error) {
		if done || nctx.Err() != nil || ctx.Err() != nil {
			return transcription.Update{}, false, nil
		}
		done = true
		comp, err := s.call(ctx, first, src, opts)
		if err != nil {
			return transcription.Update{}, false, err
		}
		return transcription.UpdateFromCompletion(comp), true, nil
	}, src.Close), nil
}

func (s *serviceClient) call(ctx context.Context, first audio.Chunk, src audio.Source, opts transcription.Options) (*transcription.Completion, error) {
	content := Content{URI: first.URI, MediaType: first.MediaType}
	if first.ContainsData() {
		data, err := audio.ReadAll(ctx, src, &first)
		if err != nil {
			return nil, err
		}
		content.Data = data
	} else {
		_ = src.Close()
	}

	results, err := s.svc.Execute(ctx, Request{Audio: content, Settings: SettingsFromOptions(opts)})
	if err != nil {
		return nil, err
	}
	comp := &transcription.Completion{Model: opts.Model, Properties: map[string]any{}}
	if len(results) == 0 {
		return comp, nil
	}
	r := results[0]
	comp.Content = &transcription.TranscribedContent{Text: r.Text}
	comp.Properties = copyProps(r.Metadata)
	comp.Raw = r
	return comp, nil
}
