package transcription

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/speechkit/audio"
	apperrors "github.com/kbukum/speechkit/errors"
	"github.com/kbukum/speechkit/observability"
	"github.com/kbukum/speechkit/provider"
)

// WithTelemetry wraps c with one span per call and the transcription
// metrics. A streaming span stays open until the iterator is exhausted
// or closed.
func WithTelemetry(c Client, tracer trace.Tracer, meter metric.Meter) (Client, error) {
	metrics, err := observability.NewMetrics(meter)
	if err != nil {
		return nil, err
	}
	return &telemetryClient{Client: c, tracer: tracer, metrics: metrics}, nil
}

type telemetryClient struct {
	Client
	tracer  trace.Tracer
	metrics *observability.Metrics
}

func (t *telemetryClient) spanAttrs(opts Options, op string) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.String(observability.AttrBackend, t.Name()),
		attribute.String(observability.AttrOperation, op),
		attribute.String(observability.AttrLanguage, opts.Language),
		attribute.String(observability.AttrModel, opts.Model),
	)
}

func (t *telemetryClient) Transcribe(ctx context.Context, src audio.Source, opts Options) (*Completion, error) {
	const op = "transcribe"
	ctx, span := t.tracer.Start(ctx, observability.SpanTranscribe, t.spanAttrs(opts, op))
	defer span.End()

	start := time.Now()
	t.metrics.RecordStart(ctx, t.Name(), op)
	c, err := t.Client.Transcribe(ctx, src, opts)
	t.finish(ctx, span, op, start, err)
	return c, err
}

func (t *telemetryClient) TranscribeStream(ctx context.Context, src audio.Source, opts Options) (provider.Iterator[Update], error) {
	const op = "stream"
	ctx, span := t.tracer.Start(ctx, observability.SpanTranscribeStream, t.spanAttrs(opts, op))
	start := time.Now()
	t.metrics.RecordStart(ctx, t.Name(), op)

	it, err := t.Client.TranscribeStream(ctx, src, opts)
	if err != nil {
		t.finish(ctx, span, op, start, err)
		span.End()
		return nil, err
	}
	return &telemetryIterator{inner: it, client: t, ctx: ctx, span: span, start: start}, nil
}

func (t *telemetryClient) finish(ctx context.Context, span trace.Span, op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		code := string(apperrors.ErrCodeInternal)
		if appErr, ok := apperrors.AsAppError(err); ok {
			code = string(appErr.Code)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(observability.AttrErrorCode, code))
		t.metrics.RecordError(ctx, t.Name(), op, code)
	}
	span.SetAttributes(attribute.String(observability.AttrStatus, status))
	t.metrics.RecordCall(ctx, t.Name(), op, status, time.Since(start))
}

type telemetryIterator struct {
	inner  provider.Iterator[Update]
	client *telemetryClient
	ctx    context.Context
	span   trace.Span
	start  time.Time
	count  int
	ended  bool
}

func (i *telemetryIterator) Next(ctx context.Context) (Update, bool, error) {
	u, ok, err := i.inner.Next(ctx)
	if ok {
		i.count++
		i.client.metrics.RecordUpdate(i.ctx, i.client.Name(), u.Kind.String())
		if u.Kind.Is(KindSessionOpen) {
			i.span.SetAttributes(attribute.String(observability.AttrSessionID, u.ID))
		}
		i.span.AddEvent("update", trace.WithAttributes(attribute.String(observability.AttrUpdateKind, u.Kind.String())))
		return u, ok, err
	}
	i.end(err)
	return u, ok, err
}

func (i *telemetryIterator) Close() error {
	err := i.inner.Close()
	i.end(nil)
	return err
}

func (i *telemetryIterator) end(err error) {
	if i.ended {
		return
	}
	i.ended = true
	i.span.SetAttributes(attribute.Int(observability.AttrUpdateCount, i.count))
	i.client.finish(i.ctx, i.span, "stream", i.start, err)
	i.span.End()
}
