package whisper

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/kbukum/speechkit/errors"
	"github.com/kbukum/speechkit/provider"
)

var errResponseEnded = errors.New("whisper: response ended")

// Segment is one timed piece of recognized text.
type Segment struct {
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
	Text  string        `json:"text"`
}

// ProcessOptions configures one Process call.
type ProcessOptions struct {
	Model    string
	Language string
	FileName string
}

// Processor runs a Whisper model over an audio stream and yields segments
// in the order the model produces them.
type Processor interface {
	Process(ctx context.Context, audio io.Reader, opts ProcessOptions) (provider.Iterator[Segment], error)
	IsAvailable(ctx context.Context) bool
}

// SidecarProcessor sends audio to a faster-whisper HTTP sidecar. The audio
// is streamed as a multipart upload, never buffered whole.
type SidecarProcessor struct {
	url    string
	client *http.Client
}

// NewSidecarProcessor creates a processor for the sidecar at url.
// A zero timeout leaves requests bounded only by their context.
func NewSidecarProcessor(url string, timeout time.Duration) *SidecarProcessor {
	return &SidecarProcessor{
		url:    strings.TrimRight(url, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

// IsAvailable checks the sidecar's health endpoint.
func (p *SidecarProcessor) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Process uploads audio and returns the segments. An NDJSON response is
// read lazily, one segment per line, while the upload may still run; a
// JSON response is decoded at once.
func (p *SidecarProcessor) Process(ctx context.Context, audio io.Reader, opts ProcessOptions) (provider.Iterator[Segment], error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := writeForm(form, audio, opts)
		pw.CloseWithError(err)
		return err
	})

	req, err := http.NewRequestWithContext(gctx, http.MethodPost, p.url+"/transcribe", pr)
	if err != nil {
		pr.CloseWithError(err)
		_ = g.Wait()
		return nil, apperrors.Internal(err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", "application/x-ndjson, application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		pr.CloseWithError(err)
		if werr := g.Wait(); werr != nil {
			return nil, werr
		}
		return nil, apperrors.ConnectionFailed("whisper").WithCause(err)
	}
	upload := func() error {
		pr.CloseWithError(errResponseEnded)
		if err := g.Wait(); err != nil && !errors.Is(err, errResponseEnded) {
			return err
		}
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err := upload(); err != nil {
			return nil, err
		}
		return nil, apperrors.ExternalServiceError("whisper",
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/x-ndjson") {
		return newLineIterator(resp.Body, upload), nil
	}

	defer resp.Body.Close()
	var result sidecarResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&result)
	if err := upload(); err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, apperrors.ExternalServiceError("whisper", fmt.Errorf("decode response: %w", decodeErr))
	}
	segments := make([]Segment, 0, len(result.Segments))
	for _, s := range result.Segments {
		segments = append(segments, s.toSegment())
	}
	return provider.FromSlice(segments...), nil
}

func writeForm(form *multipart.Writer, audio io.Reader, opts ProcessOptions) error {
	if opts.Model != "" {
		if err := form.WriteField("model", opts.Model); err != nil {
			return err
		}
	}
	if opts.Language != "" {
		if err := form.WriteField("language", opts.Language); err != nil {
			return err
		}
	}
	if err := form.WriteField("stream", "true"); err != nil {
		return err
	}
	name := opts.FileName
	if name == "" {
		name = "audio.wav"
	}
	part, err := form.CreateFormFile("audio", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return err
	}
	return form.Close()
}

type sidecarResponse struct {
	Text     string           `json:"text"`
	Segments []sidecarSegment `json:"segments"`
	Language string           `json:"language"`
}

type sidecarSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (s sidecarSegment) toSegment() Segment {
	return Segment{
		Start: seconds(s.Start),
		End:   seconds(s.End),
		Text:  s.Text,
	}
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

// lineIterator reads one JSON segment per line while the upload may
// still be running. When the response ends, an upload failure takes
// precedence over the read error it caused.
type lineIterator struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	upload  func() error
	done    bool
	err     error
}

func newLineIterator(body io.ReadCloser, upload func() error) *lineIterator {
	return &lineIterator{body: body, scanner: bufio.NewScanner(body), upload: upload}
}

func (it *lineIterator) Next(ctx context.Context) (Segment, bool, error) {
	for {
		if it.done {
			return Segment{}, false, it.err
		}
		if err := ctx.Err(); err != nil {
			return Segment{}, false, err
		}
		if !it.scanner.Scan() {
			it.finish(it.scanner.Err())
			continue
		}
		line := it.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var seg sidecarSegment
		if err := json.Unmarshal(line, &seg); err != nil {
			it.finish(fmt.Errorf("decode segment: %w", err))
			continue
		}
		return seg.toSegment(), true, nil
	}
}

func (it *lineIterator) finish(readErr error) {
	it.done = true
	if err := it.upload(); err != nil {
		it.err = err
		return
	}
	if readErr != nil {
		it.err = apperrors.ExternalServiceError("whisper", readErr)
	}
}

func (it *lineIterator) Close() error {
	err := it.body.Close()
	if !it.done {
		it.done = true
		_ = it.upload()
	}
	return err
}

// Close releases idle sidecar connections.
func (p *SidecarProcessor) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
