package audio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

func collect(t *testing.T, src Source) []Chunk {
	t.Helper()
	var out []Chunk
	for {
		c, ok, err := src.Next(context.Background())
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			return out
		}
		out = append(out, c)
	}
}

func TestChunkContainsData(t *testing.T) {
	tests := []struct {
		name  string
		chunk Chunk
		want  bool
	}{
		{"inline", NewDataChunk([]byte{1}, ""), true},
		{"empty inline", NewDataChunk(nil, ""), true},
		{"reference", NewURIChunk("file:///tmp/a.wav", ""), false},
		{"zero value", Chunk{}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.chunk.ContainsData(); got != tc.want {
				t.Errorf("ContainsData() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMediaTypeFromFileName(t *testing.T) {
	tests := map[string]string{
		"a.wav":           "audio/wav",
		"/tmp/REC.MP3":    "audio/mp3",
		"file:///x/y.ogg": "audio/ogg",
		"noext":           "",
		"":                "",
	}
	for name, want := range tests {
		if got := MediaTypeFromFileName(name); got != want {
			t.Errorf("MediaTypeFromFileName(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestStreamSourceBlocks(t *testing.T) {
	data := pattern(DefaultBlockSize*2 + 100)
	chunks := collect(t, NewStreamSource(bytes.NewReader(data), "audio/wav"))

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0].Data) != DefaultBlockSize || len(chunks[2].Data) != 100 {
		t.Errorf("unexpected block sizes %d/%d", len(chunks[0].Data), len(chunks[2].Data))
	}
	if chunks[1].MediaType != "audio/wav" {
		t.Errorf("expected media type tag, got %q", chunks[1].MediaType)
	}
}

func TestStreamSourceRewindsSeekable(t *testing.T) {
	data := pattern(10 * DefaultBlockSize)
	r := bytes.NewReader(data)
	if _, err := r.Seek(500, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	src := NewStreamSource(r, "")

	first := collect(t, src)
	second := collect(t, src)
	if len(first) != 10 || len(second) != 10 {
		t.Fatalf("expected 10 chunks per pass, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if !bytes.Equal(first[i].Data, second[i].Data) {
			t.Fatalf("chunk %d differs between passes", i)
		}
	}
	if !bytes.Equal(first[0].Data, data[:DefaultBlockSize]) {
		t.Error("expected the source to start from the beginning")
	}
}

type failingReader struct{ err error }

func (f failingReader) Read([]byte) (int, error) { return 0, f.err }

func TestStreamSourcePropagatesReadError(t *testing.T) {
	boom := errors.New("device unplugged")
	_, _, err := NewStreamSource(failingReader{boom}, "").Next(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(path, pattern(5000), 0o600); err != nil {
		t.Fatal(err)
	}
	src, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	chunks := collect(t, src)
	if len(chunks) != 2 || chunks[0].MediaType != "audio/wav" {
		t.Fatalf("unexpected chunks %d %q", len(chunks), chunks[0].MediaType)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestReferenceSource(t *testing.T) {
	chunks := collect(t, NewReferenceSource("file:///tmp/a.wav"))
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].ContainsData() || chunks[0].URI != "file:///tmp/a.wav" || chunks[0].MediaType != "audio/wav" {
		t.Fatalf("unexpected reference chunk %+v", chunks[0])
	}
}

func TestReaderRoundTrip(t *testing.T) {
	data := pattern(10 * DefaultBlockSize)
	src := NewStreamSource(bytes.NewReader(data), "")

	first, ok, err := src.Next(context.Background())
	if err != nil || !ok {
		t.Fatalf("first chunk: %v %v", ok, err)
	}
	got, err := ReadAll(context.Background(), src, &first)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(data))
	}
}

func TestReaderSmallReads(t *testing.T) {
	src := FromChunks(NewDataChunk([]byte("ab"), ""), NewDataChunk(nil, ""), NewDataChunk([]byte("cde"), ""))
	r := NewReader(context.Background(), src, nil)
	var out []byte
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
	}
	if string(out) != "abcde" {
		t.Fatalf("expected 'abcde', got %q", out)
	}
}

type countingSource struct {
	chunks []Chunk
	pulls  int
	closed int
}

func (c *countingSource) Next(context.Context) (Chunk, bool, error) {
	c.pulls++
	if len(c.chunks) == 0 {
		return Chunk{}, false, nil
	}
	ch := c.chunks[0]
	c.chunks = c.chunks[1:]
	return ch, true, nil
}

func (c *countingSource) Close() error {
	c.closed++
	return nil
}

func TestReaderStopsAtReferenceChunk(t *testing.T) {
	src := &countingSource{chunks: []Chunk{
		NewDataChunk([]byte("abc"), ""),
		NewURIChunk("https://example.com/a.wav", ""),
		NewDataChunk([]byte("never"), ""),
	}}
	r := NewReader(context.Background(), src, nil)
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "abc" {
		t.Fatalf("expected 'abc', got %q", got)
	}

	pulls := src.pulls
	if n, err := r.Read(make([]byte, 8)); n != 0 || err != io.EOF {
		t.Fatalf("expected EOF after completion, got %d %v", n, err)
	}
	if src.pulls != pulls {
		t.Error("completed reader must not pull from the source again")
	}

	_ = r.Close()
	_ = r.Close()
	if src.closed != 1 {
		t.Errorf("expected source closed once, got %d", src.closed)
	}
}

func TestReaderCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewReader(ctx, FromBytes([]byte("x"), ""), nil)
	if _, err := r.Read(make([]byte, 4)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPrepend(t *testing.T) {
	src := FromChunks(NewDataChunk([]byte("b"), ""), NewDataChunk([]byte("c"), ""))
	first, _, _ := src.Next(context.Background())
	got, err := ReadAll(context.Background(), Prepend(first, src), nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "bc" {
		t.Fatalf("expected 'bc', got %q", got)
	}
}
