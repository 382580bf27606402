package audio

import (
	"path/filepath"
	"strings"
)

// DefaultBlockSize is the number of bytes StreamSource reads per chunk.
const DefaultBlockSize = 4096

// Chunk is one fragment of audio. Exactly one of Data and URI is set:
// Data is non-nil for inline audio (it may be empty), URI is set for audio
// submitted by reference.
type Chunk struct {
	Data      []byte
	URI       string
	MediaType string
}

// NewDataChunk returns a chunk carrying inline bytes.
func NewDataChunk(data []byte, mediaType string) Chunk {
	if data == nil {
		data = []byte{}
	}
	return Chunk{Data: data, MediaType: mediaType}
}

// NewURIChunk returns a chunk that refers to audio by URI or file path.
func NewURIChunk(uri, mediaType string) Chunk {
	return Chunk{URI: uri, MediaType: mediaType}
}

// ContainsData reports whether the chunk carries inline bytes.
func (c Chunk) ContainsData() bool { return c.Data != nil }

// MediaTypeFromFileName derives an "audio/<ext>" media type from a file name.
// Names without an extension yield "".
func MediaTypeFromFileName(name string) string {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return ""
	}
	return "audio/" + strings.ToLower(ext)
}
