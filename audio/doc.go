// Package audio models audio input as a lazy sequence of chunks.
//
// A Chunk carries either inline bytes or a reference (file path or URI).
// Sources produce chunks: StreamSource reads fixed-size blocks from an
// io.Reader, ReferenceSource yields a single reference chunk, and
// SliceSource replays chunks already in memory.
//
// Backends that want bytes rather than chunks use NewReader, which turns a
// Source back into a sequential io.Reader holding at most one chunk in memory:
//
//	first, ok, err := src.Next(ctx)
//	if !ok { ... no audio ... }
//	if !first.ContainsData() { ... submit first.URI by reference ... }
//	r := audio.NewReader(ctx, src, &first)
//	defer r.Close()
package audio
