// Package whisper transcribes audio with a Whisper model processor.
//
// The processor turns a byte stream into timed segments. SidecarProcessor
// talks to a faster-whisper HTTP sidecar (POST /transcribe, GET /health)
// and reads newline-delimited segments as the model produces them; any
// other local binding can be plugged in through the Processor interface.
//
// Whisper needs inline audio: by-reference chunks are rejected as
// unsupported. Streaming reports every segment as a transcribing update
// between a synthesized sessionopen and sessionclose. The language
// defaults to "auto".
package whisper
