// Package openai transcribes audio with the OpenAI audio transcription API
// through github.com/sashabaranov/go-openai.
//
// Inline audio is streamed to the API as a multipart upload. By-reference
// chunks are accepted when they name a local file (file:// URI or bare
// path); remote URIs are unsupported because the API only takes uploads.
//
// The API has no streaming mode: TranscribeStream runs the batch call and
// yields its result as a single transcribed update. The model defaults to
// whisper-1.
package openai
