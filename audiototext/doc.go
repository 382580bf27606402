// Package audiototext bridges transcription clients and single-shot
// audio-to-text services.
//
// A Service takes one audio Content with execution Settings and returns
// text. FromClient exposes any transcription.Client as a Service; ToClient
// exposes any Service as a transcription.Client whose stream is a single
// transcribed update. Result metadata travels both ways as properties.
//
// Settings map to Options as follows: ModelID is Model, the extension keys
// "audio_language" and "audio_sample_rate" are Language and SampleRate,
// and every other non-nil extension value is an Extra entry. Keys are
// case-insensitive.
package audiototext
