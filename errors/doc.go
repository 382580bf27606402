// Package errors provides the structured error taxonomy shared by every
// transcription backend. Errors carry a machine-readable code, retryable
// detection and optional details, and unwrap to their cause.
package errors
