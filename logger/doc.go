// Package logger provides structured logging for speechkit using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers carrying transcription fields such as the
// backend name and session id.
//
// # Configuration
//
//	logger:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("transcription.azure").WithSession(id)
//	log.Info("session open", logger.Fields("language", "en-US"))
package logger
