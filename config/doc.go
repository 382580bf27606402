// Package config loads speechkit configuration.
//
// LoadConfig reads config.yml with Viper from the usual locations, loads a
// .env file with godotenv, and overlays environment variables carrying the
// service prefix:
//
//	SPEECHKIT_LOGGING_LEVEL=debug               -> logging.level
//	SPEECHKIT_BACKENDS_OPENAI_API_KEY=sk-...    -> backends.openai.api_key
//
// Validate checks `validate` struct tags and reports every failing field
// in a single INVALID_INPUT error.
package config
