package config

import "go.trai.ch/zerr"

var (
	// ErrConfigRead is returned when the config file cannot be read.
	ErrConfigRead = zerr.New("failed to read config")

	// ErrConfigParse is returned when the config file is not valid YAML or
	// contains unknown fields.
	ErrConfigParse = zerr.New("failed to parse config")

	// ErrConfigInvalid is returned when the config violates the schema.
	ErrConfigInvalid = zerr.New("invalid config")

	// ErrDuplicateWorker is returned when two workers share a name.
	ErrDuplicateWorker = zerr.New("duplicate worker name")

	// ErrMissingAPIKey is returned when a remote backend's key variable is
	// unset.
	ErrMissingAPIKey = zerr.New("missing API key")
)
