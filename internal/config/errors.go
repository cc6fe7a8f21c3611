package config

import (
	"errors"
)

var (
	// ErrInvalidConfig marks a loaded configuration that fails validation,
	// such as an empty listen address or a negative snapshot TTL.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrLoadConfig marks a failure reading or parsing a configuration
	// source (the RECON_CONFIG file or environment overrides).
	ErrLoadConfig = errors.New("load config failed")
)
