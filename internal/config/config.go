// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Layer overrides via Load: defaults, then file, then env.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9090".
	Addr string `koanf:"addr"`

	// DBPath locates the SQLite record store. Empty selects the in-memory
	// store, useful for tests and local runs without persistence.
	DBPath string `koanf:"db_path"`

	// SnapshotTTLSeconds bounds snapshot cache staleness.
	SnapshotTTLSeconds int `koanf:"snapshot_ttl_seconds"`

	// MaxUploadRows caps a single record upload.
	MaxUploadRows int `koanf:"max_upload_rows"`

	// PrewarmWorkers sets how many background workers rebuild snapshots
	// after writes.
	PrewarmWorkers int `koanf:"prewarm_workers"`

	// ShutdownTimeoutSeconds bounds graceful HTTP shutdown.
	ShutdownTimeoutSeconds int `koanf:"shutdown_timeout_seconds"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		Addr:                   ":9090",
		DBPath:                 "recon.db",
		SnapshotTTLSeconds:     300,
		MaxUploadRows:          50_000,
		PrewarmWorkers:         2,
		ShutdownTimeoutSeconds: 10,
	}
}
