package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/zopper/recon/internal/seeddata"
	"github.com/zopper/recon/pkg/logger"
)

// Default configuration constants.
const (
	defaultRowsPerBatch = 500
	defaultWorkers      = 4
	defaultTimeout      = 30 * time.Second
	defaultRunTimeout   = 5 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9090", "Base URL of the service")
		rows     = flag.Int("rows", defaultRowsPerBatch, "Rows to generate per batch")
		workers  = flag.Int("workers", defaultWorkers, "Number of concurrent workers")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		partners = flag.String("partners", "", "Comma-separated partner list (default: all known partners)")
		verbose  = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &seeddata.Config{
		BaseURL:      *baseURL,
		RowsPerBatch: *rows,
		Workers:      *workers,
		Timeout:      *timeout,
		Verbose:      *verbose,
	}
	if *partners != "" {
		for _, p := range strings.Split(*partners, ",") {
			if p = strings.TrimSpace(p); p != "" {
				config.Partners = append(config.Partners, p)
			}
		}
	}

	if err := seeddata.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Seeding failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
