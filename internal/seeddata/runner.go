package seeddata

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/zopper/recon/pkg/logger"
)

// Run generates batches for every configured partner, submits them with a
// worker pool, and prints each partner's summary on success.
func Run(ctx context.Context, config *Config) error {
	start := time.Now()
	log := logger.Get().Named("seeddata")

	if len(config.Partners) == 0 {
		config.Partners = DefaultPartners()
	}
	batchID := uuid.New().String()
	batches := generateBatches(config, batchID)

	rows := 0
	for _, b := range batches {
		rows += len(b.Rows)
	}
	log.Info(ctx, "generated batches",
		logger.Int("batches", len(batches)),
		logger.Int("rows", rows),
		logger.String("batch_id", batchID))

	stats := &Stats{RowsGenerated: rows}
	if err := submitBatches(ctx, config, batches, stats); err != nil {
		return err
	}
	stats.Duration = time.Since(start)

	log.Info(ctx, "seeding completed",
		logger.Int("submitted", stats.BatchesSubmitted),
		logger.Int("stored", stats.RowsStored),
		logger.Int("failed", stats.BatchesFailed),
		logger.String("took", stats.Duration.String()))

	if stats.BatchesFailed > 0 {
		return fmt.Errorf("%d of %d batches failed", stats.BatchesFailed, len(batches))
	}
	return printSummaries(ctx, config)
}

// submitBatches drains the batch list through a worker pool.
func submitBatches(ctx context.Context, config *Config, batches []batch, stats *Stats) error {
	c := newClient(config.Timeout)
	log := logger.Get().Named("seeddata")

	var (
		stored    int64
		submitted int64
		failed    int64
	)

	workers := config.Workers
	if workers > len(batches) {
		workers = len(batches)
	}
	if workers < 1 {
		workers = 1
	}

	batchChan := make(chan batch, workers)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range batchChan {
				select {
				case <-ctx.Done():
					return
				default:
				}
				n, err := c.submitBatch(ctx, config.BaseURL, b)
				atomic.AddInt64(&submitted, 1)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					log.Error(ctx, "batch submission failed",
						logger.String("partner", b.Partner),
						logger.String("kind", b.Kind),
						logger.Error(err))
					continue
				}
				atomic.AddInt64(&stored, int64(n))
				if config.Verbose {
					log.Info(ctx, "batch stored",
						logger.String("partner", b.Partner),
						logger.String("kind", b.Kind),
						logger.Int("rows", n))
				}
			}
		}()
	}

	go func() {
		defer close(batchChan)
		for _, b := range batches {
			select {
			case <-ctx.Done():
				return
			case batchChan <- b:
			}
		}
	}()

	wg.Wait()

	stats.BatchesSubmitted = int(atomic.LoadInt64(&submitted))
	stats.RowsStored = int(atomic.LoadInt64(&stored))
	stats.BatchesFailed = int(atomic.LoadInt64(&failed))
	return ctx.Err()
}

// printSummaries reads back each partner's summary as a smoke check.
func printSummaries(ctx context.Context, config *Config) error {
	c := newClient(config.Timeout)
	for _, partner := range config.Partners {
		sum, err := c.fetchSummary(ctx, config.BaseURL, partner)
		if err != nil {
			return fmt.Errorf("summary for %s: %w", partner, err)
		}
		fmt.Printf("%s: gross=%.2f earned=%.2f shared=%.2f units=%.0f\n",
			partner,
			number(sum["gross_premium"]),
			number(sum["earned_premium"]),
			number(sum["shared_earned_premium"]),
			number(sum["unit_count"]))
	}
	return nil
}

func number(v any) float64 {
	f, _ := v.(float64)
	return f
}
