// Package repository defines the raw-record store interfaces and their
// SQLite and in-memory implementations. Raw records are immutable once
// stored; they are created by ingestion and removed only by explicit bulk
// deletes on their (partner, dataset kind, batch) tag.
package repository

import (
	"context"
	"time"

	"github.com/zopper/recon/internal/domain/model"
)

// Source provides read access to raw records for the snapshot cache.
//
// FetchRecords returns all records matching partner and kind. A partner
// ending in "%" matches by prefix, mirroring the upstream storage's LIKE
// filters (samsung claims are stored under several samsung_* partners).
// When a nonempty batchID yields nothing the fetch falls back to all
// matching records for the (partner, kind) pair; a missing batch is stale
// input, not an error.
type Source interface {
	FetchRecords(ctx context.Context, partner string, kind model.DatasetKind, batchID string) ([]model.Record, error)
}

// Store provides full read/write access to raw records plus freshness
// markers. Writers are responsible for invalidating the snapshot cache and
// touching freshness before a write is considered complete.
type Store interface {
	Source

	// InsertRecords appends records under their own tags.
	InsertRecords(ctx context.Context, recs []model.Record) error

	// ReplaceBatch atomically deletes the batch's existing records and
	// inserts the given ones under the same tag.
	ReplaceBatch(ctx context.Context, partner string, kind model.DatasetKind, batchID string, recs []model.Record) error

	// DeleteBatch removes all records for a tag; an empty batchID removes
	// every batch for the (partner, kind) pair. Returns rows removed.
	DeleteBatch(ctx context.Context, partner string, kind model.DatasetKind, batchID string) (int64, error)

	// Touch updates the freshness marker for a tag to now.
	Touch(ctx context.Context, partner string, kind model.DatasetKind, batchKey string) error

	// LastUpdated returns the most recent freshness marker for a
	// (partner, kind) pair across batches.
	LastUpdated(ctx context.Context, partner string, kind model.DatasetKind) (time.Time, error)

	// Close releases the underlying storage.
	Close() error
}
