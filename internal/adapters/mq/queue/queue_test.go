package queue

import (
	"context"
	"testing"

	"github.com/zopper/recon/internal/domain/model"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	job1 := Job{Pattern: "samsung_vs", Kind: model.KindSales}
	if !q.Enqueue(ctx, job1) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	jobChan := q.Dequeue(ctx)
	job := <-jobChan
	if job.Pattern != "samsung_vs" {
		t.Errorf("expected samsung_vs, got %v", job.Pattern)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, Job{Pattern: "a", Kind: model.KindSales}) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, Job{Pattern: "b", Kind: model.KindSales}) {
		t.Error("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, Job{Pattern: "c", Kind: model.KindSales}) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	q.Enqueue(ctx, Job{Pattern: "a", Kind: model.KindClaims})

	if err := q.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to report closed")
	}
	if q.Enqueue(ctx, Job{Pattern: "b", Kind: model.KindSales}) {
		t.Error("expected enqueue to fail after close")
	}
	// Double close is a no-op.
	if err := q.Close(); err != nil {
		t.Errorf("unexpected double close error: %v", err)
	}

	// Queued jobs drain, then the channel closes.
	jobChan := q.Dequeue(ctx)
	if job, ok := <-jobChan; !ok || job.Pattern != "a" {
		t.Errorf("expected queued job to drain, got %v ok=%v", job.Pattern, ok)
	}
	if _, ok := <-jobChan; ok {
		t.Error("expected dequeue channel to close after drain")
	}
}
