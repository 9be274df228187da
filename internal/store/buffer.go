package store

import (
	"context"
	"fmt"
	"time"

	"github.com/arkilian/telemetrygen/pkg/types"
)

// FlushStats describes one completed flush.
type FlushStats struct {
	Seq       int
	Sessions  int
	Events    int
	Purchases int
	Duration  time.Duration
}

// Rows returns the combined row count of the flush.
func (s FlushStats) Rows() int {
	return s.Sessions + s.Events + s.Purchases
}

// Buffer accumulates activity rows and hands them to a Sink in bounded
// batches. Flushing is always explicit: callers check Full after adding rows
// and call Flush once more when the run completes. Nothing is written when a
// Buffer is dropped.
type Buffer struct {
	sink    Sink
	limit   int
	batch   Batch
	flushes int
	onFlush func(FlushStats)
}

// NewBuffer creates a buffer that reports Full once limit rows are pending.
func NewBuffer(sink Sink, limit int) *Buffer {
	if limit <= 0 {
		limit = 1
	}
	return &Buffer{sink: sink, limit: limit}
}

// OnFlush registers a callback invoked after every successful flush.
func (b *Buffer) OnFlush(fn func(FlushStats)) {
	b.onFlush = fn
}

// AddSession buffers a session.
func (b *Buffer) AddSession(s types.Session) {
	b.batch.Sessions = append(b.batch.Sessions, s)
}

// AddEvent buffers an event.
func (b *Buffer) AddEvent(e types.Event) {
	b.batch.Events = append(b.batch.Events, e)
}

// AddPurchase buffers a purchase.
func (b *Buffer) AddPurchase(p types.Purchase) {
	b.batch.Purchases = append(b.batch.Purchases, p)
}

// Len returns the number of pending rows.
func (b *Buffer) Len() int {
	return b.batch.Len()
}

// Limit returns the flush threshold.
func (b *Buffer) Limit() int {
	return b.limit
}

// Full reports whether the pending row count reached the threshold.
func (b *Buffer) Full() bool {
	return b.batch.Len() >= b.limit
}

// Flushes returns the number of non-empty flushes performed so far.
func (b *Buffer) Flushes() int {
	return b.flushes
}

// Flush writes all pending rows to the sink. Flushing an empty buffer is a
// no-op. Pending rows are kept when the sink fails.
func (b *Buffer) Flush(ctx context.Context) error {
	if b.batch.Len() == 0 {
		return nil
	}
	start := time.Now()
	if err := b.sink.WriteActivity(ctx, &b.batch); err != nil {
		return fmt.Errorf("store: flush %d failed: %w", b.flushes+1, err)
	}
	b.flushes++
	stats := FlushStats{
		Seq:       b.flushes,
		Sessions:  len(b.batch.Sessions),
		Events:    len(b.batch.Events),
		Purchases: len(b.batch.Purchases),
		Duration:  time.Since(start),
	}
	b.batch.reset()
	if b.onFlush != nil {
		b.onFlush(stats)
	}
	return nil
}
