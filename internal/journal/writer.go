package journal

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"roulette-bot/internal/model"
)

// ErrQueueFull is returned by Writer.Append when the backlog is at capacity.
var ErrQueueFull = errors.New("journal queue is full")

// maxBatch bounds how many queued rows one workbook save takes.
const maxBatch = 256

// Writer queues grants and appends them to a Journal on a single goroutine,
// so callers never wait for the workbook to be rewritten.
type Writer struct {
	journal *Journal
	queue   chan Entry
	logger  zerolog.Logger
}

// NewWriter creates a writer holding at most size pending rows.
func NewWriter(j *Journal, size int, logger zerolog.Logger) *Writer {
	if size <= 0 {
		size = 1024
	}
	return &Writer{
		journal: j,
		queue:   make(chan Entry, size),
		logger:  logger.With().Str("component", "journal").Str("path", j.Path()).Logger(),
	}
}

// Append queues one row. It never blocks.
func (w *Writer) Append(g model.Grant, item model.CatalogItem) error {
	select {
	case w.queue <- Entry{Grant: g, Item: item}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending returns the number of queued rows.
func (w *Writer) Pending() int {
	return len(w.queue)
}

// Run writes queued rows until ctx is done, then flushes what is left.
func (w *Writer) Run(ctx context.Context) {
	for {
		select {
		case e := <-w.queue:
			w.flush(w.collect(e))
		case <-ctx.Done():
			for len(w.queue) > 0 {
				w.flush(w.collect(<-w.queue))
			}
			return
		}
	}
}

func (w *Writer) collect(first Entry) []Entry {
	batch := []Entry{first}
	for len(batch) < maxBatch {
		select {
		case e := <-w.queue:
			batch = append(batch, e)
		default:
			return batch
		}
	}
	return batch
}

func (w *Writer) flush(batch []Entry) {
	if err := w.journal.AppendBatch(batch); err != nil {
		w.logger.Warn().Err(err).Int("rows", len(batch)).Msg("journal write failed")
		return
	}
	w.logger.Debug().Int("rows", len(batch)).Msg("journal rows written")
}
