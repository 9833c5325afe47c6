package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"clinicdesk/backend/internal/domain"
	"clinicdesk/backend/internal/store"
)

// Sink accepts audit entries after the triggering mutation has committed.
// Implementations must never block the caller or surface failures to it;
// auditability never makes the primary action less available.
type Sink interface {
	Record(entry domain.AuditLogEntry)
}

// NopSink discards entries. Used in tests and as a nil-guard default.
type NopSink struct{}

func (NopSink) Record(domain.AuditLogEntry) {}

const (
	defaultQueueSize    = 256
	defaultWriteTimeout = 5 * time.Second
)

// Recorder persists audit entries asynchronously. Record enqueues without
// blocking; a background worker writes entries at-most-once, logging failures
// for operators. A full queue drops the entry with a log line rather than
// stalling the request path.
type Recorder struct {
	repo store.AuditRepository
	log  *slog.Logger

	queue chan domain.AuditLogEntry
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewRecorder(repo store.AuditRepository, log *slog.Logger, queueSize int) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	r := &Recorder{
		repo:  repo,
		log:   log.With(slog.String("component", "audit.recorder")),
		queue: make(chan domain.AuditLogEntry, queueSize),
		done:  make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Recorder) Record(entry domain.AuditLogEntry) {
	// The read lock pairs with the write lock Close takes before closing the
	// queue, so a late Record drops instead of sending on a closed channel.
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.log.Error(
			"audit recorder closed, entry dropped",
			slog.String("action", string(entry.Action)),
			slog.String("entity_type", string(entry.EntityType)),
			slog.String("entity_id", entry.EntityID.String()),
		)
		return
	}

	select {
	case r.queue <- entry:
	default:
		r.log.Error(
			"audit queue full, entry dropped",
			slog.String("action", string(entry.Action)),
			slog.String("entity_type", string(entry.EntityType)),
			slog.String("entity_id", entry.EntityID.String()),
		)
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for entry := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), defaultWriteTimeout)
		_, err := r.repo.Append(ctx, entry)
		cancel()
		if err != nil {
			r.log.Error(
				"audit write failed",
				slog.Any("err", err),
				slog.String("action", string(entry.Action)),
				slog.String("entity_type", string(entry.EntityType)),
				slog.String("entity_id", entry.EntityID.String()),
			)
		}
	}
}

// Close stops accepting entries and waits for the queue to drain, or for ctx.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
