// Package publisher delivers audit events to an audit.Store, either inline
// or through a bounded buffer drained by a background goroutine.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	audit "lookout/pkg/platform/audit"
)

// Publisher implements audit.Emitter.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	bufferSize int
	inbox      chan audit.Event
	done       chan struct{}

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithAsyncBuffer makes Emit non-blocking. Events beyond size are dropped.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.bufferSize = size
	}
}

// WithLogger sets a logger for delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher creates a publisher over store.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.inbox = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		go p.run()
	}
	return p
}

// Emit records event. Timestamp and Category are filled in when empty.
// In async mode the error is always nil; a full buffer drops the event.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.inbox == nil {
		if err := p.store.Append(ctx, event); err != nil {
			return fmt.Errorf("append audit event: %w", err)
		}
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("audit publisher closed")
	}
	select {
	case p.inbox <- event:
	default:
		p.dropped.Add(1)
		p.logger.WarnContext(ctx, "audit buffer full, event dropped", "action", event.Action)
	}
	return nil
}

// Dropped returns the number of events discarded because the buffer was full.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

// Close stops accepting events and waits for the buffer to drain.
func (p *Publisher) Close() {
	if p.inbox == nil {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.inbox)
	p.mu.Unlock()
	<-p.done
}

func (p *Publisher) run() {
	defer close(p.done)
	for event := range p.inbox {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := p.store.Append(ctx, event); err != nil {
			p.logger.Warn("failed to persist audit event", "action", event.Action, "error", err)
		}
		cancel()
	}
}

// Log writes event to logger and emits it; emission failures are logged
// and swallowed.
func Log(ctx context.Context, logger *slog.Logger, emitter audit.Emitter, event audit.Event) {
	attrs := []any{"event", event.Action, "log_type", "audit"}
	if event.UserID != "" {
		attrs = append(attrs, "user_id", event.UserID)
	}
	if event.RequestID != "" {
		attrs = append(attrs, "request_id", event.RequestID)
	}
	if logger != nil {
		logger.InfoContext(ctx, event.Action, attrs...)
	}
	if emitter == nil {
		return
	}
	if err := emitter.Emit(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", event.Action, "error", err)
	}
}
