// Package dispatcher fans a query out to adapters concurrently and collects
// exactly one SourceResult per requested adapter.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"lookout/internal/lookup/adapters"
	"lookout/internal/lookup/metrics"
	"lookout/internal/lookup/models"
)

const defaultTimeout = 15 * time.Second

// AdapterSource resolves adapters by kind.
type AdapterSource interface {
	Get(kind adapters.Kind) (adapters.Adapter, bool)
}

// Dispatcher invokes adapters in parallel, each under its own deadline.
type Dispatcher struct {
	adapters AdapterSource
	timeout  func(kind string) time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTimeouts resolves the per-adapter deadline.
func WithTimeouts(fn func(kind string) time.Duration) Option {
	return func(d *Dispatcher) {
		if fn != nil {
			d.timeout = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(d *Dispatcher) {
		d.tracer = t
	}
}

// New creates a Dispatcher.
func New(source AdapterSource, opts ...Option) (*Dispatcher, error) {
	if source == nil {
		return nil, errors.New("adapter source is required")
	}
	d := &Dispatcher{
		adapters: source,
		timeout:  func(string) time.Duration { return defaultTimeout },
		tracer:   otel.Tracer("lookout/dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch invokes every kind concurrently. The result at index i belongs to
// kinds[i]. A failing adapter never affects its siblings and never surfaces
// as an error here.
func (d *Dispatcher) Dispatch(ctx context.Context, q models.Query, kinds []adapters.Kind) []models.SourceResult {
	results := make([]models.SourceResult, len(kinds))

	var g errgroup.Group
	for i, kind := range kinds {
		g.Go(func() error {
			results[i] = d.invoke(ctx, q, kind)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

type outcome struct {
	resp adapters.Response
	err  error
}

func (d *Dispatcher) invoke(ctx context.Context, q models.Query, kind adapters.Kind) models.SourceResult {
	adapter, ok := d.adapters.Get(kind)
	if !ok {
		return models.SourceResult{
			Source: kind.String(),
			Status: models.StatusSkipped,
			Error:  "adapter not registered",
		}
	}

	timeout := d.timeout(kind.String())
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ctx, span := d.tracer.Start(ctx, "adapter.invoke", trace.WithAttributes(
		attribute.String("adapter.source", kind.String()),
		attribute.String("lookup.kind", string(q.Kind)),
	))
	defer span.End()

	start := time.Now()
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: adapters.NewProviderError(adapters.ErrorInternal, kind, "adapter panicked", fmt.Errorf("%v", r))}
			}
		}()
		resp, err := adapter.Invoke(ctx, q.Normalized)
		done <- outcome{resp: resp, err: err}
	}()

	var res models.SourceResult
	select {
	case o := <-done:
		res = toResult(kind, o)
	case <-ctx.Done():
		err := adapters.NewProviderError(adapters.ErrorTimeout, kind, fmt.Sprintf("no reply within %s", timeout), ctx.Err())
		res = toResult(kind, outcome{err: err})
	}
	res.Duration = time.Since(start)

	span.SetAttributes(attribute.String("adapter.status", string(res.Status)))
	if res.Status == models.StatusError {
		span.SetStatus(codes.Error, res.Error)
		if d.logger != nil {
			d.logger.WarnContext(ctx, "adapter failed",
				"source", res.Source,
				"category", res.Category,
				"error", res.Error,
				"duration", res.Duration,
			)
		}
	}
	d.metrics.ObserveAdapter(res.Source, string(res.Status), res.Duration)

	return res
}

func toResult(kind adapters.Kind, o outcome) models.SourceResult {
	res := models.SourceResult{Source: kind.String()}
	switch {
	case o.err != nil && adapters.IsNotConfigured(o.err):
		res.Status = models.StatusSkipped
		res.Error = o.err.Error()
		res.Category = string(adapters.ErrorNotConfigured)
	case o.err != nil:
		res.Status = models.StatusError
		res.Error = o.err.Error()
		res.Category = string(adapters.GetCategory(o.err))
	case !o.resp.Success:
		res.Status = models.StatusError
		res.Error = o.resp.Error
		if res.Error == "" {
			res.Error = "adapter reported failure"
		}
		res.Category = string(adapters.ErrorProviderOutage)
	default:
		res.Status = models.StatusOK
		res.Lookup = o.resp.Status
		res.Payload = o.resp.Data
		if res.Payload == nil {
			res.Payload = map[string]any{}
		}
	}
	return res
}
