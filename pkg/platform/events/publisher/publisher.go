// Package publisher delivers registry events to a sink.
//
// In sync mode Emit writes straight to the sink. In async mode Emit only
// enqueues into a ring buffer and Run drains it in batches, guarded by a
// circuit breaker so an unhealthy sink is not hammered.
package publisher

import (
	"context"
	"log/slog"
	"time"

	"kitties/pkg/platform/circuit"
	"kitties/pkg/platform/events"
)

const (
	defaultBatchSize     = 100
	defaultFlushInterval = 200 * time.Millisecond
	defaultDrainTimeout  = 5 * time.Second
)

type Publisher struct {
	sink          events.Sink
	buffer        *RingBuffer
	breaker       *circuit.Breaker
	logger        *slog.Logger
	metrics       *Metrics
	batchSize     int
	flushInterval time.Duration
}

// Option configures the Publisher.
type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithAsyncBuffer switches the publisher to async mode with a bounded buffer.
func WithAsyncBuffer(capacity int) Option {
	return func(p *Publisher) {
		p.buffer = NewRingBuffer(capacity)
	}
}

func WithBatchSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

func WithFlushInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.flushInterval = d
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(p *Publisher) {
		p.breaker = b
	}
}

func New(sink events.Sink, opts ...Option) *Publisher {
	p := &Publisher{
		sink:          sink,
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		logger:        slog.New(slog.DiscardHandler),
		metrics:       NewMetrics(nil),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.breaker == nil {
		p.breaker = circuit.New("events")
	}
	return p
}

// Emit hands event to the sink. In async mode it never blocks and never fails.
func (p *Publisher) Emit(ctx context.Context, event events.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	p.metrics.Emitted.Inc()

	if p.buffer == nil {
		return p.publish(ctx, []events.Event{event})
	}

	if p.buffer.Enqueue(event) {
		p.metrics.Dropped.WithLabelValues("buffer_full").Inc()
	}
	p.metrics.BufferDepth.Set(float64(p.buffer.Len()))
	return nil
}

// Run drains the async buffer until ctx is cancelled, then flushes what is
// left with a bounded timeout. It is a no-op in sync mode.
func (p *Publisher) Run(ctx context.Context) error {
	if p.buffer == nil {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultDrainTimeout)
			p.Flush(drainCtx)
			cancel()
			return nil
		case <-ticker.C:
			p.Flush(ctx)
		}
	}
}

// Flush publishes buffered events batch by batch until the buffer is empty,
// the breaker refuses, or a batch fails.
func (p *Publisher) Flush(ctx context.Context) {
	if p.buffer == nil {
		return
	}
	for p.buffer.Len() > 0 {
		if !p.breaker.Allow() {
			return
		}
		batch := p.buffer.DequeueBatch(p.batchSize)
		p.metrics.BufferDepth.Set(float64(p.buffer.Len()))
		if err := p.publish(ctx, batch); err != nil {
			p.metrics.Dropped.WithLabelValues("publish_failed").Add(float64(len(batch)))
			return
		}
	}
}

func (p *Publisher) publish(ctx context.Context, batch []events.Event) error {
	if err := p.sink.Publish(ctx, batch...); err != nil {
		p.metrics.PublishFailures.Inc()
		_, change := p.breaker.RecordFailure()
		if change.Opened {
			p.metrics.SetCircuitBreakerState(true)
			p.logger.WarnContext(ctx, "event sink circuit opened", "breaker", p.breaker.Name())
		}
		p.logger.ErrorContext(ctx, "failed to publish events",
			"error", err,
			"batch_size", len(batch),
		)
		return err
	}

	_, change := p.breaker.RecordSuccess()
	if change.Closed {
		p.metrics.SetCircuitBreakerState(false)
		p.logger.InfoContext(ctx, "event sink circuit closed", "breaker", p.breaker.Name())
	}
	p.metrics.Published.Add(float64(len(batch)))
	return nil
}

// Pending returns the number of buffered events.
func (p *Publisher) Pending() int {
	if p.buffer == nil {
		return 0
	}
	return p.buffer.Len()
}
