// Package eventpublisher forwards post-commit transaction events to external consumers
// off the submit path.
package eventpublisher

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/infrastructure/metrics"
	"github.com/AlexShrike/nexum-sub002/internal/usecase"
)

// ErrQueueFull is returned when an event arrives while the buffer is full. The event is dropped.
var ErrQueueFull = errors.New("event dispatcher queue full")

// Publisher defines the interface for publishing events to external systems.
type Publisher interface {
	Publish(ctx context.Context, event domain.TransactionEvent) error
}

// Config for Dispatcher.
type Config struct {
	Publisher  Publisher
	Logger     zerolog.Logger
	Metrics    *metrics.Metrics
	BufferSize int           // Events held before OnCommit starts dropping
	MaxRetries uint64        // Publish attempts after the first failure
	RetryDelay time.Duration // Initial backoff between attempts
	DrainGrace time.Duration // Time allowed to flush the buffer on shutdown
}

// Dispatcher is a post-commit listener that queues events and publishes them from a
// single worker goroutine, so a slow consumer never blocks a submitter.
type Dispatcher struct {
	publisher  Publisher
	logger     zerolog.Logger
	metrics    *metrics.Metrics
	queue      chan domain.TransactionEvent
	maxRetries uint64
	retryDelay time.Duration
	drainGrace time.Duration
}

var _ usecase.PostCommitListener = (*Dispatcher)(nil)

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 100 * time.Millisecond
	}
	if cfg.DrainGrace <= 0 {
		cfg.DrainGrace = 5 * time.Second
	}
	if cfg.Publisher == nil {
		cfg.Publisher = NewLogPublisher(cfg.Logger)
	}

	return &Dispatcher{
		publisher:  cfg.Publisher,
		logger:     cfg.Logger.With().Str("component", "event_dispatcher").Logger(),
		metrics:    cfg.Metrics,
		queue:      make(chan domain.TransactionEvent, cfg.BufferSize),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		drainGrace: cfg.DrainGrace,
	}
}

// Name implements usecase.PostCommitListener.
func (d *Dispatcher) Name() string { return "event_dispatcher" }

// OnCommit enqueues event without blocking.
func (d *Dispatcher) OnCommit(_ context.Context, event domain.TransactionEvent) error {
	select {
	case d.queue <- event:
		return nil
	default:
		d.metrics.ObserveDispatchDropped()
		return ErrQueueFull
	}
}

// Pending returns the number of queued events.
func (d *Dispatcher) Pending() int { return len(d.queue) }

// Start runs the worker until ctx is cancelled, then flushes what is left in the buffer
// within the drain grace period.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.logger.Info().Int("buffer", cap(d.queue)).Msg("event dispatcher started")

	for {
		select {
		case <-ctx.Done():
			d.drain()
			d.logger.Info().Msg("event dispatcher shutting down")
			return ctx.Err()
		case event := <-d.queue:
			d.publish(ctx, event)
		}
	}
}

func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), d.drainGrace)
	defer cancel()

	for {
		select {
		case event := <-d.queue:
			d.publish(ctx, event)
		default:
			return
		}
		if ctx.Err() != nil {
			d.logger.Warn().Int("dropped", len(d.queue)).Msg("drain grace elapsed")
			return
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, event domain.TransactionEvent) {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(d.retryDelay), d.maxRetries), ctx)

	err := backoff.Retry(func() error {
		return d.publisher.Publish(ctx, event)
	}, b)
	if err != nil {
		d.metrics.ObserveListenerFailure(d.Name())
		d.logger.Error().Err(err).
			Str("transaction_id", event.TransactionID).
			Str("status", string(event.Status)).
			Msg("failed to publish event")
		return
	}

	d.logger.Debug().
		Str("transaction_id", event.TransactionID).
		Str("status", string(event.Status)).
		Msg("event published")
}

// LogPublisher is a simple publisher that logs events.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event.
func (p *LogPublisher) Publish(_ context.Context, event domain.TransactionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	p.logger.Info().
		Str("transaction_id", event.TransactionID).
		Str("type", string(event.Type)).
		Str("status", string(event.Status)).
		RawJSON("event", payload).
		Msg("transaction event")

	return nil
}
