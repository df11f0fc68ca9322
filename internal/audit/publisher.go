package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
)

// Sink receives audit events. Stores and brokers both satisfy it so the
// publisher can fan out without caring where events land.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Store is a queryable sink.
type Store interface {
	Sink
	ListByRecord(ctx context.Context, id domain.RecordID) ([]Event, error)
}

// Publisher captures structured audit events. Emission is best-effort
// observability: registry operations commit regardless of sink failures,
// which are logged and dropped.
type Publisher struct {
	sinks  []Sink
	logger *slog.Logger

	asyncCh chan Event
	wg      sync.WaitGroup
	closed  chan struct{}
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to buffered asynchronous delivery.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.asyncCh = make(chan Event, size)
	}
}

// NewPublisher constructs a publisher fanning out to the given sinks.
func NewPublisher(logger *slog.Logger, sinks []Sink, opts ...Option) *Publisher {
	p := &Publisher{
		sinks:  sinks,
		logger: logger,
		closed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.asyncCh != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records an event, stamping ID and timestamp when unset.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if p.asyncCh != nil {
		select {
		case p.asyncCh <- event:
		case <-p.closed:
		}
		return
	}
	p.deliver(ctx, event)
}

func (p *Publisher) deliver(ctx context.Context, event Event) {
	for _, sink := range p.sinks {
		if err := sink.Append(ctx, event); err != nil {
			p.logger.Error("audit sink append failed",
				"type", string(event.Type),
				"actor", event.Actor.String(),
				"error", err,
			)
		}
	}
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for {
		select {
		case event := <-p.asyncCh:
			p.deliver(context.Background(), event)
		case <-p.closed:
			// Flush what is left before exiting.
			for {
				select {
				case event := <-p.asyncCh:
					p.deliver(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

// Close stops the async worker after flushing buffered events. Safe to call
// on a synchronous publisher.
func (p *Publisher) Close() {
	select {
	case <-p.closed:
		return
	default:
	}
	close(p.closed)
	p.wg.Wait()
}
