package event

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Handler consumes one envelope. Handlers must not block; slow work belongs
// behind the reload callback, not in the dispatch path.
type Handler func(Envelope)

// Dispatcher fans envelopes out to subscribers on a single goroutine,
// preserving delivery order. Publishing is non-blocking: when the buffer is
// full the envelope is dropped rather than stalling the producer.
type Dispatcher struct {
	ch     chan Envelope
	logger zerolog.Logger

	mu       sync.RWMutex
	handlers []Handler
}

// NewDispatcher creates a dispatcher with the given buffer size.
func NewDispatcher(buffer int, logger zerolog.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 64
	}
	return &Dispatcher{
		ch:     make(chan Envelope, buffer),
		logger: logger.With().Str("component", "event.dispatcher").Logger(),
	}
}

// Subscribe registers a handler for all future envelopes.
func (d *Dispatcher) Subscribe(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, h)
}

// Publish enqueues an envelope. Returns false if the buffer was full and the
// envelope was dropped.
func (d *Dispatcher) Publish(env Envelope) bool {
	select {
	case d.ch <- env:
		return true
	default:
		d.logger.Warn().Str("type", env.Type).Msg("event buffer full, dropping")
		return false
	}
}

// Run delivers envelopes until ctx is cancelled. A panicking handler is
// logged and must not take down the event loop.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-d.ch:
			d.mu.RLock()
			handlers := d.handlers
			d.mu.RUnlock()
			for _, h := range handlers {
				d.deliver(h, env)
			}
		}
	}
}

func (d *Dispatcher) deliver(h Handler, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Interface("panic", r).Msg("event handler panicked")
		}
	}()
	h(env)
}
