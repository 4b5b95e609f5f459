// Package events delivers committed treasury events to subscribers in commit
// order, on a single goroutine, so slow consumers never hold ledger locks.
package events

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"AgentTreasury/internal/model"
)

// Handler consumes one event.
type Handler func(model.Event)

type subscriber struct {
	name string
	fn   Handler
}

// Bus is an ordered, buffered fan-out.
type Bus struct {
	log  *zap.Logger
	ch   chan model.Event
	done chan struct{}
	once sync.Once

	mu   sync.RWMutex
	subs []subscriber
}

// NewBus creates a bus with the given buffer size.
func NewBus(size int, log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	if size <= 0 {
		size = 256
	}
	return &Bus{
		log:  log.Named("events"),
		ch:   make(chan model.Event, size),
		done: make(chan struct{}),
	}
}

// Subscribe registers a handler. Handlers added after Run starts see only
// later events.
func (b *Bus) Subscribe(name string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscriber{name: name, fn: fn})
}

// Publish enqueues an event. It blocks while the buffer is full and drops the
// event once the bus has stopped.
func (b *Bus) Publish(evt model.Event) {
	select {
	case <-b.done:
		b.log.Warn("bus stopped, dropping event", zap.Uint64("seq", evt.Seq), zap.String("kind", string(evt.Kind)))
		return
	default:
	}
	select {
	case b.ch <- evt:
	case <-b.done:
		b.log.Warn("bus stopped, dropping event", zap.Uint64("seq", evt.Seq), zap.String("kind", string(evt.Kind)))
	}
}

// Relay returns a Handler that hands events to b without ever blocking. It
// lets a slow consumer run behind its own bus. Events arriving while b's
// buffer is full, or after b has stopped, are dropped with a warning.
func (b *Bus) Relay() Handler {
	return func(evt model.Event) {
		select {
		case <-b.done:
			b.log.Warn("bus stopped, dropping event", zap.Uint64("seq", evt.Seq), zap.String("kind", string(evt.Kind)))
			return
		default:
		}
		select {
		case b.ch <- evt:
		default:
			b.log.Warn("bus full, dropping event", zap.Uint64("seq", evt.Seq), zap.String("kind", string(evt.Kind)))
		}
	}
}

// Run delivers events until ctx is cancelled, then drains what is buffered.
func (b *Bus) Run(ctx context.Context) error {
	defer b.once.Do(func() { close(b.done) })
	for {
		select {
		case evt := <-b.ch:
			b.dispatch(evt)
		case <-ctx.Done():
			for {
				select {
				case evt := <-b.ch:
					b.dispatch(evt)
				default:
					b.log.Info("event bus stopped")
					return nil
				}
			}
		}
	}
}

func (b *Bus) dispatch(evt model.Event) {
	b.mu.RLock()
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		b.deliver(s, evt)
	}
}

func (b *Bus) deliver(s subscriber, evt model.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("subscriber panicked",
				zap.String("subscriber", s.name),
				zap.Uint64("seq", evt.Seq),
				zap.Any("panic", r))
		}
	}()
	s.fn(evt)
}
