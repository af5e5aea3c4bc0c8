package logging

import (
	"context"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// Sink receives routed events. Implementations must tolerate concurrent
// writes only from the router's dispatch goroutine.
type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

type NamedSink struct {
	Name string
	Sink Sink
}

// Router buffers published events and fans them out to sinks from a single
// dispatch goroutine. Publishing never blocks the simulation loop: when the
// queue is full the event is dropped and counted.
type Router struct {
	queue       chan Event
	sinks       []NamedSink
	clock       Clock
	fallback    *log.Logger
	minSeverity Severity
	fields      map[string]any

	closed atomic.Bool
	done   chan struct{}
	once   sync.Once

	eventsTotal  atomic.Uint64
	droppedTotal atomic.Uint64
}

type RouterStats struct {
	EventsTotal  uint64
	DroppedTotal uint64
}

func NewRouter(clock Clock, cfg Config, sinks []NamedSink) *Router {
	if clock == nil {
		clock = ClockFunc(time.Now)
	}
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 512
	}
	kept := make([]NamedSink, 0, len(sinks))
	for _, named := range sinks {
		if named.Sink != nil {
			kept = append(kept, named)
		}
	}
	r := &Router{
		queue:       make(chan Event, bufferSize),
		sinks:       kept,
		clock:       clock,
		fallback:    log.New(os.Stderr, "[logging] ", log.LstdFlags),
		minSeverity: cfg.MinimumSeverity,
		fields:      cfg.CloneFields(),
		done:        make(chan struct{}),
	}
	go r.dispatch()
	return r
}

func (r *Router) Publish(_ context.Context, event Event) {
	if r == nil || r.closed.Load() {
		return
	}
	if event.Severity < r.minSeverity {
		return
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	if len(r.fields) > 0 {
		if event.Extra == nil {
			event.Extra = make(map[string]any, len(r.fields))
		}
		for k, v := range r.fields {
			if _, exists := event.Extra[k]; !exists {
				event.Extra[k] = v
			}
		}
	}
	select {
	case r.queue <- event:
		r.eventsTotal.Add(1)
	default:
		r.droppedTotal.Add(1)
	}
}

func (r *Router) dispatch() {
	defer close(r.done)
	for event := range r.queue {
		for _, named := range r.sinks {
			if err := named.Sink.Write(event); err != nil {
				r.fallback.Printf("sink %q write failed: %v", named.Name, err)
			}
		}
	}
}

// Close drains the queue, closes every sink, and returns once the dispatch
// goroutine has exited or the context expires.
func (r *Router) Close(ctx context.Context) error {
	if r == nil {
		return nil
	}
	r.once.Do(func() {
		r.closed.Store(true)
		close(r.queue)
	})
	select {
	case <-r.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	var firstErr error
	for _, named := range r.sinks {
		if err := named.Sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Router) Stats() RouterStats {
	if r == nil {
		return RouterStats{}
	}
	return RouterStats{
		EventsTotal:  r.eventsTotal.Load(),
		DroppedTotal: r.droppedTotal.Load(),
	}
}
