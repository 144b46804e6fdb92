package event

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Subscriber receives live events for one execution.
//
// Send is called from the emitting goroutine, so a given subscriber
// sees events in emission order. A Send error removes the subscriber
// from the channel; it is never retried.
type Subscriber interface {
	Send(ctx context.Context, evt Event) error
}

// SubscriberFunc adapts a function to the Subscriber interface.
type SubscriberFunc func(ctx context.Context, evt Event) error

// Send implements Subscriber.
func (f SubscriberFunc) Send(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

// Channel fans execution events out to live subscribers and durably
// logs every event to an optional Sink.
//
// Delivery is best-effort and independent per subscriber: one failed
// subscriber never affects delivery to others or the emitting run loop.
// Sink write failures are logged and swallowed for the same reason.
//
// Channel is safe for concurrent use by many executions' run loops.
type Channel struct {
	sink   Sink
	logger *slog.Logger

	mu     sync.RWMutex
	subs   map[string]map[int64]Subscriber // execution id -> sub id -> subscriber
	nextID atomic.Int64
}

// ChannelOption configures a Channel.
type ChannelOption func(*Channel)

// WithSink sets the durable log sink. Without one, events are live-only.
func WithSink(sink Sink) ChannelOption {
	return func(c *Channel) { c.sink = sink }
}

// WithLogger sets the logger for sink and subscriber failures.
func WithLogger(logger *slog.Logger) ChannelOption {
	return func(c *Channel) { c.logger = logger }
}

// NewChannel creates an event channel.
func NewChannel(opts ...ChannelOption) *Channel {
	c := &Channel{
		logger: slog.Default(),
		subs:   make(map[string]map[int64]Subscriber),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers a live subscriber for an execution. The
// subscriber receives every event emitted from this moment on; there
// is no replay of history (use Replay for that). The returned function
// removes the subscription and is safe to call more than once.
func (c *Channel) Subscribe(executionID string, sub Subscriber) (cancel func()) {
	id := c.nextID.Add(1)

	c.mu.Lock()
	if c.subs[executionID] == nil {
		c.subs[executionID] = make(map[int64]Subscriber)
	}
	c.subs[executionID][id] = sub
	c.mu.Unlock()

	return func() { c.remove(executionID, id) }
}

// Emit durably logs the event, then delivers it to every live
// subscriber registered for its execution. Emit never returns an
// error: transport and logging failures must not reach the run loop.
func (c *Channel) Emit(ctx context.Context, evt Event) {
	if c.sink != nil {
		if err := c.sink.Append(ctx, evt); err != nil {
			c.logger.Error("event log write failed",
				slog.String("execution_id", evt.ExecutionID),
				slog.String("event_type", string(evt.Type)),
				slog.String("error", err.Error()),
			)
		}
	}

	c.mu.RLock()
	targets := make(map[int64]Subscriber, len(c.subs[evt.ExecutionID]))
	for id, sub := range c.subs[evt.ExecutionID] {
		targets[id] = sub
	}
	c.mu.RUnlock()

	for id, sub := range targets {
		if err := sub.Send(ctx, evt); err != nil {
			c.logger.Warn("subscriber send failed, removing",
				slog.String("execution_id", evt.ExecutionID),
				slog.String("event_type", string(evt.Type)),
				slog.String("error", err.Error()),
			)
			c.remove(evt.ExecutionID, id)
		}
	}
}

// Replay returns the full ordered event history for an execution from
// the durable log. Returns nil if no sink is configured.
func (c *Channel) Replay(ctx context.Context, executionID string) ([]Event, error) {
	if c.sink == nil {
		return nil, nil
	}
	return c.sink.List(ctx, executionID)
}

// SubscriberCount returns the number of live subscribers for an
// execution, or the total across executions when id is empty.
func (c *Channel) SubscriberCount(executionID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if executionID != "" {
		return len(c.subs[executionID])
	}
	total := 0
	for _, subs := range c.subs {
		total += len(subs)
	}
	return total
}

func (c *Channel) remove(executionID string, id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if subs, ok := c.subs[executionID]; ok {
		delete(subs, id)
		if len(subs) == 0 {
			delete(c.subs, executionID)
		}
	}
}
