// Package sink relays count events from the broadcast hub to external
// message brokers.
package sink

import (
	"context"

	"trafficmonitor/internal/dto"
	"trafficmonitor/internal/logger"
	"trafficmonitor/internal/metrics"
	"trafficmonitor/internal/service/websocket"
)

// Sink delivers one event to an external system.
type Sink interface {
	Name() string
	Send(ctx context.Context, ev dto.CountEvent) error
	Close() error
}

// Subscriber is the part of the hub a Forwarder needs.
type Subscriber interface {
	Subscribe() *websocket.Subscription
	Unsubscribe(id string)
}

// Forwarder subscribes to the hub and hands every event to its sink. Sink
// errors are logged and counted; they never reach the sampling loop.
type Forwarder struct {
	hub     Subscriber
	sub     *websocket.Subscription
	sink    Sink
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewForwarder subscribes immediately, so every event published after it
// returns reaches the sink.
func NewForwarder(hub Subscriber, sink Sink, logger *logger.Logger, m *metrics.Metrics) *Forwarder {
	return &Forwarder{
		hub:     hub,
		sub:     hub.Subscribe(),
		sink:    sink,
		logger:  logger,
		metrics: m,
	}
}

// Run forwards events until ctx is cancelled or the hub closes the
// subscription, then closes the sink.
func (f *Forwarder) Run(ctx context.Context) {
	sub := f.sub
	f.logger.Info("Forwarding count events to %s", f.sink.Name())

	defer func() {
		f.hub.Unsubscribe(sub.ID)
		if err := f.sink.Close(); err != nil {
			f.logger.Warning("Closing %s sink: %v", f.sink.Name(), err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if err := f.sink.Send(ctx, ev); err != nil {
				f.logger.Error("Forwarding event %d to %s failed: %v", ev.ID, f.sink.Name(), err)
				if f.metrics != nil {
					f.metrics.SinkErrors.Add(1)
				}
			}
		}
	}
}
