package websocket

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"trafficmonitor/internal/dto"
	"trafficmonitor/internal/logger"
	"trafficmonitor/internal/metrics"
)

const defaultQueueSize = 64

type opKind int

const (
	opSubscribe opKind = iota
	opUnsubscribe
	opPublish
)

// op is one entry of the hub's FIFO queue. A single queue carries every kind
// so a subscription only sees events published after it.
type op struct {
	kind  opKind
	id    string
	ch    chan dto.CountEvent
	event dto.CountEvent
}

// Subscription receives count events until it is unsubscribed or the hub
// stops, at which point C is closed.
type Subscription struct {
	ID string
	C  <-chan dto.CountEvent
}

// HubService fans count events out to live subscribers. Run owns the
// subscriber set; every other method only enqueues operations.
type HubService struct {
	ops      chan op
	stopping chan struct{}
	done     chan struct{}
	mu       sync.RWMutex
	stopped  bool
	buffer   int
	clients  atomic.Int64
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

// NewHubService creates a hub whose subscribers each buffer up to buffer
// events.
func NewHubService(buffer int, logger *logger.Logger, m *metrics.Metrics) *HubService {
	if buffer < 1 {
		buffer = 1
	}
	return &HubService{
		ops:      make(chan op, defaultQueueSize),
		stopping: make(chan struct{}),
		done:     make(chan struct{}),
		buffer:   buffer,
		logger:   logger,
		metrics:  m,
	}
}

// Run processes queued operations until ctx is cancelled, then closes every
// subscription.
func (h *HubService) Run(ctx context.Context) {
	clients := make(map[string]chan dto.CountEvent)

	for {
		select {
		case <-ctx.Done():
			h.shutdown(clients)
			return
		case o := <-h.ops:
			h.apply(clients, o)
		}
	}
}

func (h *HubService) apply(clients map[string]chan dto.CountEvent, o op) {
	switch o.kind {
	case opSubscribe:
		clients[o.id] = o.ch
		h.setClientCount(len(clients))
		h.logger.Info("Subscriber %s connected. Total: %d", o.id, len(clients))

	case opUnsubscribe:
		if ch, ok := clients[o.id]; ok {
			close(ch)
			delete(clients, o.id)
			h.setClientCount(len(clients))
			h.logger.Info("Subscriber %s disconnected. Total: %d", o.id, len(clients))
		}

	case opPublish:
		for id, ch := range clients {
			select {
			case ch <- o.event:
			default:
				h.logger.Warning("Subscriber %s is not keeping up, dropping event %d", id, o.event.ID)
				if h.metrics != nil {
					h.metrics.EventsDropped.Add(1)
				}
			}
		}
	}
}

func (h *HubService) shutdown(clients map[string]chan dto.CountEvent) {
	close(h.stopping)

	// Wait for in-flight Subscribe/Publish calls, then refuse new ones.
	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()

	for drained := false; !drained; {
		select {
		case o := <-h.ops:
			if o.kind == opSubscribe {
				close(o.ch)
			}
		default:
			drained = true
		}
	}

	for id, ch := range clients {
		close(ch)
		delete(clients, id)
	}
	h.setClientCount(0)
	close(h.done)
	h.logger.Info("Broadcast hub stopped")
}

// Publish enqueues ev for every current subscriber. It never blocks; when the
// queue is full or the hub has stopped the event is dropped and false is
// returned.
func (h *HubService) Publish(ev dto.CountEvent) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.stopped {
		select {
		case h.ops <- op{kind: opPublish, event: ev}:
			if h.metrics != nil {
				h.metrics.EventsPublished.Add(1)
			}
			return true
		default:
		}
	}

	h.logger.Warning("Broadcast queue unavailable, dropping event %d", ev.ID)
	if h.metrics != nil {
		h.metrics.EventsDropped.Add(1)
	}
	return false
}

// Subscribe registers a new subscriber. It receives only events published
// after this call.
func (h *HubService) Subscribe() *Subscription {
	ch := make(chan dto.CountEvent, h.buffer)
	sub := &Subscription{ID: uuid.NewString(), C: ch}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.stopped {
		close(ch)
		return sub
	}

	select {
	case h.ops <- op{kind: opSubscribe, id: sub.ID, ch: ch}:
	case <-h.stopping:
		close(ch)
	}
	return sub
}

// Unsubscribe removes the subscriber and closes its channel.
func (h *HubService) Unsubscribe(id string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.stopped {
		return
	}

	select {
	case h.ops <- op{kind: opUnsubscribe, id: id}:
	case <-h.stopping:
	}
}

// ClientCount returns the number of registered subscribers.
func (h *HubService) ClientCount() int {
	return int(h.clients.Load())
}

// Done is closed once Run has returned and all subscriptions are closed.
func (h *HubService) Done() <-chan struct{} {
	return h.done
}

func (h *HubService) setClientCount(n int) {
	h.clients.Store(int64(n))
	if h.metrics != nil {
		h.metrics.Subscribers.Store(int64(n))
	}
}
