package watch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/go-gpviz/gpviz/pkg/equeue"
)

// Contract for returning the Manager instance
type ProvideFn func(chan<- error) (Manager, error)

type Kind string

const (
	KindObservations Kind = "OBSERVATIONS"
	KindParams       Kind = "PARAMS"
	KindSamples      Kind = "SAMPLES"
	KindCleared      Kind = "CLEARED"
	KindEvicted      Kind = "EVICTED"
)

// Event tells a subscriber that a part of a scene changed and a re-render
// is due.
type Event struct {
	SceneID uuid.UUID `json:"sceneId"`
	Kind    Kind      `json:"kind"`
	At      time.Time `json:"at"`
}

// Publisher is the write side of the hub used by the scene manager.
type Publisher interface {
	Publish(Event)
}

type Manager interface {
	Publisher
	Subscribe(sceneID uuid.UUID) *Subscription
	Run(context.Context) error
	Stop()
}

type Options struct {
	flushInterval time.Duration
}

var defaultOptions = Options{flushInterval: 100 * time.Millisecond}

type Option func(*Hub)

func WithFlushInterval(t time.Duration) Option {
	return func(h *Hub) {
		h.opts.flushInterval = t
	}
}

func New(shutdownCh chan<- error, opts ...Option) (*Hub, error) {
	h := &Hub{
		opts:       defaultOptions,
		subs:       map[uuid.UUID]map[*Subscription]struct{}{},
		shutdownCh: shutdownCh,
	}
	for _, f := range opts {
		f(h)
	}
	return h, nil
}

var _ Manager = (*Hub)(nil)

// Hub buffers change events and fans them out to subscribers. The buffer
// is coalesced on every flush tick, at most one event per scene and kind
// survives with the newest one winning, so a burst of mutations costs the
// clients a single re-render.
type Hub struct {
	mtx sync.RWMutex

	opts Options
	// Buffer that accumulates events between flushes
	buf  []Event
	subs map[uuid.UUID]map[*Subscription]struct{}

	shutdownCh chan<- error
	closed     bool
	cancel     func()
}

func (h *Hub) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	go h.flusher(ctx)
	return nil
}

func (h *Hub) Stop() {
	h.cancel()
}

// Publish adds an event to the buffer. Delivery happens on the next flush.
func (h *Hub) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}
	h.mtx.Lock()
	if h.closed {
		h.mtx.Unlock()
		return
	}
	h.buf = append(h.buf, evt)
	h.mtx.Unlock()
}

// Subscribe registers a subscriber for one scene, or for every scene with
// uuid.Nil. Each subscription owns an unbounded queue so a slow consumer
// never blocks the hub or its neighbours.
func (h *Hub) Subscribe(sceneID uuid.UUID) *Subscription {
	sub := &Subscription{hub: h, sceneID: sceneID, queue: equeue.New()}
	go sub.queue.Loop()

	h.mtx.Lock()
	if h.closed {
		h.mtx.Unlock()
		sub.Close()
		return sub
	}
	if _, ok := h.subs[sceneID]; !ok {
		h.subs[sceneID] = map[*Subscription]struct{}{}
	}
	h.subs[sceneID][sub] = struct{}{}
	h.mtx.Unlock()
	return sub
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mtx.Lock()
	if subs, ok := h.subs[sub.sceneID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.subs, sub.sceneID)
		}
	}
	h.mtx.Unlock()
}

func (h *Hub) flush() {
	h.mtx.Lock()
	if len(h.buf) == 0 {
		h.mtx.Unlock()
		return
	}
	tmpBuf := make([]Event, len(h.buf))
	copy(tmpBuf, h.buf)
	h.buf = h.buf[:0]
	h.mtx.Unlock()

	type key struct {
		scene uuid.UUID
		kind  Kind
	}
	coalesced := map[key]Event{}
	order := make([]key, 0, len(tmpBuf))
	for _, evt := range tmpBuf {
		k := key{scene: evt.SceneID, kind: evt.Kind}
		if _, ok := coalesced[k]; !ok {
			order = append(order, k)
		}
		coalesced[k] = evt
	}

	h.mtx.RLock()
	for _, k := range order {
		evt := coalesced[k]
		for sub := range h.subs[evt.SceneID] {
			sub.queue.Push(evt)
		}
		if evt.SceneID != uuid.Nil {
			for sub := range h.subs[uuid.Nil] {
				sub.queue.Push(evt)
			}
		}
	}
	h.mtx.RUnlock()
}

// Every flush interval the buffered events must be coalesced and delivered
func (h *Hub) flusher(ctx context.Context) {
	defer func() {
		h.shutdownCh <- h.shutdown()
	}()
	ticker := time.NewTicker(h.opts.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.flush()
		case <-ctx.Done():
			return
		}
	}
}

// shutdown delivers the remaining buffer and closes every subscription.
func (h *Hub) shutdown() error {
	h.flush()
	h.mtx.Lock()
	h.closed = true
	var all []*Subscription
	for _, subs := range h.subs {
		for sub := range subs {
			all = append(all, sub)
		}
	}
	h.subs = map[uuid.UUID]map[*Subscription]struct{}{}
	h.mtx.Unlock()

	for _, sub := range all {
		sub.Close()
	}
	return nil
}

type Subscription struct {
	hub     *Hub
	sceneID uuid.UUID
	queue   *equeue.Queue
	once    sync.Once
}

// Pull returns the delivery channel. It is closed once the subscription
// is closed and the backlog is drained.
func (s *Subscription) Pull() <-chan interface{} {
	return s.queue.Pull()
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.unsubscribe(s)
		s.queue.Close()
	})
}
