package store

import (
	"sync"

	"github.com/timmy/insights/internal/domain"
)

// Event is published after every successful mutation.
type Event struct {
	Version  uint64           // strictly increasing per store
	Op       string           // mutation that produced it, e.g. OpUpload
	ID       string           // affected dataset, empty for whole-sequence ops
	Datasets []domain.Dataset // deep copy of the full sequence, in stored order
}

// Mutation names carried by Event.Op.
const (
	OpLoad            = "load"
	OpUpload          = "upload"
	OpDelete          = "delete"
	OpStartProcessing = "start_processing"
	OpComplete        = "complete_processing"
	OpMarkAnalyzed    = "mark_analyzed"
	OpMarkAllAnalyzed = "mark_all_analyzed"
)

// Observer receives store events. OnDatasets runs on the mutating
// goroutine and must not call store mutations or Close synchronously.
type Observer interface {
	OnDatasets(Event)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(Event)

// OnDatasets calls f(ev).
func (f ObserverFunc) OnDatasets(ev Event) { f(ev) }

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	id   uint64
	obs  Observer
	hub  *hub
	once sync.Once
}

// Cancel stops delivery. Safe to call more than once, and from inside
// the observer's own callback.
func (s *Subscription) Cancel() {
	s.once.Do(func() { s.hub.remove(s.id) })
}

// hub keeps observers in subscription order.
type hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []*Subscription
}

func (h *hub) add(obs Observer) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	sub := &Subscription{id: h.nextID, obs: obs, hub: h}
	h.subs = append(h.subs, sub)
	return sub
}

func (h *hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, sub := range h.subs {
		if sub.id == id {
			h.subs = append(h.subs[:i:i], h.subs[i+1:]...)
			return
		}
	}
}

func (h *hub) len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// dispatch hands every observer its own copy of the sequence.
func (h *hub) dispatch(ev Event) {
	h.mu.RLock()
	subs := append([]*Subscription(nil), h.subs...)
	h.mu.RUnlock()

	for _, sub := range subs {
		sub.obs.OnDatasets(Event{
			Version:  ev.Version,
			Op:       ev.Op,
			ID:       ev.ID,
			Datasets: domain.CloneAll(ev.Datasets),
		})
	}
}
