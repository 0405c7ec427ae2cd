package watch

import (
	"context"
	"sync"
)

// registry tracks the cancel function of every level-watcher goroutine.
// Child contexts derive from their parent watcher's context, so cancelling a
// competition tears down its event watchers and their market watchers
// transitively.
type registry struct {
	mu sync.Mutex
	// competitionID -> cancel
	competitions map[int64]context.CancelFunc
	// competitionID -> eventID -> cancel
	events map[int64]map[int64]context.CancelFunc
	// Events whose market closed. Markets never reopen, so these must not
	// be rediscovered while the event listing still advertises them.
	closed map[int64]bool
}

func newRegistry() *registry {
	return &registry{
		competitions: make(map[int64]context.CancelFunc),
		events:       make(map[int64]map[int64]context.CancelFunc),
		closed:       make(map[int64]bool),
	}
}

// addCompetition registers a competition watcher. Returns false when one is
// already running.
func (r *registry) addCompetition(id int64, cancel context.CancelFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.competitions[id]; ok {
		return false
	}
	r.competitions[id] = cancel
	r.events[id] = make(map[int64]context.CancelFunc)
	return true
}

// dropCompetition cancels a competition watcher and forgets its events.
func (r *registry) dropCompetition(id int64) {
	r.mu.Lock()
	cancel := r.competitions[id]
	delete(r.competitions, id)
	delete(r.events, id)
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (r *registry) hasCompetition(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.competitions[id]
	return ok
}

func (r *registry) competitionIDs() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.competitions))
	for id := range r.competitions {
		ids = append(ids, id)
	}
	return ids
}

func (r *registry) addEvent(competitionID, eventID int64, cancel context.CancelFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed[eventID] {
		return false
	}
	events, ok := r.events[competitionID]
	if !ok {
		// Competition already torn down.
		return false
	}
	if _, exists := events[eventID]; exists {
		return false
	}
	events[eventID] = cancel
	return true
}

// markClosed tombstones an event whose market closed and cancels its watcher.
func (r *registry) markClosed(competitionID, eventID int64) {
	r.mu.Lock()
	r.closed[eventID] = true
	r.mu.Unlock()
	r.dropEvent(competitionID, eventID)
}

func (r *registry) dropEvent(competitionID, eventID int64) {
	r.mu.Lock()
	var cancel context.CancelFunc
	if events, ok := r.events[competitionID]; ok {
		cancel = events[eventID]
		delete(events, eventID)
	}
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (r *registry) eventIDs(competitionID int64) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.events[competitionID]))
	for id := range r.events[competitionID] {
		ids = append(ids, id)
	}
	return ids
}

// dropAll cancels everything; used on shutdown.
func (r *registry) dropAll() {
	r.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(r.competitions))
	for _, c := range r.competitions {
		cancels = append(cancels, c)
	}
	r.competitions = make(map[int64]context.CancelFunc)
	r.events = make(map[int64]map[int64]context.CancelFunc)
	r.mu.Unlock()
	for _, c := range cancels {
		c()
	}
}
