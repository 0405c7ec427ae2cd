// Package resolver drives per-session settlement. Every enrolled session
// gets a lightweight polling loop that fetches a fresh timeline snapshot,
// runs the session's statistic handler and persists the outcome; attempts
// are executed on a shared worker pool so thousands of concurrent sessions
// cannot pile up goroutine-per-attempt work.
package resolver

import (
	"context"
	"math"
	"sync"
	"time"

	"cricketfancy/settlement/internal/classify"
	"cricketfancy/settlement/internal/metrics"
	"cricketfancy/settlement/internal/models"
	"cricketfancy/settlement/internal/stats"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TimelineFetcher supplies fresh snapshots; results must never be reused
// across attempts beyond the fetcher's own short cache window.
type TimelineFetcher interface {
	FetchTimeline(ctx context.Context, eventID int64) (*models.TimelineSnapshot, error)
}

// SessionStore persists poll outcomes and operator overrides.
type SessionStore interface {
	ApplyOutcome(ctx context.Context, id primitive.ObjectID, status models.Status, result any, errMsg string) (bool, error)
	ManualResolve(ctx context.Context, eventID, marketID, selectionID int64, result string) (*models.Session, error)
}

// Notifier fans settled results out to subscribers.
type Notifier interface {
	SessionResolved(ctx context.Context, session *models.Session)
}

// Options tunes the resolver.
type Options struct {
	PollInterval time.Duration
	// NotAvailableLimit caps consecutive data-missing attempts before the
	// poller gives up. The session stays NOT_AVAILABLE in the store and a
	// later resync may re-enroll it if an operator resets it.
	NotAvailableLimit int
	PoolSize          int
}

type poller struct {
	eventID int64
	cancel  context.CancelFunc
}

// Resolver owns every active session poller.
type Resolver struct {
	store    SessionStore
	fetcher  TimelineFetcher
	notifier Notifier
	opts     Options
	pool     *ants.Pool

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pollers map[primitive.ObjectID]*poller
}

// New builds a resolver with a dedicated worker pool.
func New(store SessionStore, fetcher TimelineFetcher, notifier Notifier, opts Options) (*Resolver, error) {
	pool, err := ants.NewPool(opts.PoolSize, ants.WithNonblocking(false))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Resolver{
		store:    store,
		fetcher:  fetcher,
		notifier: notifier,
		opts:     opts,
		pool:     pool,
		ctx:      ctx,
		cancel:   cancel,
		pollers:  make(map[primitive.ObjectID]*poller),
	}, nil
}

// Enroll starts polling a session. Enrolling an already-tracked or terminal
// session is a no-op, which makes resync idempotent.
func (r *Resolver) Enroll(session *models.Session) {
	if session.Status.Terminal() {
		return
	}

	kind, ok := classify.Classify(session.Label)
	if !ok {
		// Labels are classified before creation, so this only happens
		// for documents written by an older rule set.
		if _, err := r.store.ApplyOutcome(r.ctx, session.ID, models.StatusNotHandled, nil, "no handler matches session label"); err != nil {
			log.Error().Err(err).Str("identity", session.Identity.String()).Msg("Failed to mark session not handled")
		}
		return
	}

	ctx, cancel := context.WithCancel(r.ctx)

	r.mu.Lock()
	if _, exists := r.pollers[session.ID]; exists {
		r.mu.Unlock()
		cancel()
		return
	}
	r.pollers[session.ID] = &poller{eventID: session.EventID, cancel: cancel}
	r.mu.Unlock()

	metrics.PollersActive.Inc()
	log.Info().
		Str("identity", session.Identity.String()).
		Str("session", session.Label).
		Str("kind", string(kind)).
		Msg("Session enrolled for resolution")

	go r.run(ctx, session, kind)
}

// run is the per-session loop: one immediate attempt, then one per tick
// until a terminal outcome or cancellation.
func (r *Resolver) run(ctx context.Context, session *models.Session, kind classify.Kind) {
	defer r.remove(session.ID)

	// Consecutive data-missing attempts; reset whenever data comes back.
	naStreak := 0

	if done := r.submit(ctx, session, kind, &naStreak); done {
		return
	}

	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if done := r.submit(ctx, session, kind, &naStreak); done {
				return
			}
		}
	}
}

// submit runs one attempt on the shared pool and waits for it, keeping each
// session's attempts serialized.
func (r *Resolver) submit(ctx context.Context, session *models.Session, kind classify.Kind, naStreak *int) bool {
	done := make(chan bool, 1)
	err := r.pool.Submit(func() {
		done <- r.attempt(ctx, session, kind, naStreak)
	})
	if err != nil {
		log.Error().Err(err).Str("identity", session.Identity.String()).Msg("Failed to submit resolution attempt")
		return false
	}
	select {
	case <-ctx.Done():
		return true
	case terminal := <-done:
		return terminal
	}
}

// attempt performs a single fetch-classify-persist cycle and reports whether
// the session reached a terminal state.
func (r *Resolver) attempt(ctx context.Context, session *models.Session, kind classify.Kind, naStreak *int) bool {
	start := time.Now()
	defer func() {
		metrics.SessionPollDuration.Observe(time.Since(start).Seconds())
	}()

	var outcome stats.Outcome
	snap, err := r.fetcher.FetchTimeline(ctx, session.EventID)
	if err != nil {
		outcome = stats.NotAvailable(err.Error())
	} else {
		outcome = stats.Resolve(kind, session.Label, snap)
	}

	switch outcome.Kind {
	case stats.OutcomeInProgress:
		*naStreak = 0
		return false

	case stats.OutcomeClosed:
		if outcome.Text != "" {
			return r.finish(ctx, session, models.StatusResolved, outcome.Text, "")
		}
		if outcome.Valid && !math.IsNaN(outcome.Value) && !math.IsInf(outcome.Value, 0) {
			return r.finish(ctx, session, models.StatusResolved, numericResult(outcome.Value), "")
		}
		return r.finish(ctx, session, models.StatusUnexpectedResult, nil, "handler produced no usable result")

	case stats.OutcomeNotProcessable:
		return r.finish(ctx, session, models.StatusNotProcessable, nil, outcome.Reason)

	case stats.OutcomeNotAvailable:
		*naStreak++
		if _, err := r.store.ApplyOutcome(ctx, session.ID, models.StatusNotAvailable, nil, outcome.Reason); err != nil {
			log.Error().Err(err).Str("identity", session.Identity.String()).Msg("Failed to record not-available outcome")
		}
		if *naStreak >= r.opts.NotAvailableLimit {
			metrics.SessionsSettledTotal.WithLabelValues(models.StatusNotAvailable.String()).Inc()
			log.Warn().
				Str("identity", session.Identity.String()).
				Int("attempts", *naStreak).
				Msg("Giving up on session, data unavailable")
			return true
		}
		return false
	}
	return false
}

// finish writes a terminal outcome. The store's conditional update refuses
// the write when the document already reached a terminal status, so late
// attempts never clobber an earlier settlement or a manual resolution.
func (r *Resolver) finish(ctx context.Context, session *models.Session, status models.Status, result any, errMsg string) bool {
	applied, err := r.store.ApplyOutcome(ctx, session.ID, status, result, errMsg)
	if err != nil {
		log.Error().Err(err).Str("identity", session.Identity.String()).Msg("Failed to persist session outcome")
		return false
	}
	if !applied {
		log.Warn().Str("identity", session.Identity.String()).Msg("Session already terminal, outcome discarded")
		return true
	}

	metrics.SessionsSettledTotal.WithLabelValues(status.String()).Inc()
	log.Info().
		Str("identity", session.Identity.String()).
		Str("session", session.Label).
		Str("status", status.String()).
		Interface("result", result).
		Msg("Session settled")

	if status == models.StatusResolved && r.notifier != nil {
		session.Status = status
		session.Result = result
		r.notifier.SessionResolved(ctx, session)
	}
	return true
}

// numericResult stores whole-number results as integers so the documents
// read naturally.
func numericResult(v float64) any {
	if v == math.Trunc(v) {
		return int64(v)
	}
	return v
}

func (r *Resolver) remove(id primitive.ObjectID) {
	r.mu.Lock()
	p, ok := r.pollers[id]
	if ok {
		delete(r.pollers, id)
	}
	r.mu.Unlock()
	if ok {
		p.cancel()
		metrics.PollersActive.Dec()
	}
}

// Cancel stops the poller for one session, if any.
func (r *Resolver) Cancel(id primitive.ObjectID) {
	r.mu.Lock()
	p, ok := r.pollers[id]
	r.mu.Unlock()
	if ok {
		p.cancel()
	}
}

// ResolveManually force-settles a stuck session with an operator-supplied
// result, stops its poller and fires the same subscriber fan-out as an
// automatic resolution. Returns nil without error when no session matches.
func (r *Resolver) ResolveManually(ctx context.Context, eventID, marketID, selectionID int64, result string) (*models.Session, error) {
	session, err := r.store.ManualResolve(ctx, eventID, marketID, selectionID, result)
	if err != nil || session == nil {
		return session, err
	}

	r.Cancel(session.ID)
	metrics.SessionsSettledTotal.WithLabelValues(models.StatusResolved.String()).Inc()
	log.Info().
		Str("identity", session.Identity.String()).
		Str("session", session.Label).
		Interface("result", session.Result).
		Msg("Session resolved manually")

	if r.notifier != nil {
		r.notifier.SessionResolved(ctx, session)
	}
	return session, nil
}

// CancelEvent stops every poller belonging to an event. Called when the
// event's market closes upstream.
func (r *Resolver) CancelEvent(eventID int64) {
	r.mu.Lock()
	var cancels []context.CancelFunc
	for _, p := range r.pollers {
		if p.eventID == eventID {
			cancels = append(cancels, p.cancel)
		}
	}
	r.mu.Unlock()

	for _, c := range cancels {
		c()
	}
	if len(cancels) > 0 {
		log.Info().Int64("eventId", eventID).Int("sessions", len(cancels)).Msg("Cancelled session pollers for closed event")
	}
}

// EnrolledCount reports the number of active pollers.
func (r *Resolver) EnrolledCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pollers)
}

// Stop cancels every poller and releases the worker pool.
func (r *Resolver) Stop() {
	r.cancel()
	r.pool.Release()
	log.Info().Msg("Resolver stopped")
}
