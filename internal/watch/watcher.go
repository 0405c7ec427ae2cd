// Package watch discovers work: a hierarchy of polling loops walks the
// upstream listing feed from competitions down to fancy-market session rows
// and creates a session document, plus a resolver enrollment, for every row
// seen for the first time.
package watch

import (
	"context"
	"sync"
	"time"

	"cricketfancy/settlement/internal/metrics"
	"cricketfancy/settlement/internal/models"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// ListingClient fetches the three listing levels.
type ListingClient interface {
	Competitions(ctx context.Context) ([]models.CompetitionRow, error)
	Events(ctx context.Context, competitionID int64) ([]models.EventRow, error)
	Markets(ctx context.Context, eventID int64) ([]models.MarketRow, error)
}

// SessionStore is the slice of the store the watcher needs.
type SessionStore interface {
	FindByIdentity(ctx context.Context, id models.Identity) (*models.Session, error)
	Insert(ctx context.Context, session *models.Session) error
	SetStartTime(ctx context.Context, marketID int64, startTime string) error
	FindPending(ctx context.Context) ([]*models.Session, error)
}

// Enroller hands sessions to the resolver.
type Enroller interface {
	Enroll(session *models.Session)
	CancelEvent(eventID int64)
}

// Classifier decides whether a session label has a handler.
type Classifier func(label string) bool

// Intervals are the polling periods per listing level.
type Intervals struct {
	Competition time.Duration
	Event       time.Duration
	Market      time.Duration
}

// Watcher owns the discovery hierarchy. Watcher state is in-memory only; the
// resync job rebuilds resolver enrollment from the store after a restart,
// and the discovery loops rebuild themselves from the live listing.
type Watcher struct {
	client   ListingClient
	store    SessionStore
	enroller Enroller
	classify Classifier

	intervals Intervals
	registry  *registry

	resyncSpec string
	cron       *cron.Cron

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(client ListingClient, store SessionStore, enroller Enroller, classify Classifier, intervals Intervals, resyncSpec string) *Watcher {
	return &Watcher{
		client:     client,
		store:      store,
		enroller:   enroller,
		classify:   classify,
		intervals:  intervals,
		registry:   newRegistry(),
		resyncSpec: resyncSpec,
	}
}

// Run starts the competition loop and the resync cron. It returns once the
// loops are scheduled; Stop tears everything down.
func (w *Watcher) Run(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)

	w.cron = cron.New()
	if _, err := w.cron.AddFunc(w.resyncSpec, func() { w.resync(ctx) }); err != nil {
		return err
	}
	w.cron.Start()

	// Pick up sessions left pending by a previous run before discovery
	// starts creating new ones.
	w.resync(ctx)

	w.wg.Add(1)
	go w.competitionLoop(ctx)

	log.Info().
		Dur("competitionInterval", w.intervals.Competition).
		Dur("eventInterval", w.intervals.Event).
		Dur("marketInterval", w.intervals.Market).
		Str("resync", w.resyncSpec).
		Msg("Watcher started")
	return nil
}

// Stop halts discovery and the resync cron. Resolver pollers are owned by
// the resolver and stopped separately.
func (w *Watcher) Stop() {
	if w.cron != nil {
		w.cron.Stop()
	}
	if w.cancel != nil {
		w.cancel()
	}
	w.registry.dropAll()
	w.wg.Wait()
	log.Info().Msg("Watcher stopped")
}

// resync re-enrolls every pending session from the store.
func (w *Watcher) resync(ctx context.Context) {
	sessions, err := w.store.FindPending(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Resync query failed")
		return
	}
	for _, s := range sessions {
		w.enroller.Enroll(s)
	}
	if len(sessions) > 0 {
		log.Info().Int("sessions", len(sessions)).Msg("Resync enrolled pending sessions")
	}
}

// tickLoop runs fn immediately and then once per interval until the context
// ends.
func (w *Watcher) tickLoop(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	defer w.wg.Done()

	fn(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

func (w *Watcher) competitionLoop(ctx context.Context) {
	metrics.WatchersActive.WithLabelValues("competition").Inc()
	defer metrics.WatchersActive.WithLabelValues("competition").Dec()
	w.tickLoop(ctx, w.intervals.Competition, w.pollCompetitions)
}

func (w *Watcher) pollCompetitions(ctx context.Context) {
	rows, err := w.client.Competitions(ctx)
	if err != nil {
		metrics.ListingFetchesTotal.WithLabelValues("competition", "error").Inc()
		log.Warn().Err(err).Msg("Competition listing fetch failed")
		return
	}
	metrics.ListingFetchesTotal.WithLabelValues("competition", "ok").Inc()

	live := make(map[int64]bool, len(rows))
	for _, row := range rows {
		id := row.Competition.ID.Int64()
		if id == 0 {
			continue
		}
		live[id] = true
		if w.registry.hasCompetition(id) {
			continue
		}

		cctx, cancel := context.WithCancel(ctx)
		if !w.registry.addCompetition(id, cancel) {
			cancel()
			continue
		}
		log.Info().Int64("competitionId", id).Str("name", row.Competition.Name).Msg("Watching competition")
		metrics.WatchersActive.WithLabelValues("event").Inc()
		w.wg.Add(1)
		go func(competitionID int64) {
			defer metrics.WatchersActive.WithLabelValues("event").Dec()
			w.tickLoop(cctx, w.intervals.Event, func(c context.Context) {
				w.pollEvents(c, competitionID)
			})
		}(id)
	}

	// A competition gone from the listing takes its whole subtree down.
	for _, id := range w.registry.competitionIDs() {
		if !live[id] {
			log.Info().Int64("competitionId", id).Msg("Competition gone from listing, dropping watchers")
			w.registry.dropCompetition(id)
		}
	}
}

func (w *Watcher) pollEvents(ctx context.Context, competitionID int64) {
	rows, err := w.client.Events(ctx, competitionID)
	if err != nil {
		metrics.ListingFetchesTotal.WithLabelValues("event", "error").Inc()
		log.Warn().Err(err).Int64("competitionId", competitionID).Msg("Event listing fetch failed")
		return
	}
	metrics.ListingFetchesTotal.WithLabelValues("event", "ok").Inc()

	live := make(map[int64]bool, len(rows))
	for _, row := range rows {
		// One event appears once per market; the Match Odds row is the
		// canonical one.
		if row.MarketName != "Match Odds" {
			continue
		}
		eventID := row.Event.ID.Int64()
		marketID := row.MarketID.Int64()
		if eventID == 0 || marketID == 0 || live[eventID] {
			continue
		}
		live[eventID] = true

		// Start times move when fixtures are rescheduled; push the
		// current value down to every session of the market.
		if row.MarketStartTime != "" {
			if err := w.store.SetStartTime(ctx, marketID, row.MarketStartTime); err != nil {
				log.Warn().Err(err).Int64("marketId", marketID).Msg("Failed to propagate start time")
			}
		}

		ectx, cancel := context.WithCancel(ctx)
		if !w.registry.addEvent(competitionID, eventID, cancel) {
			cancel()
			continue
		}
		log.Info().
			Int64("competitionId", competitionID).
			Int64("eventId", eventID).
			Str("name", row.Event.Name).
			Msg("Watching event")
		metrics.WatchersActive.WithLabelValues("market").Inc()
		w.wg.Add(1)
		go func(ev eventRef) {
			defer metrics.WatchersActive.WithLabelValues("market").Dec()
			w.tickLoop(ectx, w.intervals.Market, func(c context.Context) {
				w.pollMarkets(c, ev)
			})
		}(eventRef{
			competitionID: competitionID,
			eventID:       eventID,
			marketID:      marketID,
			startTime:     row.MarketStartTime,
		})
	}

	for _, id := range w.registry.eventIDs(competitionID) {
		if !live[id] {
			log.Info().Int64("eventId", id).Msg("Event gone from listing, dropping watcher")
			w.registry.dropEvent(competitionID, id)
		}
	}
}

// eventRef carries the identity prefix a market watcher stamps on every
// session it creates.
type eventRef struct {
	competitionID int64
	eventID       int64
	marketID      int64
	startTime     string
}

func (w *Watcher) pollMarkets(ctx context.Context, ev eventRef) {
	rows, err := w.client.Markets(ctx, ev.eventID)
	if err != nil {
		metrics.ListingFetchesTotal.WithLabelValues("market", "error").Inc()
		log.Warn().Err(err).Int64("eventId", ev.eventID).Msg("Market catalogue fetch failed")
		return
	}
	metrics.ListingFetchesTotal.WithLabelValues("market", "ok").Inc()

	if len(rows) > 0 && rows[0].Status == models.MarketStatusClosed {
		log.Info().Int64("eventId", ev.eventID).Msg("Market closed, tearing down event watcher")
		w.enroller.CancelEvent(ev.eventID)
		w.registry.markClosed(ev.competitionID, ev.eventID)
		return
	}

	for _, row := range rows {
		if row.GType != "fancy" {
			continue
		}
		for _, section := range row.Section {
			w.ensureSession(ctx, ev, row.MName, section)
		}
	}
}

// ensureSession creates the session document for a raw row if this identity
// was never seen, and enrolls it when its label has a handler.
func (w *Watcher) ensureSession(ctx context.Context, ev eventRef, marketName string, section models.SectionRow) {
	selectionID := section.SID.Int64()
	if selectionID == 0 || section.Nat == "" {
		return
	}
	identity := models.Identity{
		CompetitionID: ev.competitionID,
		EventID:       ev.eventID,
		MarketID:      ev.marketID,
		SelectionID:   selectionID,
	}

	existing, err := w.store.FindByIdentity(ctx, identity)
	if err != nil {
		log.Warn().Err(err).Str("identity", identity.String()).Msg("Session lookup failed")
		return
	}
	if existing != nil {
		return
	}

	status := models.StatusPending
	if !w.classify(section.Nat) {
		status = models.StatusNotHandled
	}

	session := &models.Session{
		Identity:   identity,
		Label:      section.Nat,
		MarketName: marketName,
		StartTime:  ev.startTime,
		Status:     status,
	}
	if err := w.store.Insert(ctx, session); err != nil {
		// Lost an insert race with another tick; the winner owns it.
		log.Debug().Err(err).Str("identity", identity.String()).Msg("Session insert skipped")
		return
	}
	metrics.SessionsCreatedTotal.WithLabelValues(status.String()).Inc()

	if status == models.StatusPending {
		w.enroller.Enroll(session)
	}
}
