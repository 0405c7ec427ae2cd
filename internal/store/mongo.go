package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"cricketfancy/settlement/internal/models"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const sessionsCollection = "sessions"

// ErrDuplicate is returned by Insert when a document with the same identity
// already exists. Concurrent market ticks discovering the same row race to
// insert; the loser treats this as success.
var ErrDuplicate = errors.New("session already exists")

// manualResultPattern restricts manual results to integer strings.
var manualResultPattern = regexp.MustCompile(`^[0-9]+$`)

// Store wraps the sessions collection. Session documents are the only
// cross-task shared mutable state; all mutations are single-document atomic
// updates.
type Store struct {
	client   *mongo.Client
	sessions *mongo.Collection
}

// New connects to MongoDB, pings it and ensures the identity index. Failure
// here is the only process-fatal condition of the worker.
func New(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	s := &Store{
		client:   client,
		sessions: client.Database(database).Collection(sessionsCollection),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	log.Info().Str("database", database).Msg("Successfully connected to mongodb")
	return s, nil
}

// ensureIndexes creates the unique compound identity index that serializes
// per-identity creation.
func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.sessions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "competitionId", Value: 1},
			{Key: "eventId", Value: 1},
			{Key: "marketId", Value: 1},
			{Key: "selectionId", Value: 1},
		},
		Options: options.Index().SetUnique(true).SetName("session_identity"),
	})
	if err != nil {
		return fmt.Errorf("failed to create identity index: %w", err)
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) {
	if err := s.client.Disconnect(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to disconnect from mongodb")
		return
	}
	log.Info().Msg("Mongodb connection closed")
}

// Health checks the store connection.
func (s *Store) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongodb health check failed: %w", err)
	}
	return nil
}

// FindByIdentity returns the session for an exact identity, or nil when no
// document exists.
func (s *Store) FindByIdentity(ctx context.Context, id models.Identity) (*models.Session, error) {
	var session models.Session
	err := s.sessions.FindOne(ctx, bson.M{
		"competitionId": id.CompetitionID,
		"eventId":       id.EventID,
		"marketId":      id.MarketID,
		"selectionId":   id.SelectionID,
	}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session %s: %w", id, err)
	}
	return &session, nil
}

// Insert creates a session document. The unique identity index turns a
// concurrent double-create into ErrDuplicate.
func (s *Store) Insert(ctx context.Context, session *models.Session) error {
	res, err := s.sessions.InsertOne(ctx, session)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert session %s: %w", session.Identity, err)
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		session.ID = oid
	}

	log.Debug().
		Str("identity", session.Identity.String()).
		Str("session", session.Label).
		Int("status", int(session.Status)).
		Msg("Session created")
	return nil
}

// SetStartTime propagates an upstream start-time change to every session of
// a market.
func (s *Store) SetStartTime(ctx context.Context, marketID int64, startTime string) error {
	_, err := s.sessions.UpdateMany(ctx,
		bson.M{"marketId": marketID},
		bson.M{"$set": bson.M{"startTime": startTime}},
	)
	if err != nil {
		return fmt.Errorf("failed to update start time for market %d: %w", marketID, err)
	}
	return nil
}

// FindPending returns every session awaiting resolution. The resync loop
// feeds these back to the resolver after a restart; watcher state itself is
// never persisted.
func (s *Store) FindPending(ctx context.Context) ([]*models.Session, error) {
	cur, err := s.sessions.Find(ctx, bson.M{"status": models.StatusPending})
	if err != nil {
		return nil, fmt.Errorf("failed to query pending sessions: %w", err)
	}
	defer cur.Close(ctx)

	var sessions []*models.Session
	if err := cur.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode pending sessions: %w", err)
	}
	return sessions, nil
}

// ApplyOutcome writes a poll outcome to a session. The filter admits only
// non-terminal documents, so a terminal status can never be overwritten by a
// late poll; the return value reports whether the write landed.
func (s *Store) ApplyOutcome(ctx context.Context, id primitive.ObjectID, status models.Status, result any, errMsg string) (bool, error) {
	fields := bson.M{"status": status}
	if result != nil {
		fields["result"] = result
	}
	if errMsg != "" {
		fields["error"] = errMsg
	}

	res, err := s.sessions.UpdateOne(ctx,
		bson.M{
			"_id":    id,
			"status": bson.M{"$in": bson.A{models.StatusPending, models.StatusNotAvailable}},
		},
		bson.M{"$set": fields},
	)
	if err != nil {
		return false, fmt.Errorf("failed to apply outcome to session %s: %w", id.Hex(), err)
	}
	return res.MatchedCount > 0, nil
}

// GetByIdentity serves the admin query contract: exact lookup by the three
// upstream-facing identity fields.
func (s *Store) GetByIdentity(ctx context.Context, eventID, marketID, selectionID int64) (*models.Session, error) {
	var session models.Session
	err := s.sessions.FindOne(ctx, bson.M{
		"eventId":     eventID,
		"marketId":    marketID,
		"selectionId": selectionID,
	}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %d/%d/%d: %w", eventID, marketID, selectionID, err)
	}
	return &session, nil
}

// ExistsUnresolved reports whether the identity has a session that is still
// not RESOLVED.
func (s *Store) ExistsUnresolved(ctx context.Context, eventID, marketID, selectionID int64) (bool, error) {
	err := s.sessions.FindOne(ctx, bson.M{
		"eventId":     eventID,
		"marketId":    marketID,
		"selectionId": selectionID,
		"status":      bson.M{"$ne": models.StatusResolved},
	}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check session %d/%d/%d: %w", eventID, marketID, selectionID, err)
	}
	return true, nil
}

// ListUnresolved pages through sessions stuck in a failure status, filtered
// by a case-insensitive label substring.
func (s *Store) ListUnresolved(ctx context.Context, search string, offset, limit int64) ([]*models.Session, error) {
	if limit <= 0 {
		limit = 10
	}

	filter := bson.M{
		"status": bson.M{"$nin": bson.A{models.StatusPending, models.StatusResolved}},
	}
	if search != "" {
		filter["session"] = bson.M{"$regex": regexp.QuoteMeta(search), "$options": "i"}
	}

	cur, err := s.sessions.Find(ctx, filter, options.Find().SetSkip(offset).SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list unresolved sessions: %w", err)
	}
	defer cur.Close(ctx)

	var sessions []*models.Session
	if err := cur.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode unresolved sessions: %w", err)
	}
	return sessions, nil
}

// CountsByStatus aggregates the failure backlog per status. Feeds the
// unresolved listing and the digest email.
func (s *Store) CountsByStatus(ctx context.Context) (map[models.Status]int64, error) {
	cur, err := s.sessions.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"status": bson.M{"$nin": bson.A{models.StatusPending, models.StatusResolved}},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$status",
			"count": bson.M{"$sum": 1},
		}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate status counts: %w", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Status int64 `bson:"_id"`
		Count  int64 `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode status counts: %w", err)
	}

	counts := make(map[models.Status]int64, len(rows))
	for _, row := range rows {
		counts[models.Status(row.Status)] = row.Count
	}
	return counts, nil
}

// ManualResolve force-sets a session to RESOLVED with an operator-supplied
// integer result and returns the updated document. The caller fans the
// result out to subscribers exactly like an automatic resolution.
func (s *Store) ManualResolve(ctx context.Context, eventID, marketID, selectionID int64, result string) (*models.Session, error) {
	if !manualResultPattern.MatchString(result) {
		return nil, fmt.Errorf("manual result %q is not an integer string", result)
	}
	value, err := strconv.ParseInt(result, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("manual result %q out of range: %w", result, err)
	}

	var session models.Session
	err = s.sessions.FindOneAndUpdate(ctx,
		bson.M{
			"eventId":     eventID,
			"marketId":    marketID,
			"selectionId": selectionID,
		},
		bson.M{"$set": bson.M{"status": models.StatusResolved, "result": value}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to manually resolve session %d/%d/%d: %w", eventID, marketID, selectionID, err)
	}

	log.Info().
		Str("identity", session.Identity.String()).
		Str("result", result).
		Msg("Session manually resolved")
	return &session, nil
}
