package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"villabook/internal/domain/reservation"
	"villabook/internal/domain/units"
)

var errCodeExists = errors.New("mongo: code exists")

// ReservationStore is the shared reservations collection. Create runs the
// overlap check and the insert in one transaction serialized per unit by a
// lock document, so two overlapping creates never both commit.
type ReservationStore struct {
	col          *mongo.Collection
	locks        *mongo.Collection
	PollInterval time.Duration
	Logger       *slog.Logger
}

func NewReservationStore(ctx context.Context, db *mongo.Database) (*ReservationStore, error) {
	col := db.Collection("reservations")
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "check_in", Value: 1}, {Key: "check_out", Value: 1}}},
	}
	if _, err := col.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, err
	}
	return &ReservationStore{
		col:          col,
		locks:        db.Collection("reservation_locks"),
		PollInterval: 5 * time.Second,
	}, nil
}

func (s *ReservationStore) Create(ctx context.Context, r *reservation.Reservation) (string, error) {
	session, err := s.col.Database().Client().StartSession()
	if err != nil {
		return "", err
	}
	defer session.EndSession(ctx)

	var existing string
	txnOpts := options.Transaction().SetReadConcern(s.col.Database().ReadConcern()).SetWriteConcern(s.col.Database().WriteConcern())
	res, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		// Touching the lock document makes concurrent creates on the unit
		// conflict; the driver retries the loser.
		lock := bson.M{"$inc": bson.M{"seq": 1}, "$set": bson.M{"touched_at": time.Now().UTC()}}
		if _, err := s.locks.UpdateByID(sc, lockKey(r.UnitID), lock, options.Update().SetUpsert(true)); err != nil {
			return nil, err
		}

		var byCode reservationDocument
		err := s.col.FindOne(sc, bson.M{"code": string(r.ID)}).Decode(&byCode)
		switch {
		case err == nil:
			existing = byCode.ID
			return nil, errCodeExists
		case !errors.Is(err, mongo.ErrNoDocuments):
			return nil, err
		}

		overlapping := bson.M{
			"check_in":  bson.M{"$lt": string(r.Range.CheckOut)},
			"check_out": bson.M{"$gt": string(r.Range.CheckIn)},
			"status":    bson.M{"$in": bson.A{string(reservation.StatusPending), string(reservation.StatusConfirmed)}},
		}
		cur, err := s.col.Find(sc, overlapping)
		if err != nil {
			return nil, err
		}
		var docs []reservationDocument
		if err := cur.All(sc, &docs); err != nil {
			return nil, err
		}
		for _, doc := range docs {
			if other := doc.toAggregate(); r.Conflicts(other) {
				return nil, fmt.Errorf("%w: overlaps %s", reservation.ErrAvailabilityConflict, other.ID)
			}
		}

		doc := newReservationDocument(primitive.NewObjectID().Hex(), r)
		if _, err := s.col.InsertOne(sc, doc); err != nil {
			return nil, err
		}
		return doc.ID, nil
	}, txnOpts)
	if errors.Is(err, errCodeExists) {
		return existing, reservation.ErrAlreadyStored
	}
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

func lockKey(unit units.UnitID) string {
	return string(units.Canonical(string(unit)))
}

func (s *ReservationStore) List(ctx context.Context) ([]*reservation.Reservation, error) {
	cur, err := s.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "check_in", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []reservationDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*reservation.Reservation, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

func (s *ReservationStore) Get(ctx context.Context, remoteID string) (*reservation.Reservation, error) {
	var doc reservationDocument
	if err := s.col.FindOne(ctx, bson.M{"_id": remoteID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservation.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// Update replaces the document. There is no version check: admin edits are
// last-write-wins.
func (s *ReservationStore) Update(ctx context.Context, r *reservation.Reservation) error {
	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": r.RemoteID}, newReservationDocument(r.RemoteID, r))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return reservation.ErrNotFound
	}
	return nil
}

func (s *ReservationStore) Delete(ctx context.Context, remoteID string) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": remoteID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return reservation.ErrNotFound
	}
	return nil
}

// Watch follows the change stream. Deployments without one (standalone
// servers) are polled instead.
func (s *ReservationStore) Watch(ctx context.Context, onChange func()) error {
	stream, err := s.col.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.Logger != nil {
			s.Logger.Warn("change stream unavailable, polling reservations", "error", err)
		}
		return s.poll(ctx, onChange)
	}
	defer stream.Close(context.Background())
	for stream.Next(ctx) {
		onChange()
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return stream.Err()
}

func (s *ReservationStore) poll(ctx context.Context, onChange func()) error {
	interval := s.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	last, err := s.fingerprint(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			current, err := s.fingerprint(ctx)
			if err != nil {
				return err
			}
			if current != last {
				last = current
				onChange()
			}
		}
	}
}

type collectionFingerprint struct {
	count   int64
	updated time.Time
}

func (s *ReservationStore) fingerprint(ctx context.Context) (collectionFingerprint, error) {
	count, err := s.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return collectionFingerprint{}, err
	}
	var latest reservationDocument
	err = s.col.FindOne(ctx, bson.M{}, options.FindOne().SetSort(bson.D{{Key: "updated_at", Value: -1}})).Decode(&latest)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return collectionFingerprint{}, err
	}
	return collectionFingerprint{count: count, updated: latest.UpdatedAt}, nil
}

var _ reservation.RemoteStore = (*ReservationStore)(nil)
