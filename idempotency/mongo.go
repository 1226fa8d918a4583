package idempotency

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

/*
MongoDB Schema:

Collection: event_idempotency

Document structure:
{
    "_id": string (event ID),
    "processed_at": ISODate,
    "expires_at": ISODate
}

Indexes:
db.event_idempotency.createIndex({ "expires_at": 1 }, { expireAfterSeconds: 0 })
*/

// mongoEntry is an idempotency document in MongoDB
type mongoEntry struct {
	ID          string    `bson:"_id"`
	ProcessedAt time.Time `bson:"processed_at"`
	ExpiresAt   time.Time `bson:"expires_at"`
}

// MongoStore implements Store on a MongoDB collection.
//
// IsDuplicate atomically claims the event ID by inserting a document
// with the ID as _id; a duplicate key error means another caller got
// there first. MongoDB's TTL monitor deletes expired documents using
// the expires_at index, so no sweeper goroutine is needed.
//
// For deployments already running MongoDB without Redis.
type MongoStore struct {
	collection *mongo.Collection
	ttl        time.Duration
}

// DefaultMongoCollection is the collection name used by NewMongoStore.
const DefaultMongoCollection = "event_idempotency"

// NewMongoStore creates a MongoDB-backed store remembering event IDs
// for ttl. Call EnsureIndexes once at startup to create the TTL index.
func NewMongoStore(db *mongo.Database, ttl time.Duration) *MongoStore {
	return &MongoStore{
		collection: db.Collection(DefaultMongoCollection),
		ttl:        ttl,
	}
}

// Indexes returns the index models required by the store.
func (s *MongoStore) Indexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
}

// EnsureIndexes creates the required indexes for the collection.
// Idempotent; safe to call on every startup.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, s.Indexes())
	if err != nil {
		return fmt.Errorf("create idempotency indexes: %w", err)
	}
	return nil
}

// IsDuplicate atomically claims eventID. A duplicate key error on the
// insert means the ID was already claimed, which is the duplicate
// signal, not a failure.
func (s *MongoStore) IsDuplicate(ctx context.Context, eventID string) (bool, error) {
	now := time.Now()
	_, err := s.collection.InsertOne(ctx, mongoEntry{
		ID:          eventID,
		ProcessedAt: now,
		ExpiresAt:   now.Add(s.ttl),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return true, nil
		}
		return false, fmt.Errorf("mongo insert: %w", err)
	}
	return false, nil
}

// MarkProcessed refreshes the retention window for eventID.
func (s *MongoStore) MarkProcessed(ctx context.Context, eventID string) error {
	return s.MarkProcessedWithTTL(ctx, eventID, s.ttl)
}

// MarkProcessedWithTTL upserts eventID with a custom retention window.
func (s *MongoStore) MarkProcessedWithTTL(ctx context.Context, eventID string, ttl time.Duration) error {
	now := time.Now()
	_, err := s.collection.UpdateByID(ctx, eventID,
		bson.M{"$set": bson.M{
			"processed_at": now,
			"expires_at":   now.Add(ttl),
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo upsert: %w", err)
	}
	return nil
}

// Remove deletes the document for eventID. Succeeds when the document
// does not exist.
func (s *MongoStore) Remove(ctx context.Context, eventID string) error {
	_, err := s.collection.DeleteOne(ctx, bson.M{"_id": eventID})
	if err != nil {
		return fmt.Errorf("mongo delete: %w", err)
	}
	return nil
}

// Compile-time check
var _ Store = (*MongoStore)(nil)
