package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

// mongoSnapshot is the BSON document shape stored by MongoStore.
type mongoSnapshot struct {
	MachineID string    `bson:"machine_id"`
	State     string    `bson:"state"`
	Context   []byte    `bson:"context,omitempty"`
	SavedAt   time.Time `bson:"saved_at"`
}

// MongoStore persists snapshots in a MongoDB collection, one document per
// machine id.
type MongoStore struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

// NewMongoStore creates a MongoDB-backed store. logger may be nil.
func NewMongoStore(client *mongo.Client, database, collection string, logger *zap.Logger) *MongoStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MongoStore{
		coll:   client.Database(database).Collection(collection),
		logger: logger.With(zap.String("component", "mongo_store")),
	}
}

// Save upserts the snapshot document.
func (s *MongoStore) Save(ctx context.Context, machineID, state string, payload any) error {
	raw, err := encodePayload(payload)
	if err != nil {
		return err
	}
	doc := mongoSnapshot{
		MachineID: machineID,
		State:     state,
		Context:   raw,
		SavedAt:   time.Now(),
	}
	_, err = s.coll.ReplaceOne(ctx,
		bson.M{"machine_id": machineID},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo save %s: %w", machineID, err)
	}
	return nil
}

// Load reads the snapshot document, or returns ErrNotFound.
func (s *MongoStore) Load(ctx context.Context, machineID string) (*Snapshot, error) {
	var doc mongoSnapshot
	err := s.coll.FindOne(ctx, bson.M{"machine_id": machineID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongo load %s: %w", machineID, err)
	}
	return &Snapshot{
		MachineID: doc.MachineID,
		State:     doc.State,
		Context:   doc.Context,
		SavedAt:   doc.SavedAt,
	}, nil
}

// Delete removes the snapshot document.
func (s *MongoStore) Delete(ctx context.Context, machineID string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"machine_id": machineID}); err != nil {
		return fmt.Errorf("mongo delete %s: %w", machineID, err)
	}
	return nil
}
