package auditlog

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const defaultMongoCollection = "cnw_license_verifications"

// validCollectionName matches safe MongoDB collection names.
var validCollectionName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// MongoOption configures a MongoRecorder.
type MongoOption func(*MongoRecorder)

// WithCollectionName sets the MongoDB collection name. Default: "cnw_license_verifications".
func WithCollectionName(name string) MongoOption {
	return func(r *MongoRecorder) {
		r.collectionName = name
	}
}

// MongoRecorder implements Recorder using MongoDB.
type MongoRecorder struct {
	collection     *mongo.Collection
	collectionName string
}

// NewMongoRecorder creates a MongoDB-backed recorder.
// It creates the necessary indexes on initialization.
func NewMongoRecorder(ctx context.Context, db *mongo.Database, opts ...MongoOption) (*MongoRecorder, error) {
	r := &MongoRecorder{
		collectionName: defaultMongoCollection,
	}
	for _, opt := range opts {
		opt(r)
	}
	if !validCollectionName.MatchString(r.collectionName) {
		return nil, fmt.Errorf("invalid collection name %q: must match [a-zA-Z_][a-zA-Z0-9_]*", r.collectionName)
	}
	r.collection = db.Collection(r.collectionName)

	if err := r.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("create indexes: %w", err)
	}
	return r, nil
}

func (r *MongoRecorder) ensureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "license_id", Value: 1},
				{Key: "checked_at", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "checked_at", Value: 1}},
		},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *MongoRecorder) Record(ctx context.Context, e Entry) (*Entry, error) {
	e = e.withDefaults(time.Now())
	if _, err := r.collection.InsertOne(ctx, e); err != nil {
		return nil, fmt.Errorf("record verification: %w", err)
	}
	return &e, nil
}

func (r *MongoRecorder) List(ctx context.Context, licenseID string) ([]Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "checked_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"license_id": licenseID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list verifications: %w", err)
	}
	var entries []Entry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode verifications: %w", err)
	}
	return entries, nil
}

func (r *MongoRecorder) CountRejected(ctx context.Context, licenseID string) (int, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"license_id": licenseID, "ok": false})
	if err != nil {
		return 0, fmt.Errorf("count rejected verifications: %w", err)
	}
	return int(count), nil
}

func (r *MongoRecorder) Prune(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	result, err := r.collection.DeleteMany(ctx, bson.M{
		"checked_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, fmt.Errorf("prune verifications: %w", err)
	}
	return int(result.DeletedCount), nil
}

func (r *MongoRecorder) Close(_ context.Context) error {
	return nil // user manages the mongo.Database lifecycle
}
