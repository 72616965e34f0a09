// Package ledger records a history of build runs for later inspection. It
// is pure instrumentation: nothing in the build ever reads from it to make
// an invalidation decision, so it can fail or be absent without changing
// a single tag byte on disk.
package ledger

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rusty-tags/rtags/pkg/rterrors"
)

// BuildRecord describes one completed run.
type BuildRecord struct {
	RunID       string    `bson:"run_id"`
	StartedAt   time.Time `bson:"started_at"`
	FinishedAt  time.Time `bson:"finished_at"`
	RootName    string    `bson:"root_name"`
	TagKind     string    `bson:"tag_kind"`
	SourceCount int       `bson:"source_count"`
	RebuiltCount int      `bson:"rebuilt_count"`
	FailedCount int       `bson:"failed_count"`
	Error       string    `bson:"error,omitempty"`
}

// Ledger persists BuildRecords.
type Ledger interface {
	Record(ctx context.Context, rec BuildRecord) error
	Close(ctx context.Context) error
}

// NullLedger discards every record; it's the default when no history URI
// is configured.
type NullLedger struct{}

// Record is a no-op.
func (NullLedger) Record(context.Context, BuildRecord) error { return nil }

// Close is a no-op.
func (NullLedger) Close(context.Context) error { return nil }

// MongoLedger writes BuildRecords into a single collection.
type MongoLedger struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoLedger connects to uri and targets database/collection
// "rusty_tags"/"builds".
func NewMongoLedger(ctx context.Context, uri string) (*MongoLedger, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, rterrors.Wrap(rterrors.ConfigInvalid, err, "connect to mongo history store")
	}
	coll := client.Database("rusty_tags").Collection("builds")
	return &MongoLedger{client: client, collection: coll}, nil
}

// Record inserts one build record. Best-effort: callers should log and
// continue on error.
func (l *MongoLedger) Record(ctx context.Context, rec BuildRecord) error {
	if _, err := l.collection.InsertOne(ctx, rec); err != nil {
		return rterrors.Wrap(rterrors.IoFailed, err, "record build history")
	}
	return nil
}

// Close disconnects from Mongo.
func (l *MongoLedger) Close(ctx context.Context) error {
	return l.client.Disconnect(ctx)
}
