package eventlog

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig holds connection settings for MongoSink.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// collection is the subset of *mongo.Collection MongoSink uses.
type collection interface {
	InsertOne(ctx context.Context, document any, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	Find(ctx context.Context, filter any, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// MongoSink stores envelopes as documents, one per event.
type MongoSink struct {
	coll   collection
	client *mongo.Client
}

// NewMongoSink wraps an existing collection.
func NewMongoSink(coll *mongo.Collection) *MongoSink {
	return &MongoSink{coll: coll}
}

// ConnectMongo connects, pings and prepares the recent-events index.
// Close releases the connection.
func ConnectMongo(ctx context.Context, cfg MongoConfig) (*MongoSink, error) {
	if strings.TrimSpace(cfg.URI) == "" {
		return nil, ErrEmptyURI
	}
	if cfg.Database == "" {
		cfg.Database = "logs"
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("eventlog: mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("eventlog: mongo ping: %w", err)
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "Data.Method", Value: 1},
			{Key: "Environment", Value: 1},
			{Key: "TimeStamp", Value: -1},
		},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("eventlog: mongo create index: %w", err)
	}
	return &MongoSink{coll: coll, client: client}, nil
}

// Write implements Sink.
func (s *MongoSink) Write(ctx context.Context, env Envelope) error {
	if _, err := s.coll.InsertOne(ctx, env); err != nil {
		return fmt.Errorf("eventlog: mongo insert %s: %w", env.ID, err)
	}
	return nil
}

// Recent implements RecentReader, newest first.
func (s *MongoSink) Recent(ctx context.Context, methodKey, environment string, n int) ([]Envelope, error) {
	if n <= 0 {
		n = DefaultRecent
	}
	filter := bson.D{
		{Key: "Data.Method", Value: methodKey},
		{Key: "Environment", Value: environment},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "TimeStamp", Value: -1}}).
		SetLimit(int64(n))

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("eventlog: mongo find %s: %w", methodKey, err)
	}
	var out []Envelope
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("eventlog: mongo decode %s: %w", methodKey, err)
	}
	return out, nil
}

// Close disconnects a sink created by ConnectMongo.
func (s *MongoSink) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

var (
	_ Sink         = (*MongoSink)(nil)
	_ RecentReader = (*MongoSink)(nil)
)
