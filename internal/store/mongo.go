package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Mongo wraps a connected client and the application database.
type Mongo struct {
	client  *mongo.Client
	db      *mongo.Database
	logger  *log.Logger
	timeout time.Duration
}

// NewMongo connects to uri, pings the primary and selects dbName.
func NewMongo(ctx context.Context, uri, dbName string, timeout time.Duration, logger *log.Logger) (*Mongo, error) {
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("store: connecting to mongodb (database=%s)", dbName)

	connCtx, cancel := withOptionalTimeout(ctx, timeout)
	defer cancel()

	clientOpts := options.Client().ApplyURI(uri)
	if timeout > 0 {
		clientOpts.SetConnectTimeout(timeout).SetServerSelectionTimeout(timeout)
	}
	client, err := mongo.Connect(connCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(connCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	logger.Println("store: mongodb connection established")
	return &Mongo{
		client:  client,
		db:      client.Database(dbName),
		logger:  logger,
		timeout: timeout,
	}, nil
}

// Collection returns a handle on the named collection.
func (m *Mongo) Collection(name string) *mongo.Collection {
	return m.db.Collection(name)
}

// Database exposes the selected database.
func (m *Mongo) Database() *mongo.Database {
	return m.db
}

// HealthCheck pings the primary.
func (m *Mongo) HealthCheck(ctx context.Context) error {
	if m == nil || m.client == nil {
		return fmt.Errorf("mongo store not initialized")
	}
	checkCtx, cancel := withOptionalTimeout(ctx, m.timeout)
	defer cancel()
	return m.client.Ping(checkCtx, readpref.Primary())
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	if m == nil || m.client == nil {
		return nil
	}
	m.logger.Println("store: closing mongodb client")
	return m.client.Disconnect(ctx)
}
