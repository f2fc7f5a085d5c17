package mgo

import (
	"context"
	"sync"
	"time"

	"CBProject/logger"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Config represents the MongoDB configuration.
type Config struct {
	URI         string
	Database    string
	MaxPoolSize int
	MaxRetry    int
}

func (c *Config) norm() {
	if c.MaxPoolSize <= 0 {
		c.MaxPoolSize = 100
	}
	if c.MaxRetry <= 0 {
		c.MaxRetry = 3
	}
}

var (
	mu     sync.RWMutex
	client *mongo.Client
	db     *mongo.Database
)

// Init connects with retry and keeps a process-wide database handle.
func Init(ctx context.Context, cfg *Config) error {
	if cfg == nil || cfg.URI == "" {
		return errors.New("mongo uri is required")
	}
	cfg.norm()

	opts := options.Client().ApplyURI(cfg.URI).SetMaxPoolSize(uint64(cfg.MaxPoolSize))

	var (
		cli *mongo.Client
		err error
	)
	for i := 0; i < cfg.MaxRetry; i++ {
		cli, err = connect(ctx, opts)
		if err == nil {
			break
		}
		logger.Warnf("mongo connect attempt %d: %v", i+1, err)
		time.Sleep(time.Second / 2)
	}
	if err != nil {
		return errors.WithMessagef(err, "failed to connect to MongoDB %q", cfg.URI)
	}

	mu.Lock()
	client = cli
	db = cli.Database(cfg.Database)
	mu.Unlock()
	return nil
}

func connect(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	cli, err := mongo.Connect(cctx, opts)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(cctx, nil); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, err
	}
	return cli, nil
}

// GetDB panics when Init has not succeeded; storage code assumes a live handle.
func GetDB() *mongo.Database {
	mu.RLock()
	defer mu.RUnlock()
	if db == nil {
		panic("mongo not initialized")
	}
	return db
}

func Close(ctx context.Context) {
	mu.Lock()
	defer mu.Unlock()
	if client != nil {
		_ = client.Disconnect(ctx)
		client = nil
		db = nil
	}
}

// EnsureIndexes creates the indexes the hot paths rely on. Safe to run at
// every startup; mongo treats existing identical indexes as a no-op.
func EnsureIndexes(ctx context.Context) error {
	d := GetDB()

	_, err := d.Collection("message").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "chat", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		return errors.WithMessage(err, "message index")
	}

	_, err = d.Collection("notification").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return errors.WithMessage(err, "notification index")
	}

	_, err = d.Collection("chat").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "members", Value: 1}},
	})
	return errors.WithMessage(err, "chat index")
}
