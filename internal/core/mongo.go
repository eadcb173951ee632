// AngelaMos | 2026
// mongo.go

package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/denemeapp/kpss-backend/internal/config"
)

var ErrMongoConnect = errors.New("failed to connect to mongo")

type Mongo struct {
	Client *mongo.Client
	DB     *mongo.Database
}

func NewMongo(ctx context.Context, cfg config.MongoConfig) (*Mongo, error) {
	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := range attempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("connect to mongo: %w", ctx.Err())
			case <-time.After(cfg.RetryInterval):
			}
		}

		client, err := mongo.Connect(
			options.Client().
				ApplyURI(cfg.URL).
				SetConnectTimeout(cfg.ConnectTimeout).
				SetMaxPoolSize(cfg.MaxPoolSize).
				SetMinPoolSize(cfg.MinPoolSize).
				SetMaxConnIdleTime(cfg.MaxConnIdleTime).
				SetRetryWrites(true).
				SetRetryReads(true),
		)
		if err != nil {
			lastErr = err
			continue
		}

		err = pingWithTimeout(ctx, "mongo", func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		})
		if err != nil {
			_ = client.Disconnect(ctx) //nolint:errcheck // cleanup on failed ping
			lastErr = err
			continue
		}

		return &Mongo{
			Client: client,
			DB:     client.Database(cfg.Database),
		}, nil
	}

	return nil, errors.Join(ErrMongoConnect, lastErr)
}

func (m *Mongo) Close(ctx context.Context) error {
	if m.Client != nil {
		return m.Client.Disconnect(ctx)
	}
	return nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	return pingWithTimeout(ctx, "mongo", func(ctx context.Context) error {
		return m.Client.Ping(ctx, readpref.Primary())
	})
}

func (m *Mongo) Collection(name string) *mongo.Collection {
	return m.DB.Collection(name)
}

// IsMongoDuplicateKey reports whether err is a unique index violation.
func IsMongoDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
