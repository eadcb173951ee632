// AngelaMos | 2026
// stats.go

package admin

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/denemeapp/kpss-backend/internal/docstore"
	"github.com/denemeapp/kpss-backend/internal/order"
)

type SystemStatsResponse struct {
	Backends map[string]BackendStatus `json:"backends"`
	Runtime  RuntimeStats             `json:"runtime"`
}

type BackendStatus struct {
	Healthy bool `json:"healthy"`
	Stats   any  `json:"stats,omitempty"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	HeapAlloc    uint64 `json:"heap_alloc_bytes"`
	Sys          uint64 `json:"sys_bytes"`
	NumGC        uint32 `json:"num_gc"`
}

type SQLPoolStats struct {
	Open         int    `json:"open"`
	InUse        int    `json:"in_use"`
	Idle         int    `json:"idle"`
	MaxOpen      int    `json:"max_open"`
	WaitCount    int64  `json:"wait_count"`
	WaitDuration string `json:"wait_duration"`
}

// Postgres reports the identity database's connection pool.
func Postgres(ping func(context.Context) error, stats func() sql.DBStats) Backend {
	return Backend{
		Name: "postgres",
		Ping: ping,
		Stats: func(context.Context) (any, error) {
			s := stats()
			return SQLPoolStats{
				Open:         s.OpenConnections,
				InUse:        s.InUse,
				Idle:         s.Idle,
				MaxOpen:      s.MaxOpenConnections,
				WaitCount:    s.WaitCount,
				WaitDuration: s.WaitDuration.String(),
			}, nil
		},
	}
}

type RedisPoolStats struct {
	Hits     uint32 `json:"hits"`
	Misses   uint32 `json:"misses"`
	Timeouts uint32 `json:"timeouts"`
	Total    uint32 `json:"total_conns"`
	Idle     uint32 `json:"idle_conns"`
	Stale    uint32 `json:"stale_conns"`
}

// Redis reports the pool shared by rate limiting and the token blacklist.
func Redis(ping func(context.Context) error, stats func() *redis.PoolStats) Backend {
	return Backend{
		Name: "redis",
		Ping: ping,
		Stats: func(context.Context) (any, error) {
			s := stats()
			return RedisPoolStats{
				Hits:     s.Hits,
				Misses:   s.Misses,
				Timeouts: s.Timeouts,
				Total:    s.TotalConns,
				Idle:     s.IdleConns,
				Stale:    s.StaleConns,
			}, nil
		},
	}
}

// MongoStats holds estimated document counts per collection plus the
// number of orders still waiting on a provider webhook.
type MongoStats struct {
	Collections   map[string]int64 `json:"collections"`
	PendingOrders int64            `json:"pending_orders"`
}

var countedCollections = []string{
	docstore.CollectionUsers,
	docstore.CollectionOrders,
	docstore.CollectionPlans,
	docstore.CollectionExams,
	docstore.CollectionLibrary,
	docstore.CollectionDevices,
}

func Mongo(ping func(context.Context) error, db *mongo.Database) Backend {
	return Backend{
		Name: "mongo",
		Ping: ping,
		Stats: func(ctx context.Context) (any, error) {
			return mongoStats(ctx, db)
		},
	}
}

func mongoStats(ctx context.Context, db *mongo.Database) (*MongoStats, error) {
	stats := &MongoStats{Collections: make(map[string]int64, len(countedCollections))}

	for _, name := range countedCollections {
		n, err := db.Collection(name).EstimatedDocumentCount(ctx)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		stats.Collections[name] = n
	}

	pending, err := db.Collection(docstore.CollectionOrders).
		CountDocuments(ctx, bson.M{"status": order.StatusPending})
	if err != nil {
		return nil, fmt.Errorf("count pending orders: %w", err)
	}
	stats.PendingOrders = pending
	return stats, nil
}
