// AngelaMos | 2026
// repository.go

package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/denemeapp/kpss-backend/internal/core"
)

type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Order, error)
	SetProviderRef(ctx context.Context, id, providerRef string) error
	// MarkPaid moves a pending order to paid. It returns ErrInvalidState when
	// the order exists but is no longer pending.
	MarkPaid(ctx context.Context, id, providerRef string, paidAt time.Time) error
}

type mongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(coll *mongo.Collection) Repository {
	return &mongoRepository{coll: coll}
}

func (r *mongoRepository) Create(ctx context.Context, order *Order) error {
	if _, err := r.coll.InsertOne(ctx, order); err != nil {
		if core.IsMongoDuplicateKey(err) {
			return fmt.Errorf("create order: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *mongoRepository) GetByID(ctx context.Context, id string) (*Order, error) {
	var order Order
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("get order: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &order, nil
}

func (r *mongoRepository) ListByUser(
	ctx context.Context,
	userID string,
	limit int,
) ([]Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.coll.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	orders := make([]Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return orders, nil
}

func (r *mongoRepository) SetProviderRef(ctx context.Context, id, providerRef string) error {
	res, err := r.coll.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"providerRef": providerRef}},
	)
	if err != nil {
		return fmt.Errorf("set provider ref: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("set provider ref: %w", core.ErrNotFound)
	}
	return nil
}

func (r *mongoRepository) MarkPaid(
	ctx context.Context,
	id, providerRef string,
	paidAt time.Time,
) error {
	set := bson.M{
		"status": StatusPaid,
		"paidAt": paidAt,
	}
	if providerRef != "" {
		set["providerRef"] = providerRef
	}

	res, err := r.coll.UpdateOne(
		ctx,
		bson.M{"_id": id, "status": StatusPending},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}
	return fmt.Errorf("mark order paid: order not pending: %w", core.ErrInvalidState)
}
