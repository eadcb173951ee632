// AngelaMos | 2026
// repository.go

package catalog

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
	Create(ctx context.Context, plan *Plan) error
	GetByID(ctx context.Context, id string) (*Plan, error)
	List(ctx context.Context, activeOnly bool) ([]Plan, error)
	Update(ctx context.Context, plan *Plan) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

type mongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(coll *mongo.Collection) Repository {
	return &mongoRepository{coll: coll}
}

func (r *mongoRepository) Create(ctx context.Context, plan *Plan) error {
	if _, err := r.coll.InsertOne(ctx, plan); err != nil {
		if core.IsMongoDuplicateKey(err) {
			return fmt.Errorf("create plan: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create plan: %w", err)
	}
	return nil
}

func (r *mongoRepository) GetByID(ctx context.Context, id string) (*Plan, error) {
	var plan Plan
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&plan)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("get plan: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	return &plan, nil
}

func (r *mongoRepository) List(ctx context.Context, activeOnly bool) ([]Plan, error) {
	filter := bson.M{}
	if activeOnly {
		filter["active"] = true
	}

	cursor, err := r.coll.Find(
		ctx,
		filter,
		options.Find().SetSort(bson.D{{Key: "price", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}

	plans := make([]Plan, 0)
	if err := cursor.All(ctx, &plans); err != nil {
		return nil, fmt.Errorf("decode plans: %w", err)
	}
	return plans, nil
}

func (r *mongoRepository) Update(ctx context.Context, plan *Plan) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": plan.ID}, bson.M{"$set": bson.M{
		"name":            plan.Name,
		"description":     plan.Description,
		"price":           plan.Price,
		"currency":        plan.Currency,
		"periodMonths":    plan.PeriodMonths,
		"key":             plan.Key,
		"providerPriceId": plan.ProviderPriceID,
		"updatedAt":       plan.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update plan: %w", core.ErrNotFound)
	}
	return nil
}

func (r *mongoRepository) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"active":    active,
		"updatedAt": time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("set plan active: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("set plan active: %w", core.ErrNotFound)
	}
	return nil
}

func (r *mongoRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete plan: %w", core.ErrNotFound)
	}
	return nil
}
