// AngelaMos | 2026
// repository.go

package notification

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/denemeapp/kpss-backend/internal/core"
)

type Repository interface {
	Upsert(ctx context.Context, device *Device) error
	Delete(ctx context.Context, userID, token string) error
	// Tokens returns the tokens of userIDs, or of every device when userIDs
	// is empty.
	Tokens(ctx context.Context, userIDs []string) ([]string, error)
	DeleteTokens(ctx context.Context, tokens []string) (int, error)
}

type mongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(coll *mongo.Collection) Repository {
	return &mongoRepository{coll: coll}
}

func (r *mongoRepository) Upsert(ctx context.Context, device *Device) error {
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"_id": device.Token},
		bson.M{
			"$set": bson.M{
				"userId":    device.UserID,
				"platform":  device.Platform,
				"updatedAt": device.UpdatedAt,
			},
			"$setOnInsert": bson.M{"createdAt": device.CreatedAt},
		},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert device: %w", err)
	}
	return nil
}

func (r *mongoRepository) Delete(ctx context.Context, userID, token string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": token, "userId": userID})
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete device: %w", core.ErrNotFound)
	}
	return nil
}

func (r *mongoRepository) Tokens(ctx context.Context, userIDs []string) ([]string, error) {
	filter := bson.M{}
	if len(userIDs) > 0 {
		filter["userId"] = bson.M{"$in": userIDs}
	}

	cursor, err := r.coll.Find(
		ctx,
		filter,
		options.Find().SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("find device tokens: %w", err)
	}

	var docs []struct {
		Token string `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode device tokens: %w", err)
	}

	tokens := make([]string, 0, len(docs))
	for _, d := range docs {
		tokens = append(tokens, d.Token)
	}
	return tokens, nil
}

func (r *mongoRepository) DeleteTokens(ctx context.Context, tokens []string) (int, error) {
	if len(tokens) == 0 {
		return 0, nil
	}

	res, err := r.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": tokens}})
	if err != nil {
		return 0, fmt.Errorf("prune device tokens: %w", err)
	}
	return int(res.DeletedCount), nil
}
