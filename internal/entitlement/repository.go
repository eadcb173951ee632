// AngelaMos | 2026
// repository.go

package entitlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Store persists entitlement records. Writes touch only the package and
// premium paths so other fields on the user document survive.
type Store interface {
	Get(ctx context.Context, userID string) (*Record, error)
	Grant(
		ctx context.Context,
		userID string,
		p PackageType,
		expiresAt time.Time,
	) error
	Revoke(ctx context.Context, userID string, p PackageType) error
}

type mongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(coll *mongo.Collection) Store {
	return &mongoStore{coll: coll}
}

func (s *mongoStore) Get(ctx context.Context, userID string) (*Record, error) {
	var record Record
	err := s.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return NewRecord(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entitlement record: %w", err)
	}

	record.ensureMaps()
	return &record, nil
}

func (s *mongoStore) Grant(
	ctx context.Context,
	userID string,
	p PackageType,
	expiresAt time.Time,
) error {
	set := bson.M{
		"ownedPackages." + string(p):      true,
		"packageExpiryDates." + string(p): expiresAt,
		"updatedAt":                       time.Now().UTC(),
	}
	if p.IsFullBundle() {
		set["isPremium"] = true
		set["premiumExpiryDate"] = expiresAt
	}

	return s.upsert(ctx, userID, set, "grant package")
}

func (s *mongoStore) Revoke(
	ctx context.Context,
	userID string,
	p PackageType,
) error {
	set := bson.M{
		"ownedPackages." + string(p): false,
		"updatedAt":                  time.Now().UTC(),
	}
	if p.IsFullBundle() {
		set["isPremium"] = false
	}

	// no upsert: records are created by the first grant
	if _, err := s.coll.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": set}); err != nil {
		return fmt.Errorf("revoke package: %w", err)
	}
	return nil
}

func (s *mongoStore) upsert(
	ctx context.Context,
	userID string,
	set bson.M,
	op string,
) error {
	_, err := s.coll.UpdateOne(
		ctx,
		bson.M{"_id": userID},
		bson.M{"$set": set},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
