// AngelaMos | 2026
// repository.go

package exam

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/denemeapp/kpss-backend/internal/core"
)

type ListParams struct {
	ActiveOnly  bool
	Subject     string
	PackageType string
}

type Repository interface {
	Create(ctx context.Context, exam *Exam) error
	GetByID(ctx context.Context, id string) (*Exam, error)
	List(ctx context.Context, params ListParams) ([]Exam, error)
	Replace(ctx context.Context, exam *Exam) error
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) (int, error)
}

type mongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(coll *mongo.Collection) Repository {
	return &mongoRepository{coll: coll}
}

func (r *mongoRepository) Create(ctx context.Context, exam *Exam) error {
	if _, err := r.coll.InsertOne(ctx, exam); err != nil {
		if core.IsMongoDuplicateKey(err) {
			return fmt.Errorf("create exam: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create exam: %w", err)
	}
	return nil
}

func (r *mongoRepository) GetByID(ctx context.Context, id string) (*Exam, error) {
	var exam Exam
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&exam)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("get exam: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return &exam, nil
}

func (r *mongoRepository) List(ctx context.Context, params ListParams) ([]Exam, error) {
	filter := bson.M{}
	if params.ActiveOnly {
		filter["active"] = true
	}
	if params.Subject != "" {
		filter["subject"] = params.Subject
	}
	if params.PackageType != "" {
		filter["packageType"] = params.PackageType
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if params.ActiveOnly {
		opts.SetProjection(bson.M{"questions.answer": 0, "questions.explanation": 0})
	}

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}

	exams := make([]Exam, 0)
	if err := cursor.All(ctx, &exams); err != nil {
		return nil, fmt.Errorf("decode exams: %w", err)
	}
	return exams, nil
}

func (r *mongoRepository) Replace(ctx context.Context, exam *Exam) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": exam.ID}, exam)
	if err != nil {
		return fmt.Errorf("replace exam: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("replace exam: %w", core.ErrNotFound)
	}
	return nil
}

func (r *mongoRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete exam: %w", core.ErrNotFound)
	}
	return nil
}

func (r *mongoRepository) DeleteMany(ctx context.Context, ids []string) (int, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, fmt.Errorf("delete exams: %w", err)
	}
	return int(res.DeletedCount), nil
}
