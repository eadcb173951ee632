// AngelaMos | 2026
// transactor.go

package docstore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readconcern"
	"go.mongodb.org/mongo-driver/v2/mongo/writeconcern"
)

const (
	CollectionUsers   = "users"
	CollectionOrders  = "orders"
	CollectionPlans   = "plans"
	CollectionExams   = "exams"
	CollectionLibrary = "library"
	CollectionDevices = "notification_devices"
)

// Transactor runs fn as one atomic unit. Repositories must use the ctx passed
// to fn so their operations join the transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type MongoTransactor struct {
	client *mongo.Client
}

func NewMongoTransactor(client *mongo.Client) *MongoTransactor {
	return &MongoTransactor{client: client}
}

// InTx retries the callback on TransientTransactionError and the commit on
// UnknownTransactionCommitResult, so fn must be safe to run more than once.
func (t *MongoTransactor) InTx(
	ctx context.Context,
	fn func(ctx context.Context) error,
) error {
	session, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = session.WithTransaction(
		ctx,
		func(txCtx context.Context) (any, error) {
			return nil, fn(txCtx)
		},
		txnOpts,
	)
	if err != nil {
		return fmt.Errorf("with transaction: %w", err)
	}

	return nil
}

// Direct runs fn without a transaction. Used by in-memory stores in tests.
type Direct struct{}

func (Direct) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var (
	_ Transactor = (*MongoTransactor)(nil)
	_ Transactor = Direct{}
)
