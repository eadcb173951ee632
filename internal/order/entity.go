// AngelaMos | 2026
// entity.go

package order

import (
	"time"

	"github.com/denemeapp/kpss-backend/internal/entitlement"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

// Order snapshots the plan at purchase time. Status only moves pending to paid.
type Order struct {
	ID           string                  `bson:"_id"                   json:"id"`
	UserID       string                  `bson:"userId"                json:"user_id"`
	PlanID       string                  `bson:"planId"                json:"plan_id"`
	PlanKey      entitlement.PackageType `bson:"planKey"               json:"plan_key"`
	Amount       int64                   `bson:"amount"                json:"amount"`
	Currency     string                  `bson:"currency"              json:"currency"`
	PeriodMonths int                     `bson:"periodMonths"          json:"period_months"`
	Provider     string                  `bson:"provider"              json:"provider"`
	Status       Status                  `bson:"status"                json:"status"`
	CreatedAt    time.Time               `bson:"createdAt"             json:"created_at"`
	PaidAt       *time.Time              `bson:"paidAt,omitempty"      json:"paid_at,omitempty"`
	ProviderRef  string                  `bson:"providerRef,omitempty" json:"provider_ref,omitempty"`
}

func (o *Order) IsPaid() bool {
	return o.Status == StatusPaid
}
