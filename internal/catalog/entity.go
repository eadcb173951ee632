// AngelaMos | 2026
// entity.go

package catalog

import (
	"time"

	"github.com/denemeapp/kpss-backend/internal/entitlement"
)

// Plan is a purchasable offer. Key names the package a paid order grants.
type Plan struct {
	ID              string                  `bson:"_id"             json:"id"`
	Name            string                  `bson:"name"            json:"name"`
	Description     string                  `bson:"description"     json:"description,omitempty"`
	Price           int64                   `bson:"price"           json:"price"`
	Currency        string                  `bson:"currency"        json:"currency"`
	PeriodMonths    int                     `bson:"periodMonths"    json:"period_months"`
	Key             entitlement.PackageType `bson:"key"             json:"key"`
	ProviderPriceID string                  `bson:"providerPriceId" json:"provider_price_id,omitempty"`
	Active          bool                    `bson:"active"          json:"active"`
	CreatedAt       time.Time               `bson:"createdAt"       json:"created_at"`
	UpdatedAt       time.Time               `bson:"updatedAt"       json:"updated_at"`
}
