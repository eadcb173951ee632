// AngelaMos | 2026
// entity.go

package library

import (
	"time"

	"github.com/denemeapp/kpss-backend/internal/entitlement"
)

type Document struct {
	ID          string                  `bson:"_id"         json:"id"`
	Title       string                  `bson:"title"       json:"title"`
	Subject     string                  `bson:"subject"     json:"subject"`
	PackageType entitlement.PackageType `bson:"packageType" json:"package_type"`
	ObjectKey   string                  `bson:"objectKey"   json:"-"`
	SizeBytes   int64                   `bson:"sizeBytes"   json:"size_bytes"`
	CreatedAt   time.Time               `bson:"createdAt"   json:"created_at"`
}

type Download struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type UploadInput struct {
	Title       string `validate:"required,max=200"`
	Subject     string `validate:"required,max=100"`
	PackageType string `validate:"required,packagetype"`
}
