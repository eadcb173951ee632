// AngelaMos | 2026
// entity.go

package notification

import (
	"time"
)

const BatchSize = 500

type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
	PlatformWeb     Platform = "web"
)

// Device is keyed by its push token. Registering a token another user held
// moves it to the caller.
type Device struct {
	Token     string    `bson:"_id"       json:"token"`
	UserID    string    `bson:"userId"    json:"user_id"`
	Platform  Platform  `bson:"platform"  json:"platform"`
	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updated_at"`
}

type Message struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// BatchResult reports one Sender call. Unregistered lists tokens the
// transport says are no longer valid.
type BatchResult struct {
	Sent         int
	Failed       int
	Unregistered []string
}

type Report struct {
	Targeted int `json:"targeted"`
	Sent     int `json:"sent"`
	Failed   int `json:"failed"`
	Pruned   int `json:"pruned"`
	Batches  int `json:"batches"`
}
