// AngelaMos | 2026
// entity.go

package user

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// User is an account in the identity store. CustomClaims is the claim
// object copied into access tokens; ClaimsVersion guards it against lost
// updates.
type User struct {
	ID            string       `db:"id"`
	Email         string       `db:"email"`
	PasswordHash  string       `db:"password_hash"`
	Name          string       `db:"name"`
	CustomClaims  CustomClaims `db:"custom_claims"`
	ClaimsVersion int64        `db:"claims_version"`
	TokenVersion  int          `db:"token_version"`
	CreatedAt     time.Time    `db:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at"`
	DeletedAt     *time.Time   `db:"deleted_at"`
}

const (
	claimAdmin      = "admin"
	claimPremium    = "premium"
	claimPremiumExp = "premiumExp"
)

type CustomClaims map[string]any

func (c CustomClaims) Admin() bool {
	v, _ := c[claimAdmin].(bool)
	return v
}

// Premium reports the premium flag and, when present, its unix expiry.
// Claims read back from JSONB carry numbers as float64.
func (c CustomClaims) Premium() (bool, *time.Time) {
	on, _ := c[claimPremium].(bool)

	var exp *time.Time
	switch v := c[claimPremiumExp].(type) {
	case float64:
		t := time.Unix(int64(v), 0).UTC()
		exp = &t
	case int64:
		t := time.Unix(v, 0).UTC()
		exp = &t
	}
	return on, exp
}

func (c CustomClaims) Value() (driver.Value, error) {
	if c == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode claims: %w", err)
	}
	return b, nil
}

func (c *CustomClaims) Scan(src any) error {
	out := CustomClaims{}
	switch v := src.(type) {
	case nil:
	case []byte:
		if err := json.Unmarshal(v, &out); err != nil {
			return fmt.Errorf("decode claims: %w", err)
		}
	case string:
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return fmt.Errorf("decode claims: %w", err)
		}
	default:
		return fmt.Errorf("decode claims: unsupported source %T", src)
	}
	*c = out
	return nil
}

func cloneClaims(c CustomClaims) map[string]any {
	out := make(map[string]any, len(c))
	maps.Copy(out, c)
	return out
}
