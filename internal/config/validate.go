// AngelaMos | 2026
// validate.go

package config

import (
	"errors"
	"slices"
)

// Validate reports every problem at once rather than the first one.
func (c *Config) Validate() error {
	var errs []error
	require := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New(msg))
		}
	}

	require(c.Database.URL != "", "DATABASE_URL is required")
	require(c.Redis.URL != "", "REDIS_URL is required")
	require(c.Mongo.URL != "", "MONGODB_URL is required")
	require(c.JWT.PrivateKeyPath != "", "JWT_PRIVATE_KEY_PATH is required")
	require(c.JWT.PublicKeyPath != "", "JWT_PUBLIC_KEY_PATH is required")
	require(c.S3.Bucket != "", "S3_BUCKET is required")

	require(c.Server.ReadTimeout > 0, "server.read_timeout must be positive")
	require(c.Server.WriteTimeout > 0, "server.write_timeout must be positive")
	require(c.RateLimit.Requests > 0 && c.RateLimit.Window > 0,
		"rate_limit.requests and rate_limit.window must be positive")

	require(!c.CORS.AllowCredentials || !slices.Contains(c.CORS.AllowedOrigins, "*"),
		"CORS wildcard origin cannot be combined with credentials")

	if c.Push.Enabled {
		require(c.Push.ProjectID != "" && c.Push.CredentialsFile != "",
			"FCM_PROJECT_ID and FCM_CREDENTIALS_FILE are required when push is enabled")
		require(c.Push.RefreshMargin < c.Push.TokenTTL,
			"push.refresh_margin must be shorter than push.token_ttl")
	}

	if c.IsProduction() {
		require(!c.Otel.Enabled || !c.Otel.Insecure, "OTEL_INSECURE must be false in production")
		require(c.Paddle.APIKey != "" && c.Paddle.WebhookSecret != "",
			"PADDLE_API_KEY and PADDLE_WEBHOOK_SECRET are required in production")
		require(c.Paddle.Environment == EnvProduction, "PADDLE_ENVIRONMENT must be production in production")
	}

	return errors.Join(errs...)
}
