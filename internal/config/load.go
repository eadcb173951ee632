// AngelaMos | 2026
// load.go

package config

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds the configuration. configPath may be empty.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	for section, values := range defaults {
		for key, value := range values {
			if err := k.Set(section+"."+key, value); err != nil {
				return nil, fmt.Errorf("default %s.%s: %w", section, key, err)
			}
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

var defaults = map[string]map[string]any{
	"app": {
		"name":        "Deneme API",
		"version":     "1.0.0",
		"environment": "development",
	},
	"server": {
		"host":             "0.0.0.0",
		"port":             8080,
		"read_timeout":     "30s",
		"write_timeout":    "30s",
		"idle_timeout":     "120s",
		"shutdown_timeout": "15s",
	},
	"database": {
		"max_open_conns":     25,
		"max_idle_conns":     5,
		"conn_max_lifetime":  "1h",
		"conn_max_idle_time": "30m",
		"auto_migrate":       true,
	},
	"redis": {
		"pool_size":      10,
		"min_idle_conns": 5,
	},
	"mongo": {
		"database":           "deneme",
		"connect_timeout":    "10s",
		"max_pool_size":      100,
		"min_pool_size":      1,
		"max_conn_idle_time": "300s",
		"retry_attempts":     3,
		"retry_interval":     "5s",
	},
	"jwt": {
		"access_token_expire":  "15m",
		"refresh_token_expire": "168h",
		"issuer":               "deneme-api",
		"audience":             "deneme-app",
		"private_key_path":     "keys/private.pem",
		"public_key_path":      "keys/public.pem",
	},
	"rate_limit": {
		"requests": 100,
		"window":   "1m",
		"burst":    20,
	},
	"cors": {
		"allowed_origins":   []string{"http://localhost:3000"},
		"allowed_methods":   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		"allowed_headers":   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		"allow_credentials": true,
		"max_age":           300,
	},
	"log": {
		"level":  "info",
		"format": "json",
	},
	"otel": {
		"enabled":      false,
		"insecure":     true,
		"sample_rate":  0.1,
		"service_name": "deneme-api",
	},
	"paddle": {
		"environment": "sandbox",
	},
	"checkout": {
		"callback_url": "http://localhost:3000/odeme/sonuc",
	},
	"entitlements": {
		"revoke_on_extend": false,
	},
	"s3": {
		"region":         "eu-central-1",
		"presign_expiry": "15m",
	},
	"push": {
		"enabled":        false,
		"token_ttl":      "55m",
		"refresh_margin": "5m",
	},
}

// envKeys maps the deployment's environment variables onto config keys.
// Anything not listed is ignored.
var envKeys = map[string]string{
	"ENVIRONMENT": "app.environment",
	"HOST":        "server.host",
	"PORT":        "server.port",
	"LOG_LEVEL":   "log.level",
	"LOG_FORMAT":  "log.format",

	"DATABASE_URL":          "database.url",
	"DATABASE_AUTO_MIGRATE": "database.auto_migrate",
	"REDIS_URL":             "redis.url",
	"MONGODB_URL":           "mongo.url",
	"MONGODB_DATABASE":      "mongo.database",

	"JWT_PRIVATE_KEY_PATH":     "jwt.private_key_path",
	"JWT_PUBLIC_KEY_PATH":      "jwt.public_key_path",
	"JWT_ACCESS_TOKEN_EXPIRE":  "jwt.access_token_expire",
	"JWT_REFRESH_TOKEN_EXPIRE": "jwt.refresh_token_expire",
	"JWT_ISSUER":               "jwt.issuer",
	"JWT_AUDIENCE":             "jwt.audience",

	"RATE_LIMIT_REQUESTS": "rate_limit.requests",
	"RATE_LIMIT_WINDOW":   "rate_limit.window",
	"RATE_LIMIT_BURST":    "rate_limit.burst",

	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",

	"PADDLE_API_KEY":        "paddle.api_key",
	"PADDLE_WEBHOOK_SECRET": "paddle.webhook_secret",
	"PADDLE_ENVIRONMENT":    "paddle.environment",
	"CHECKOUT_CALLBACK_URL": "checkout.callback_url",
	"REVOKE_ON_EXTEND":      "entitlements.revoke_on_extend",

	"S3_BUCKET":            "s3.bucket",
	"S3_REGION":            "s3.region",
	"S3_ENDPOINT":          "s3.endpoint",
	"S3_ACCESS_KEY_ID":     "s3.access_key_id",
	"S3_SECRET_ACCESS_KEY": "s3.secret_access_key",
	"S3_FORCE_PATH_STYLE":  "s3.force_path_style",

	"PUSH_ENABLED":         "push.enabled",
	"FCM_PROJECT_ID":       "push.project_id",
	"FCM_CREDENTIALS_FILE": "push.credentials_file",
}

func envKey(name string) string {
	return envKeys[name]
}
