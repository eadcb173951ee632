// AngelaMos | 2026
// config.go

package config

import (
	"fmt"
	"time"
)

const EnvProduction = "production"

// Config is assembled by Load from defaults, an optional YAML file and
// the environment, in that order of precedence.
type Config struct {
	App          AppConfig          `koanf:"app"`
	Server       ServerConfig       `koanf:"server"`
	Database     DatabaseConfig     `koanf:"database"`
	Redis        RedisConfig        `koanf:"redis"`
	Mongo        MongoConfig        `koanf:"mongo"`
	JWT          JWTConfig          `koanf:"jwt"`
	RateLimit    RateLimitConfig    `koanf:"rate_limit"`
	CORS         CORSConfig         `koanf:"cors"`
	Log          LogConfig          `koanf:"log"`
	Otel         OtelConfig         `koanf:"otel"`
	Paddle       PaddleConfig       `koanf:"paddle"`
	Checkout     CheckoutConfig     `koanf:"checkout"`
	Entitlements EntitlementsConfig `koanf:"entitlements"`
	S3           S3Config           `koanf:"s3"`
	Push         PushConfig         `koanf:"push"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

type MongoConfig struct {
	URL             string        `koanf:"url"`
	Database        string        `koanf:"database"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	MaxPoolSize     uint64        `koanf:"max_pool_size"`
	MinPoolSize     uint64        `koanf:"min_pool_size"`
	MaxConnIdleTime time.Duration `koanf:"max_conn_idle_time"`
	RetryAttempts   int           `koanf:"retry_attempts"`
	RetryInterval   time.Duration `koanf:"retry_interval"`
}

type JWTConfig struct {
	PrivateKeyPath     string        `koanf:"private_key_path"`
	PublicKeyPath      string        `koanf:"public_key_path"`
	AccessTokenExpire  time.Duration `koanf:"access_token_expire"`
	RefreshTokenExpire time.Duration `koanf:"refresh_token_expire"`
	Issuer             string        `koanf:"issuer"`
	Audience           string        `koanf:"audience"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

type PaddleConfig struct {
	APIKey        string `koanf:"api_key"`
	WebhookSecret string `koanf:"webhook_secret"`
	Environment   string `koanf:"environment"`
}

type CheckoutConfig struct {
	CallbackURL string `koanf:"callback_url"`
}

type EntitlementsConfig struct {
	// RevokeOnExtend unifies the revocation policy so extensions also force
	// re-authentication. Off keeps extensions on natural token refresh.
	RevokeOnExtend bool `koanf:"revoke_on_extend"`
}

type S3Config struct {
	Bucket          string        `koanf:"bucket"`
	Region          string        `koanf:"region"`
	Endpoint        string        `koanf:"endpoint"`
	AccessKeyID     string        `koanf:"access_key_id"`
	SecretAccessKey string        `koanf:"secret_access_key"`
	ForcePathStyle  bool          `koanf:"force_path_style"`
	PresignExpiry   time.Duration `koanf:"presign_expiry"`
}

type PushConfig struct {
	Enabled         bool          `koanf:"enabled"`
	ProjectID       string        `koanf:"project_id"`
	CredentialsFile string        `koanf:"credentials_file"`
	TokenTTL        time.Duration `koanf:"token_ttl"`
	RefreshMargin   time.Duration `koanf:"refresh_margin"`
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
