package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lnando2k21/projetofinal/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, LockDriverLocal, cfg.LockDriver)
	assert.Equal(t, 5*time.Second, cfg.LockTimeout)
	assert.Equal(t, 15*time.Minute, cfg.JWTExpiry)
	assert.Equal(t, domain.StrategyOwnedServices, cfg.RatingStrategy())
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("LOCK_DRIVER", "redis")
	t.Setenv("LOCK_TIMEOUT", "250ms")
	t.Setenv("PROVIDER_RATING_STRATEGY", "authored_reviews")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("RATE_LIMIT_RPS", "0")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, LockDriverRedis, cfg.LockDriver)
	assert.Equal(t, 250*time.Millisecond, cfg.LockTimeout)
	assert.Equal(t, domain.StrategyAuthoredReviews, cfg.RatingStrategy())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Zero(t, cfg.RateLimitRPS)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"port zero", map[string]string{"HTTP_PORT": "0"}, "invalid HTTP port"},
		{"port too large", map[string]string{"HTTP_PORT": "70000"}, "invalid HTTP port"},
		{"unknown store", map[string]string{"STORE_DRIVER": "sqlite"}, "STORE_DRIVER must be"},
		{"unknown lock", map[string]string{"LOCK_DRIVER": "etcd"}, "LOCK_DRIVER must be"},
		{"zero lock ttl", map[string]string{"LOCK_TTL": "0s"}, "LOCK_TTL must be > 0"},
		{"negative lock timeout", map[string]string{"LOCK_TIMEOUT": "-1s"}, "LOCK_TIMEOUT must be > 0"},
		{"unknown strategy", map[string]string{"PROVIDER_RATING_STRATEGY": "everything"}, "PROVIDER_RATING_STRATEGY"},
		{"default secret in production", map[string]string{"ENVIRONMENT": "production"}, "JWT_SECRET must be set in production"},
		{"zero expiry", map[string]string{"JWT_EXPIRY": "0s"}, "JWT_EXPIRY must be > 0"},
		{"zero burst", map[string]string{"RATE_LIMIT_BURST": "0"}, "RATE_LIMIT_BURST"},
		{"sample rate", map[string]string{"OTEL_SAMPLE_RATE": "2.0"}, "OTEL_SAMPLE_RATE must be between 0.0 and 1.0"},
		{"bad duration", map[string]string{"LOCK_TTL": "soon"}, "load marketplace config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()

			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_ProductionWithSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "a-real-secret")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "a-real-secret", cfg.JWTSecret)
}

func TestLoad_KafkaDisabledSkipsBrokerCheck(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "false")

	cfg, err := Load()

	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{
		PostgresUser: "u",
		PostgresPass: "p",
		PostgresHost: "db",
		PostgresPort: 5433,
		PostgresDB:   "marketplace",
		PostgresSSL:  "require",
	}

	assert.Equal(t, "postgres://u:p@db:5433/marketplace?sslmode=require", cfg.PostgresDSN())
}
