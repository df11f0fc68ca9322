package config

import (
	"os"
	"strings"
	"time"

	pstrings "github.com/CliftonVon/ConfidentialDigitalPassport/pkg/platform/strings"
)

// Server captures process-level configuration. FromEnv keeps main lean; all
// knobs default to values that work for local development.
type Server struct {
	Addr               string
	AuthorityPrincipal string
	JWTSigningKey      string
	PostgresDSN        string
	Redis              RedisConfig
	KafkaBrokers       []string
	KafkaAuditTopic    string
	RecordCacheTTL     time.Duration
}

// RedisConfig holds connection settings for the optional metadata cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:               envOr("PASSPORT_ADDR", ":8080"),
		AuthorityPrincipal: envOr("PASSPORT_AUTHORITY", "did:passport:authority"),
		JWTSigningKey:      envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		PostgresDSN:        os.Getenv("PASSPORT_POSTGRES_DSN"),
		Redis: RedisConfig{
			URL:          os.Getenv("PASSPORT_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		KafkaAuditTopic: envOr("PASSPORT_AUDIT_TOPIC", "passport.audit"),
		RecordCacheTTL:  5 * time.Minute,
	}
	if brokers := os.Getenv("PASSPORT_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = pstrings.DedupeAndTrim(strings.Split(brokers, ","))
	}
	if ttl := os.Getenv("PASSPORT_RECORD_CACHE_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			cfg.RecordCacheTTL = d
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
