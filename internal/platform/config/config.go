package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration for the UMID credential service.
// Everything comes from the environment so main stays lean.
type Config struct {
	Addr string

	// DatabaseURL selects the PostgreSQL-backed stores when set; otherwise
	// the service runs on in-memory stores (dev and test profile).
	DatabaseURL string

	Redis RedisConfig

	// KafkaBrokers enables the ledger security-event publisher when non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	// MasterKey is the 32-byte key the secret keeper encrypts credential
	// seeds with, base64-encoded in the environment.
	MasterKey []byte

	// JWTSigningKey validates staff session tokens on admin routes.
	JWTSigningKey string

	// GrantTTL is the fixed lifetime of issued access grants. Not
	// configurable per request.
	GrantTTL time.Duration

	// SingleActiveIdentity enforces at most one active credential per
	// patient at issuance time.
	SingleActiveIdentity bool
}

// RedisConfig mirrors the connection knobs the grant store needs.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:        getenv("UMID_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getenvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getenvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getenvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getenvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getenvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		KafkaTopic:           getenv("UMID_KAFKA_TOPIC", "umid.access-events"),
		JWTSigningKey:        getenv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		GrantTTL:             getenvDuration("UMID_GRANT_TTL", 30*time.Minute),
		SingleActiveIdentity: os.Getenv("UMID_SINGLE_ACTIVE_IDENTITY") == "true",
	}

	if brokers := os.Getenv("UMID_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	keyB64 := os.Getenv("UMID_MASTER_KEY")
	if keyB64 == "" {
		return Config{}, fmt.Errorf("UMID_MASTER_KEY is required")
	}
	key, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		return Config{}, fmt.Errorf("decode UMID_MASTER_KEY: %w", err)
	}
	cfg.MasterKey = key

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
