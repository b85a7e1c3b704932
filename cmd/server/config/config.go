package config

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Catalog backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// CatalogConfig selects the catalog storage backend and its inputs.
type CatalogConfig struct {
	Backend        string
	DatabaseURL    string
	ProductsFile   string
	CategoriesFile string
	RedisPrefix    string
	Seed           bool
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	URL                string
	DialTimeout        *time.Duration
	ReadTimeout        *time.Duration
	WriteTimeout       *time.Duration
	PoolSize           *int
	MinIdleConns       *int
	MaxRetries         *int
	HealthcheckTimeout time.Duration
	EnableOTel         bool
	TLSConfig          *tls.Config
}

// HTTPConfig holds the API server address and ingress rate limiting.
type HTTPConfig struct {
	Addr              string
	RateLimitInterval time.Duration
	RateLimitBurst    int
}

// ObservabilityConfig holds the HTTP address for the metrics endpoint.
type ObservabilityConfig struct {
	Addr string
}

// BreakerConfig holds the circuit breaker tuning shared by all backends.
type BreakerConfig struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
}

// RetryConfig holds the retry tuning for store access.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// LoadCatalog reads the catalog backend selection from env. The default
// backend is memory with the seed menu loaded.
func LoadCatalog() (CatalogConfig, error) {
	cfg := CatalogConfig{
		Backend:        strings.TrimSpace(os.Getenv("CATALOG_BACKEND")),
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		ProductsFile:   strings.TrimSpace(os.Getenv("CATALOG_PRODUCTS_FILE")),
		CategoriesFile: strings.TrimSpace(os.Getenv("CATALOG_CATEGORIES_FILE")),
		RedisPrefix:    strings.TrimSpace(os.Getenv("CATALOG_REDIS_PREFIX")),
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendMemory
	}
	seed, err := optionalBoolDefault("CATALOG_SEED", true)
	if err != nil {
		return cfg, err
	}
	cfg.Seed = seed

	switch cfg.Backend {
	case BackendMemory:
	case BackendFile:
		if cfg.ProductsFile == "" {
			return cfg, errors.New("CATALOG_PRODUCTS_FILE is required for the file backend")
		}
		if cfg.CategoriesFile == "" {
			return cfg, errors.New("CATALOG_CATEGORIES_FILE is required for the file backend")
		}
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return cfg, errors.New("DATABASE_URL is required for the postgres backend")
		}
	case BackendRedis:
	default:
		return cfg, fmt.Errorf("CATALOG_BACKEND: unknown backend %q", cfg.Backend)
	}
	return cfg, nil
}

// LoadRedis reads Redis config from env.
func LoadRedis() (RedisConfig, error) {
	cfg := RedisConfig{}

	url, err := requiredString("REDIS_URL")
	if err != nil {
		return cfg, err
	}
	cfg.URL = url

	if cfg.DialTimeout, err = optionalDuration("REDIS_DIAL_TIMEOUT"); err != nil {
		return cfg, err
	}
	if cfg.ReadTimeout, err = optionalDuration("REDIS_READ_TIMEOUT"); err != nil {
		return cfg, err
	}
	if cfg.WriteTimeout, err = optionalDuration("REDIS_WRITE_TIMEOUT"); err != nil {
		return cfg, err
	}
	if cfg.PoolSize, err = optionalInt("REDIS_POOL_SIZE"); err != nil {
		return cfg, err
	}
	if cfg.MinIdleConns, err = optionalInt("REDIS_MIN_IDLE_CONNS"); err != nil {
		return cfg, err
	}
	if cfg.MaxRetries, err = optionalInt("REDIS_MAX_RETRIES"); err != nil {
		return cfg, err
	}

	if cfg.HealthcheckTimeout, err = requiredDuration("REDIS_HEALTHCHECK_TIMEOUT"); err != nil {
		return cfg, err
	}

	if cfg.EnableOTel, err = optionalBool("REDIS_OTEL"); err != nil {
		return cfg, err
	}

	if cfg.TLSConfig, err = loadRedisTLSFromEnv(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// LoadHTTP reads the API server settings from env. Rate limiting is off
// unless both knobs are set.
func LoadHTTP() (HTTPConfig, error) {
	cfg := HTTPConfig{
		Addr: strings.TrimSpace(os.Getenv("HTTP_ADDR")),
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}

	interval, err := optionalDuration("HTTP_RATE_LIMIT_INTERVAL")
	if err != nil {
		return cfg, err
	}
	burst, err := optionalInt("HTTP_RATE_LIMIT_BURST")
	if err != nil {
		return cfg, err
	}
	if (interval == nil) != (burst == nil) {
		return cfg, errors.New("HTTP_RATE_LIMIT_INTERVAL and HTTP_RATE_LIMIT_BURST must be set together")
	}
	if interval != nil {
		cfg.RateLimitInterval = *interval
		cfg.RateLimitBurst = *burst
	}
	return cfg, nil
}

// LoadObservability reads the metrics HTTP server address from env.
func LoadObservability() (ObservabilityConfig, error) {
	addr, err := requiredString("OBS_ADDR")
	if err != nil {
		return ObservabilityConfig{}, err
	}
	return ObservabilityConfig{Addr: addr}, nil
}

// LoadBreaker reads circuit breaker tuning from env, with defaults of three
// failures and a thirty second cooldown.
func LoadBreaker() (BreakerConfig, error) {
	cfg := BreakerConfig{
		FailureThreshold: 3,
		RecoveryTimeout:  30 * time.Second,
	}
	threshold, err := optionalInt("BREAKER_FAILURE_THRESHOLD")
	if err != nil {
		return cfg, err
	}
	if threshold != nil {
		if *threshold < 1 {
			return cfg, errors.New("BREAKER_FAILURE_THRESHOLD must be >= 1")
		}
		cfg.FailureThreshold = *threshold
	}
	timeout, err := optionalDuration("BREAKER_RECOVERY_TIMEOUT")
	if err != nil {
		return cfg, err
	}
	if timeout != nil {
		cfg.RecoveryTimeout = *timeout
	}
	return cfg, nil
}

// LoadRetry reads store retry tuning from env. The default is a single
// attempt, no retries.
func LoadRetry() (RetryConfig, error) {
	cfg := RetryConfig{MaxAttempts: 1}

	attempts, err := optionalInt("STORE_RETRY_MAX_ATTEMPTS")
	if err != nil {
		return cfg, err
	}
	if attempts != nil && *attempts > 0 {
		cfg.MaxAttempts = *attempts
	}
	base, err := optionalDuration("STORE_RETRY_BASE_DELAY")
	if err != nil {
		return cfg, err
	}
	if base != nil {
		cfg.BaseDelay = *base
	}
	max, err := optionalDuration("STORE_RETRY_MAX_DELAY")
	if err != nil {
		return cfg, err
	}
	if max != nil {
		cfg.MaxDelay = *max
	}
	return cfg, nil
}

func loadRedisTLSFromEnv() (*tls.Config, error) {
	caFile := strings.TrimSpace(os.Getenv("REDIS_TLS_CA_FILE"))
	certFile := strings.TrimSpace(os.Getenv("REDIS_TLS_CERT_FILE"))
	keyFile := strings.TrimSpace(os.Getenv("REDIS_TLS_KEY_FILE"))
	serverName := strings.TrimSpace(os.Getenv("REDIS_TLS_SERVER_NAME"))
	insecureStr := strings.TrimSpace(os.Getenv("REDIS_TLS_INSECURE_SKIP_VERIFY"))

	if caFile == "" && certFile == "" && keyFile == "" && serverName == "" && insecureStr == "" {
		return nil, nil
	}
	if (certFile == "") != (keyFile == "") {
		return nil, errors.New("REDIS_TLS_CERT_FILE and REDIS_TLS_KEY_FILE must be set together")
	}

	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
		ServerName: serverName,
	}

	if insecureStr != "" {
		insecure, err := strconv.ParseBool(insecureStr)
		if err != nil {
			return nil, fmt.Errorf("REDIS_TLS_INSECURE_SKIP_VERIFY: %w", err)
		}
		tlsConfig.InsecureSkipVerify = insecure
	}

	if caFile != "" {
		pemData, err := os.ReadFile(caFile)
		if err != nil {
			return nil, fmt.Errorf("read REDIS_TLS_CA_FILE: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pemData) {
			return nil, errors.New("REDIS_TLS_CA_FILE contains no valid certificates")
		}
		tlsConfig.RootCAs = pool
	}

	if certFile != "" {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, fmt.Errorf("load redis TLS keypair: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

func optionalDuration(name string) (*time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return nil, nil
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if val < 0 {
		return nil, fmt.Errorf("%s must be >= 0", name)
	}
	return &val, nil
}

func optionalInt(name string) (*int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return nil, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if val < 0 {
		return nil, fmt.Errorf("%s must be >= 0", name)
	}
	return &val, nil
}

func optionalBool(name string) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, nil
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", name, err)
	}
	return val, nil
}

func optionalBoolDefault(name string, def bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def, nil
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", name, err)
	}
	return val, nil
}

func requiredString(name string) (string, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return raw, nil
}

func requiredDuration(name string) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("%s must be >= 0", name)
	}
	return val, nil
}
