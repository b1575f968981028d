package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	id "kitties/pkg/domain"
)

// Backend names accepted by the storage, ledger and event settings.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendKafka    = "kafka"
)

// Registry defaults.
const (
	DefaultMaxInventory  = 64
	DefaultReserveAmount = uint64(1000)
	DefaultMaxKittyID    = uint32(math.MaxUint32)
)

// DefaultTxTimeout bounds a single registry transaction when the caller sets no deadline.
var DefaultTxTimeout = 5 * time.Second

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	AdminToken    string
	LogLevel      string
	LogFormat     string

	StorageBackend string
	LedgerBackend  string
	EventSink      string
	DatabaseURL    string

	Redis    RedisConfig
	Kafka    KafkaConfig
	Registry  RegistryConfig
	RateLimit RateLimitConfig
	Genesis   []GenesisBalance
}

// RedisConfig holds connection settings for the redis ledger.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds settings for the kafka event sink.
type KafkaConfig struct {
	Brokers           []string
	Topic             string
	Partitions        int32
	ReplicationFactor int16
}

// RegistryConfig holds the registry constants.
type RegistryConfig struct {
	MaxInventory  int
	ReserveAmount uint64
	MaxKittyID    uint32
	TxTimeout     time.Duration
}

// RateLimitConfig holds per-account budgets for registry mutations. A zero
// budget leaves that operation unlimited.
type RateLimitConfig struct {
	Enabled  bool
	Backend  string
	Window   time.Duration
	Mint     int
	Breed    int
	Transfer int
}

// GenesisBalance is a free balance credited to an account at startup.
type GenesisBalance struct {
	Account id.AccountID
	Amount  uint64
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:           envOr("KITTIES_ADDR", ":8080"),
		JWTSigningKey:  envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:      envOr("JWT_ISSUER", "kitties"),
		JWTAudience:    envOr("JWT_AUDIENCE", "kitties-api"),
		AdminToken:     os.Getenv("ADMIN_API_TOKEN"),
		LogLevel:       envOr("LOG_LEVEL", "info"),
		LogFormat:      envOr("LOG_FORMAT", "json"),
		StorageBackend: envOr("KITTIES_STORAGE", BackendMemory),
		LedgerBackend:  envOr("KITTIES_LEDGER", BackendMemory),
		EventSink:      envOr("KITTIES_EVENTS", BackendMemory),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Kafka: KafkaConfig{
			Topic: envOr("KAFKA_TOPIC", "kitties.events"),
		},
	}

	var err error
	if cfg.Redis.PoolSize, err = envInt("REDIS_POOL_SIZE", 10); err != nil {
		return Server{}, err
	}
	if cfg.Redis.MinIdleConns, err = envInt("REDIS_MIN_IDLE_CONNS", 2); err != nil {
		return Server{}, err
	}
	if cfg.Redis.DialTimeout, err = envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Redis.ReadTimeout, err = envDuration("REDIS_READ_TIMEOUT", 3*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Redis.WriteTimeout, err = envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second); err != nil {
		return Server{}, err
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for b := range strings.SplitSeq(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.Kafka.Brokers = append(cfg.Kafka.Brokers, b)
			}
		}
	}
	partitions, err := envInt("KAFKA_PARTITIONS", 1)
	if err != nil {
		return Server{}, err
	}
	cfg.Kafka.Partitions = int32(partitions)
	replication, err := envInt("KAFKA_REPLICATION_FACTOR", 1)
	if err != nil {
		return Server{}, err
	}
	cfg.Kafka.ReplicationFactor = int16(replication)

	if cfg.Registry, err = registryFromEnv(); err != nil {
		return Server{}, err
	}
	if cfg.RateLimit, err = rateLimitFromEnv(); err != nil {
		return Server{}, err
	}
	if cfg.Genesis, err = ParseGenesisBalances(os.Getenv("KITTIES_GENESIS_BALANCES")); err != nil {
		return Server{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func registryFromEnv() (RegistryConfig, error) {
	reg := RegistryConfig{
		MaxInventory:  DefaultMaxInventory,
		ReserveAmount: DefaultReserveAmount,
		MaxKittyID:    DefaultMaxKittyID,
		TxTimeout:     DefaultTxTimeout,
	}
	var err error
	if reg.MaxInventory, err = envInt("KITTIES_MAX_INVENTORY", DefaultMaxInventory); err != nil {
		return RegistryConfig{}, err
	}
	if v := os.Getenv("KITTIES_RESERVE_AMOUNT"); v != "" {
		if reg.ReserveAmount, err = strconv.ParseUint(v, 10, 64); err != nil {
			return RegistryConfig{}, fmt.Errorf("KITTIES_RESERVE_AMOUNT: %w", err)
		}
	}
	if v := os.Getenv("KITTIES_MAX_KITTY_ID"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return RegistryConfig{}, fmt.Errorf("KITTIES_MAX_KITTY_ID: %w", err)
		}
		reg.MaxKittyID = uint32(parsed)
	}
	if reg.TxTimeout, err = envDuration("KITTIES_TX_TIMEOUT", DefaultTxTimeout); err != nil {
		return RegistryConfig{}, err
	}
	return reg, nil
}

func rateLimitFromEnv() (RateLimitConfig, error) {
	rl := RateLimitConfig{
		Enabled: os.Getenv("KITTIES_RATE_LIMIT_DISABLED") != "true",
		Backend: envOr("KITTIES_RATE_LIMIT_BACKEND", BackendMemory),
	}
	var err error
	if rl.Window, err = envDuration("KITTIES_RATE_LIMIT_WINDOW", time.Minute); err != nil {
		return RateLimitConfig{}, err
	}
	if rl.Mint, err = envInt("KITTIES_RATE_LIMIT_MINT", 30); err != nil {
		return RateLimitConfig{}, err
	}
	if rl.Breed, err = envInt("KITTIES_RATE_LIMIT_BREED", 30); err != nil {
		return RateLimitConfig{}, err
	}
	if rl.Transfer, err = envInt("KITTIES_RATE_LIMIT_TRANSFER", 60); err != nil {
		return RateLimitConfig{}, err
	}
	return rl, nil
}

// NeedsRedis reports whether any component is backed by redis.
func (c Server) NeedsRedis() bool {
	return c.LedgerBackend == BackendRedis || (c.RateLimit.Enabled && c.RateLimit.Backend == BackendRedis)
}

// Validate rejects combinations the server cannot start with.
func (c Server) Validate() error {
	switch c.StorageBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for %s storage", c.StorageBackend)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}

	switch c.LedgerBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.StorageBackend != BackendPostgres {
			return fmt.Errorf("postgres ledger requires postgres storage")
		}
	case BackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required for redis ledger")
		}
	default:
		return fmt.Errorf("unknown ledger backend %q", c.LedgerBackend)
	}

	switch c.EventSink {
	case BackendMemory:
	case BackendKafka:
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required for kafka events")
		}
	default:
		return fmt.Errorf("unknown event sink %q", c.EventSink)
	}

	if c.RateLimit.Enabled {
		switch c.RateLimit.Backend {
		case BackendMemory:
		case BackendRedis:
			if c.Redis.URL == "" {
				return fmt.Errorf("REDIS_URL is required for redis rate limiting")
			}
		default:
			return fmt.Errorf("unknown rate limit backend %q", c.RateLimit.Backend)
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
		if c.RateLimit.Mint < 0 || c.RateLimit.Breed < 0 || c.RateLimit.Transfer < 0 {
			return fmt.Errorf("rate limit budgets must not be negative")
		}
	}

	if c.Registry.MaxInventory <= 0 {
		return fmt.Errorf("max inventory must be positive")
	}
	if c.Registry.ReserveAmount == 0 {
		return fmt.Errorf("reserve amount must be positive")
	}
	return nil
}

// ParseGenesisBalances parses "account=amount" pairs separated by commas.
func ParseGenesisBalances(raw string) ([]GenesisBalance, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var out []GenesisBalance
	for pair := range strings.SplitSeq(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		account, amount, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("genesis balance %q: expected account=amount", pair)
		}
		accountID, err := id.ParseAccountID(strings.TrimSpace(account))
		if err != nil {
			return nil, fmt.Errorf("genesis balance %q: %w", pair, err)
		}
		value, err := strconv.ParseUint(strings.TrimSpace(amount), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("genesis balance %q: %w", pair, err)
		}
		out = append(out, GenesisBalance{Account: accountID, Amount: value})
	}
	return out, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
