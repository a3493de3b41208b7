package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dwarvesf/escrow-history/internal/types/chains"
	"github.com/dwarvesf/escrow-history/internal/types/environments"
)

type AppConfig struct {
	Environment    environments.Environment
	ApiServer      ApiServerConfig
	Postgres       DBConnection
	Chains         map[chains.ID]ChainConfig
	Scanner        ScannerConfig
	CircuitBreaker CircuitBreakerConfig
	Watchlist      []WatchedEscrow
	IndexPeriod    string
	UptimeWebhooks UptimeWebhookConfig
	Vault          VaultConfig
}

type ApiServerConfig struct {
	Port           string
	AllowedOrigins string
}

type DBConnection struct {
	Host string
	Port string
	User string
	Name string
	Pass string

	SSLMode string
}

type ChainConfig struct {
	RPCEndpoint string
	// TokenAddress overrides the default stablecoin contract of the chain.
	TokenAddress      string
	RequestsPerSecond float64
	Burst             int
}

type ScannerConfig struct {
	MaxBlockRange  uint64
	ChunkTimeout   time.Duration
	DefaultDays    int
	StepDays       int
	MaxDays        int
	WalkFullWindow bool
	PreferRawRPC   bool
	RangeCacheTTL  time.Duration
	SessionTTL     time.Duration
	// SnapshotRetention is how long an unrefreshed snapshot is kept.
	SnapshotRetention time.Duration
}

type CircuitBreakerConfig struct {
	MaxRequests                 uint32
	Interval                    time.Duration
	Timeout                     time.Duration
	ConsecutiveFailureThreshold int
}

type WatchedEscrow struct {
	Chain   chains.ID
	Address string
}

type UptimeWebhookConfig struct {
	IndexWatchedEscrowsURL string
}

// VaultConfig is optional. When Addr is set, RPC endpoints and the database
// password are read from the KV secret at KVSecretPath.
type VaultConfig struct {
	Addr         string
	Role         string
	KVSecretPath string
}

func New() *AppConfig {
	env := environments.Parse(os.Getenv("APP_ENV"))

	// this will not override env variables if they already exist
	godotenv.Load(".env." + env.String())

	return &AppConfig{
		Environment: env,
		ApiServer: ApiServerConfig{
			Port:           envVarOrDefault("PORT", "8080"),
			AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
		},
		Postgres: DBConnection{
			Host:    os.Getenv("DB_HOST"),
			Port:    os.Getenv("DB_PORT"),
			User:    os.Getenv("DB_USER"),
			Name:    os.Getenv("DB_NAME"),
			Pass:    os.Getenv("DB_PASS"),
			SSLMode: os.Getenv("DB_SSL_MODE"),
		},
		Chains: loadChains(),
		Scanner: ScannerConfig{
			MaxBlockRange:     uint64(envVarAtoiOrDefault("SCANNER_MAX_BLOCK_RANGE", 900)),
			ChunkTimeout:      envVarDurationOrDefault("SCANNER_CHUNK_TIMEOUT", 20*time.Second),
			DefaultDays:       envVarAtoiOrDefault("SCANNER_DEFAULT_DAYS", 3),
			StepDays:          envVarAtoiOrDefault("SCANNER_STEP_DAYS", 3),
			MaxDays:           envVarAtoiOrDefault("SCANNER_MAX_DAYS", 90),
			WalkFullWindow:    envVarAsBool("SCANNER_WALK_FULL_WINDOW"),
			PreferRawRPC:      os.Getenv("SCANNER_PREFER_RAW_RPC") != "false",
			RangeCacheTTL:     envVarDurationOrDefault("SCANNER_RANGE_CACHE_TTL", 10*time.Minute),
			SessionTTL:        envVarDurationOrDefault("HISTORY_SESSION_TTL", 30*time.Minute),
			SnapshotRetention: envVarDurationOrDefault("SNAPSHOT_RETENTION", 30*24*time.Hour),
		},
		CircuitBreaker: CircuitBreakerConfig{
			MaxRequests:                 uint32(envVarAtoiOrDefault("CB_MAX_REQUESTS", 3)),
			Interval:                    envVarDurationOrDefault("CB_INTERVAL", 45*time.Second),
			Timeout:                     envVarDurationOrDefault("CB_TIMEOUT", 120*time.Second),
			ConsecutiveFailureThreshold: envVarAtoiOrDefault("CB_CONSECUTIVE_FAILURES", 5),
		},
		Watchlist:   parseWatchlist(os.Getenv("ESCROW_WATCHLIST")),
		IndexPeriod: envVarOrDefault("INDEX_PERIOD", "5m"),
		UptimeWebhooks: UptimeWebhookConfig{
			IndexWatchedEscrowsURL: os.Getenv("UPTIME_WEBHOOK_INDEX_WATCHED_ESCROWS"),
		},
		Vault: VaultConfig{
			Addr:         os.Getenv("VAULT_ADDR"),
			Role:         os.Getenv("VAULT_ROLE"),
			KVSecretPath: os.Getenv("VAULT_KV_SECRET_PATH"),
		},
	}
}

// loadChains reads <CHAIN>_RPC_ENDPOINT style variables, e.g.
// POLYGON_RPC_ENDPOINT. Chains without an endpoint are disabled.
func loadChains() map[chains.ID]ChainConfig {
	out := make(map[chains.ID]ChainConfig)
	for _, info := range chains.All() {
		prefix := strings.ToUpper(info.ID.String())
		endpoint := os.Getenv(prefix + "_RPC_ENDPOINT")
		if endpoint == "" {
			continue
		}
		out[info.ID] = chainConfig(prefix, endpoint)
	}
	return out
}

func chainConfig(prefix, endpoint string) ChainConfig {
	return ChainConfig{
		RPCEndpoint:       endpoint,
		TokenAddress:      os.Getenv(prefix + "_TOKEN_ADDRESS"),
		RequestsPerSecond: envVarFloatOrDefault(prefix+"_RPC_RPS", 10),
		Burst:             envVarAtoiOrDefault(prefix+"_RPC_BURST", 4),
	}
}

// SecretLookup returns the secret stored under key, or an error when it is
// missing.
type SecretLookup func(key string) (string, error)

// ApplySecrets overrides RPC endpoints and the database password with the
// values found through lookup. Missing keys leave the env value in place.
func (c *AppConfig) ApplySecrets(lookup SecretLookup) {
	if c.Chains == nil {
		c.Chains = make(map[chains.ID]ChainConfig)
	}
	for _, info := range chains.All() {
		prefix := strings.ToUpper(info.ID.String())
		endpoint, err := lookup(prefix + "_RPC_ENDPOINT")
		if err != nil || endpoint == "" {
			continue
		}
		chainCfg, ok := c.Chains[info.ID]
		if !ok {
			chainCfg = chainConfig(prefix, endpoint)
		}
		chainCfg.RPCEndpoint = endpoint
		c.Chains[info.ID] = chainCfg
	}
	if pass, err := lookup("DB_PASS"); err == nil && pass != "" {
		c.Postgres.Pass = pass
	}
}

// parseWatchlist parses "polygon:0xabc;bsc:0xdef". Malformed entries are ignored.
func parseWatchlist(raw string) []WatchedEscrow {
	var out []WatchedEscrow
	for _, entry := range strings.Split(raw, ";") {
		chainPart, address, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok || address == "" {
			continue
		}
		id, err := chains.Parse(chainPart)
		if err != nil {
			continue
		}
		out = append(out, WatchedEscrow{Chain: id, Address: strings.TrimSpace(address)})
	}
	return out
}

func envVarOrDefault(envName, fallback string) string {
	if v := os.Getenv(envName); v != "" {
		return v
	}
	return fallback
}

func envVarAtoiOrDefault(envName string, fallback int) int {
	valueStr := os.Getenv(envName)
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		panic(err)
	}

	return value
}

func envVarFloatOrDefault(envName string, fallback float64) float64 {
	valueStr := os.Getenv(envName)
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		panic(err)
	}

	return value
}

func envVarDurationOrDefault(envName string, fallback time.Duration) time.Duration {
	valueStr := os.Getenv(envName)
	if valueStr == "" {
		return fallback
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		panic(err)
	}

	return value
}

func envVarAsBool(envName string) bool {
	valueStr := os.Getenv(envName)
	return valueStr == "true"
}
