package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration (spec.md §6).
type Config struct {
	Server       ServerConfig
	CacheBackend CacheBackendConfig
	RPCBackends  []RPCBackendConfig
}

// ServerConfig contains the HTTP listener settings.
type ServerConfig struct {
	Host string
	Port int
}

// CacheBackendType enumerates the three concrete backends (spec.md §4.2).
type CacheBackendType string

const (
	CacheBackendMemory CacheBackendType = "memory"
	CacheBackendLRU    CacheBackendType = "lru"
	CacheBackendRedis  CacheBackendType = "redis"
)

// CacheBackendConfig configures the process-wide choice of cache store.
type CacheBackendConfig struct {
	CacheType    CacheBackendType
	RedisURL     string
	LRUMaxItems  int
	ReorgTTLSecs int64
}

// RPCBackendConfig configures one proxied chain (spec.md §3, §6).
type RPCBackendConfig struct {
	ChainName             string
	PathPrefix            string
	ProviderBackendGroup  []string
	ReorgTTL              int64
	AllowedMethodPrefixes []string
	ProxyRetryTimeout     time.Duration
}

var globalConfig *Config

// envPrefix returns the binary's basename, uppercased, matching the
// original implementation's env::args().next() convention (spec.md §6).
func envPrefix() string {
	base := filepath.Base(os.Args[0])
	return strings.ToUpper(base)
}

// Load reads configuration from defaults, the specified TOML file, and
// environment variables (prefixed by the uppercased binary basename), in
// that order of increasing priority: env overrides file, file overrides
// defaults. A missing config file is not an error; defaults and env apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("conf")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.cachedrpc")
		v.AddConfigPath("/etc/cachedrpc")
	}

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("cache_backend.cache_type", string(CacheBackendMemory))
	v.SetDefault("cache_backend.redis_url", "redis://localhost:6379/0")
	v.SetDefault("cache_backend.lru_max_items", 100_000)
	v.SetDefault("cache_backend.reorg_ttl_seconds", 30)

	prefix := envPrefix()
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	_ = v.BindEnv("server.host", prefix+"_SERVER_HOST")
	_ = v.BindEnv("server.port", prefix+"_SERVER_PORT")
	_ = v.BindEnv("cache_backend.cache_type", prefix+"_CACHE_TYPE")
	_ = v.BindEnv("cache_backend.redis_url", prefix+"_REDIS_URL")
	_ = v.BindEnv("cache_backend.lru_max_items", prefix+"_LRU_MAX_ITEMS")
	_ = v.BindEnv("cache_backend.reorg_ttl_seconds", prefix+"_REORG_TTL_SECONDS")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "No config file found, using defaults and environment variables\n")
	}

	rpcBackends, err := decodeRPCBackends(v)
	if err != nil {
		return nil, fmt.Errorf("failed to decode rpc_backends: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("server.host"),
			Port: v.GetInt("server.port"),
		},
		CacheBackend: CacheBackendConfig{
			CacheType:    CacheBackendType(v.GetString("cache_backend.cache_type")),
			RedisURL:     v.GetString("cache_backend.redis_url"),
			LRUMaxItems:  v.GetInt("cache_backend.lru_max_items"),
			ReorgTTLSecs: v.GetInt64("cache_backend.reorg_ttl_seconds"),
		},
		RPCBackends: rpcBackends,
	}

	globalConfig = cfg
	return cfg, nil
}

// rawRPCBackend mirrors the TOML/env shape of one rpc_backends[] entry
// before duration parsing.
type rawRPCBackend struct {
	ChainName             string   `mapstructure:"chain_name"`
	PathPrefix            string   `mapstructure:"path_prefix"`
	ProviderBackendGroup  []string `mapstructure:"provider_backend_group"`
	ReorgTTL              int64    `mapstructure:"reorg_ttl"`
	AllowedMethodPrefixes []string `mapstructure:"allowed_method_prefixes"`
	ProxyRetryTimeout     string   `mapstructure:"proxy_retry_timeout"`
}

func decodeRPCBackends(v *viper.Viper) ([]RPCBackendConfig, error) {
	var raw []rawRPCBackend
	if err := v.UnmarshalKey("rpc_backends", &raw); err != nil {
		return nil, err
	}

	out := make([]RPCBackendConfig, 0, len(raw))
	for _, r := range raw {
		retryTimeout := 5 * time.Second
		if r.ProxyRetryTimeout != "" {
			parsed, err := time.ParseDuration(r.ProxyRetryTimeout)
			if err != nil {
				return nil, fmt.Errorf("chain %s: invalid proxy_retry_timeout %q: %w", r.ChainName, r.ProxyRetryTimeout, err)
			}
			retryTimeout = parsed
		}
		out = append(out, RPCBackendConfig{
			ChainName:             r.ChainName,
			PathPrefix:            r.PathPrefix,
			ProviderBackendGroup:  r.ProviderBackendGroup,
			ReorgTTL:              r.ReorgTTL,
			AllowedMethodPrefixes: r.AllowedMethodPrefixes,
			ProxyRetryTimeout:     retryTimeout,
		})
	}
	return out, nil
}

// Get returns the global configuration.
func Get() *Config {
	if globalConfig == nil {
		panic("config not loaded; call config.Load() first")
	}
	return globalConfig
}

// MustLoad loads configuration or panics.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}
