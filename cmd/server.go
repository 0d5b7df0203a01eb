package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"stormlightlabs.org/cachedrpc/internal/cache"
	"stormlightlabs.org/cachedrpc/internal/chainregistry"
	"stormlightlabs.org/cachedrpc/internal/config"
	"stormlightlabs.org/cachedrpc/internal/echo"
	"stormlightlabs.org/cachedrpc/internal/metrics"
	"stormlightlabs.org/cachedrpc/internal/middleware"
	"stormlightlabs.org/cachedrpc/internal/pipeline"
	"stormlightlabs.org/cachedrpc/internal/provider"
	"stormlightlabs.org/cachedrpc/internal/rpchandler"
)

// ServerCmd creates the server command group.
func ServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Server operations",
		Long:  "Start and inspect the cachedrpc proxy server.",
	}

	cmd.AddCommand(ServerStartCmd())
	cmd.AddCommand(ServerHealthCmd())
	cmd.AddCommand(ServerConfigCmd())
	return cmd
}

// ServerStartCmd creates the start command.
func ServerStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the proxy server",
		Long:  "Start the cachedrpc HTTP proxy, discovering chain ids from every configured upstream before accepting traffic.",
		RunE:  startServer,
	}
}

// ServerHealthCmd creates the health command.
func ServerHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Long:  "Perform a health check against a running cachedrpc instance.",
		RunE:  checkHealth,
	}
}

// ServerConfigCmd creates the config command.
func ServerConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		Long:  "Load configuration from file, environment and defaults, and print the resolved result.",
		RunE:  printConfig,
	}
}

func newCacheBackend(cfg *config.Config, chainID string) (cache.Backend, error) {
	switch cfg.CacheBackend.CacheType {
	case config.CacheBackendLRU:
		return cache.NewLRUBackend(cfg.CacheBackend.LRUMaxItems, cfg.CacheBackend.ReorgTTLSecs)
	case config.CacheBackendRedis:
		return cache.NewRedisBackend(cache.RedisBackendConfig{
			URL:      cfg.CacheBackend.RedisURL,
			ChainID:  chainID,
			ReorgTTL: cfg.CacheBackend.ReorgTTLSecs,
		})
	default:
		return cache.NewMemoryBackend(cfg.CacheBackend.ReorgTTLSecs), nil
	}
}

func startServer(cmd *cobra.Command, args []string) error {
	echo.Header("Starting Server")
	echo.Info("Loading configuration...")

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("error: failed to load config: %w", err)
	}

	if len(cfg.RPCBackends) == 0 {
		return fmt.Errorf("error: no rpc_backends configured")
	}

	logger := log.NewWithOptions(cmd.OutOrStdout(), log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Prefix:          "⛓",
	})

	metricsPrefix := "cachedrpc_"
	m := metrics.New(metricsPrefix)

	httpClient := &http.Client{Timeout: 30 * time.Second}
	ctx := cmd.Context()

	chains := make([]*chainregistry.Chain, 0, len(cfg.RPCBackends))
	for _, rpcCfg := range cfg.RPCBackends {
		echo.Infof("Discovering chain id for %s...", rpcCfg.ChainName)

		chainID, err := chainregistry.DiscoverChainID(ctx, httpClient, rpcCfg.ProviderBackendGroup, rpcCfg.ProxyRetryTimeout)
		if err != nil {
			return fmt.Errorf("error: chain %s: %w", rpcCfg.ChainName, err)
		}
		echo.Successf("✓ %s resolved to chain id %s", rpcCfg.ChainName, chainID)

		backend, err := newCacheBackend(cfg, chainID)
		if err != nil {
			return fmt.Errorf("error: chain %s: failed to construct cache backend: %w", rpcCfg.ChainName, err)
		}

		providers := provider.NewGroup(rpcCfg.ProviderBackendGroup, rpcCfg.ProxyRetryTimeout)
		providers.SetChainID(chainID)

		chains = append(chains, &chainregistry.Chain{
			Name:                  rpcCfg.ChainName,
			PathPrefix:            rpcCfg.PathPrefix,
			Providers:             providers,
			Backend:               backend,
			AllowedMethodPrefixes: rpcCfg.AllowedMethodPrefixes,
			Handlers:              rpchandler.NewTable(),
			RetryTimeout:          rpcCfg.ProxyRetryTimeout,
		})
	}

	registry := chainregistry.NewRegistry(chains)
	defer registry.Close()

	echo.Success("✓ Chain registry built")

	p := &pipeline.Pipeline{
		Registry: registry,
		Metrics:  m,
		Logger:   logger,
		Client:   httpClient,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /{chain}", p.ServeHTTP)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", m.Handler())

	var handler http.Handler = mux
	handler = middleware.Recover(m)(handler)
	handler = middleware.TraceMiddleware(handler)
	handler = middleware.Logger(logger)(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	echo.Success(fmt.Sprintf("✓ Server starting on %s", addr))
	for _, c := range chains {
		echo.Infof("  %s -> %s (chain id %s)", c.PathPrefix, c.Providers.URLs(), c.Providers.ChainID())
	}
	echo.Info("Press Ctrl+C to stop")
	echo.Info("")
	return http.ListenAndServe(addr, handler)
}

func checkHealth(cmd *cobra.Command, args []string) error {
	echo.Header("Health Check")

	serverURL := "http://localhost:8080/health"
	echo.Infof("Checking: %s", serverURL)
	echo.Info("")

	resp, err := http.Get(serverURL)
	if err != nil {
		return fmt.Errorf("error: server is not running or unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		echo.Successf("✓ Server is healthy (Status: %s)", resp.Status)
		return nil
	}

	return fmt.Errorf("error: server returned status: %s", resp.Status)
}

func printConfig(cmd *cobra.Command, args []string) error {
	echo.Header("Resolved Configuration")

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("error: failed to load config: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("error: failed to encode config: %w", err)
	}

	_, _ = io.Copy(cmd.OutOrStdout(), &buf)
	return nil
}
