// Package config loads gateway configuration from environment variables,
// optionally seeded from a .env file, via small getEnv/getEnvAsInt/
// getEnvAsBool helpers that apply a default when a key is unset.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the full set of gateway settings.
type Config struct {
	Transport   TransportConfig
	WorkerPool  WorkerPoolConfig
	AccessLog   AccessLogConfig
	Stats       StatsConfig
}

// TransportConfig controls how the gateway binds its listening socket.
type TransportConfig struct {
	// Addr is the host:port (Tcp) or filesystem path (UnixDomain) to bind
	// when SocketActivation is false.
	Addr string
	// Unix selects a Unix domain socket instead of TCP for a manual bind.
	Unix bool
	// SocketActivation, when true, ignores Addr/Unix and instead expects
	// a listening socket inherited via LISTEN_FDS/LISTEN_PID.
	SocketActivation bool
	// UnixFallbackPath is consulted only when an activated socket turns
	// out to be a Unix domain socket, since its bound path cannot always
	// be recovered from the inherited descriptor alone.
	UnixFallbackPath string
	AcceptBacklog    int
	MaxHeaders       int
	ReadBudgetBytes  int
}

// WorkerPoolConfig sizes the dispatcher and picks its strategy.
type WorkerPoolConfig struct {
	WorkerCount int
	Blocking    bool
}

// AccessLogConfig controls the async access-log shipping sink.
type AccessLogConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// StatsConfig controls the cross-worker readiness-snapshot publisher.
type StatsConfig struct {
	Enabled bool
	Addr    string
}

// Load reads configuration from the environment, loading a .env file
// first if one is present in the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Transport: TransportConfig{
			Addr:             getEnv("EMBERD_ADDR", "127.0.0.1:8080"),
			Unix:             getEnvAsBool("EMBERD_UNIX", false),
			SocketActivation: getEnvAsBool("EMBERD_SOCKET_ACTIVATION", false),
			UnixFallbackPath: getEnv("EMBERD_UNIX_FALLBACK_PATH", "/run/emberd.sock"),
			AcceptBacklog:    getEnvAsInt("EMBERD_ACCEPT_BACKLOG", 1024),
			MaxHeaders:       getEnvAsInt("EMBERD_MAX_HEADERS", 24),
			ReadBudgetBytes:  getEnvAsInt("EMBERD_READ_BUDGET_BYTES", 65536),
		},
		WorkerPool: WorkerPoolConfig{
			WorkerCount: getEnvAsInt("EMBERD_WORKER_COUNT", 0), // 0 = auto (NumCPU)
			Blocking:    getEnvAsBool("EMBERD_BLOCKING_WORKERS", false),
		},
		AccessLog: AccessLogConfig{
			Enabled: getEnvAsBool("EMBERD_ACCESS_LOG_ENABLED", false),
			Brokers: splitNonEmpty(getEnv("EMBERD_ACCESS_LOG_BROKERS", "localhost:9092")),
			Topic:   getEnv("EMBERD_ACCESS_LOG_TOPIC", "emberd.access"),
		},
		Stats: StatsConfig{
			Enabled: getEnvAsBool("EMBERD_STATS_ENABLED", false),
			Addr:    getEnv("EMBERD_STATS_REDIS_ADDR", "localhost:6379"),
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue
	}
	return v
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
