package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the configuration.
const (
	DefaultHTTPPort      = 3000
	DefaultRelayPort     = 8765
	DefaultTokenEnv      = "OBS_REMOTE_TOKEN"
	DefaultNATSURLEnv    = "OBS_REMOTE_NATS_URL"
	DefaultNATSSubject   = "obsrelay.events"
	DefaultLogDir        = "./logs"
	DefaultLogQueue      = 1024
	DefaultMaxFrameBytes = 1 << 20
	DefaultRelayFrame    = 2000
	DefaultRoleMaxLen    = 32
	DefaultSendBuffer    = 256
	DefaultPruneInterval = 60 * time.Second
	DefaultIdleThreshold = 30 * time.Minute
	DefaultLogLevel      = "info"

	// PlaceholderToken is the sample token from the README; running with it
	// is as good as running open.
	PlaceholderToken = "changeme"
)

// Environment variables read by Load.
const (
	EnvPort      = "PORT"
	EnvRelayPort = "HANDS_RELAY_PORT"
	EnvLogDir    = "LOG_DIR"
)

// Config is the whole configuration file.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Relay  RelayConfig  `yaml:"relay"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig holds the multi-role hub settings.
type ServerConfig struct {
	// HTTPPort serves WebSocket, /health, /trigger and /metrics.
	HTTPPort int `yaml:"http_port"`

	// GRPCPort serves the Ingest service. 0 disables it.
	GRPCPort int `yaml:"grpc_port"`

	Auth AuthConfig     `yaml:"auth"`
	Hub  HubConfig      `yaml:"hub"`
	Log  EventLogConfig `yaml:"log"`
	NATS NATSConfig     `yaml:"nats"`
}

// AuthConfig names where the shared token comes from.
type AuthConfig struct {
	// TokenEnv is the environment variable holding the expected token.
	TokenEnv string `yaml:"token_env"`
}

// Token returns the expected token resolved from the environment.
func (a AuthConfig) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// HubConfig tunes the broadcast hub.
type HubConfig struct {
	IncludeSender bool          `yaml:"include_sender"`
	MaxFrameBytes int           `yaml:"max_frame_bytes"`
	RoleMaxLen    int           `yaml:"role_max_len"`
	SendBuffer    int           `yaml:"send_buffer"`
	PruneInterval time.Duration `yaml:"prune_interval"`
	IdleThreshold time.Duration `yaml:"idle_threshold"`
}

// EventLogConfig controls the daily JSONL event log.
type EventLogConfig struct {
	Dir   string `yaml:"dir"`
	Queue int    `yaml:"queue"`
}

// NATSConfig controls the optional NATS mirror of the event log.
type NATSConfig struct {
	// URLEnv is the environment variable holding the NATS URL. The mirror is
	// off when it resolves to "".
	URLEnv  string `yaml:"url_env"`
	Subject string `yaml:"subject"`
}

// URL returns the NATS URL resolved from the environment.
func (n NATSConfig) URL() string {
	if n.URLEnv == "" {
		return ""
	}
	return os.Getenv(n.URLEnv)
}

// RelayConfig holds the pass-through relay settings.
type RelayConfig struct {
	Port          int `yaml:"port"`
	MaxFrameBytes int `yaml:"max_frame_bytes"`
}

// LogConfig controls process logging.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`
}

// SlogLevel maps Level to a slog.Level. Unknown values map to info; validate
// rejects them before this is reached.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load builds the configuration. An empty path skips the file and uses
// defaults plus the environment.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			Auth:     AuthConfig{TokenEnv: DefaultTokenEnv},
			Hub: HubConfig{
				IncludeSender: true,
				MaxFrameBytes: DefaultMaxFrameBytes,
				RoleMaxLen:    DefaultRoleMaxLen,
				SendBuffer:    DefaultSendBuffer,
				PruneInterval: DefaultPruneInterval,
				IdleThreshold: DefaultIdleThreshold,
			},
			Log:  EventLogConfig{Dir: DefaultLogDir, Queue: DefaultLogQueue},
			NATS: NATSConfig{URLEnv: DefaultNATSURLEnv, Subject: DefaultNATSSubject},
		},
		Relay: RelayConfig{
			Port:          DefaultRelayPort,
			MaxFrameBytes: DefaultRelayFrame,
		},
		Log: LogConfig{Level: DefaultLogLevel},
	}
}

// applyEnv overlays the process environment onto cfg.
func applyEnv(cfg *Config) error {
	if err := envInt(EnvPort, &cfg.Server.HTTPPort); err != nil {
		return err
	}
	if err := envInt(EnvRelayPort, &cfg.Relay.Port); err != nil {
		return err
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogDir)); v != "" {
		cfg.Server.Log.Dir = v
	}
	return nil
}

func envInt(name string, dst *int) error {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s=%q is not a number", name, v)
	}
	*dst = n
	return nil
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	if cfg.Server.GRPCPort < 0 || cfg.Server.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port %d is out of range [0, 65535]", cfg.Server.GRPCPort)
	}
	if cfg.Server.GRPCPort != 0 && cfg.Server.GRPCPort == cfg.Server.HTTPPort {
		return fmt.Errorf("server.grpc_port must differ from server.http_port")
	}
	if cfg.Relay.Port <= 0 || cfg.Relay.Port > 65535 {
		return fmt.Errorf("relay.port %d is out of range [1, 65535]", cfg.Relay.Port)
	}

	h := cfg.Server.Hub
	if h.MaxFrameBytes <= 0 {
		return fmt.Errorf("server.hub.max_frame_bytes must be positive")
	}
	if h.RoleMaxLen <= 0 {
		return fmt.Errorf("server.hub.role_max_len must be positive")
	}
	if h.SendBuffer <= 0 {
		return fmt.Errorf("server.hub.send_buffer must be positive")
	}
	if h.PruneInterval <= 0 {
		return fmt.Errorf("server.hub.prune_interval must be positive")
	}
	if h.IdleThreshold <= 0 {
		return fmt.Errorf("server.hub.idle_threshold must be positive")
	}
	if cfg.Relay.MaxFrameBytes <= 0 {
		return fmt.Errorf("relay.max_frame_bytes must be positive")
	}

	if cfg.Server.Log.Dir == "" {
		return fmt.Errorf("server.log.dir must not be empty")
	}
	if cfg.Server.Log.Queue <= 0 {
		return fmt.Errorf("server.log.queue must be positive")
	}
	if cfg.Server.NATS.URL() != "" && cfg.Server.NATS.Subject == "" {
		return fmt.Errorf("server.nats.subject is required when the NATS URL is set")
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q unknown: want debug|info|warn|error", cfg.Log.Level)
	}
	return nil
}
