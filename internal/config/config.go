package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/annotation-relay/internal/domain"
	"github.com/bnema/annotation-relay/internal/logging"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = ".annotation-relay"
	envPrefix  = "RELAY"

	KeyServerListen       = "server.listen"
	KeyPollDefaultTimeout = "poll.default_timeout"
	KeyPollMaxTimeout     = "poll.max_timeout"
	KeyReaperInterval     = "reaper.interval"
	KeyReaperStaleAfter   = "reaper.stale_after"
	KeyRoutingStrategy    = "routing.strategy"
	KeyStorageBackend     = "storage.backend"
	KeyStorageDir         = "storage.dir"
	KeyLogLevel           = "log.level"
	KeyLogFormat          = "log.format"
	KeyClientServerURL    = "client.server_url"
	KeyCORSExtensionID    = "cors.extension_id"
)

const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

type Config struct {
	Server  ServerConfig
	Poll    PollConfig
	Reaper  ReaperConfig
	Routing RoutingConfig
	Storage StorageConfig
	Log     LogConfig
	Client  ClientConfig
	CORS    CORSConfig
}

type ServerConfig struct {
	Listen string
}

type PollConfig struct {
	DefaultTimeout time.Duration
	MaxTimeout     time.Duration
}

type ReaperConfig struct {
	Interval   time.Duration
	StaleAfter time.Duration
}

type RoutingConfig struct {
	Strategy domain.RoutingStrategy
}

type StorageConfig struct {
	Backend string
	Dir     string
}

type LogConfig struct {
	Level  string
	Format string
}

type ClientConfig struct {
	ServerURL string
}

type CORSConfig struct {
	ExtensionID string
}

// Load reads ~/.annotation-relay/config.toml when present, then RELAY_*
// environment overrides (RELAY_SERVER_LISTEN, RELAY_POLL_MAX_TIMEOUT, ...).
// The returned viper instance carries the merged settings for adapters that
// read their own keys.
func Load(v *viper.Viper) (Config, *viper.Viper, error) {
	if v == nil {
		v = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Config{}, nil, fmt.Errorf("resolve home directory: %w", err)
	}
	baseDir := filepath.Join(homeDir, configDir)

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(baseDir)
	setDefaults(v, baseDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return Config{}, nil, fmt.Errorf("read config file: %w", err)
		}
	}

	strategy, err := domain.ParseRoutingStrategy(v.GetString(KeyRoutingStrategy))
	if err != nil {
		return Config{}, nil, err
	}

	cfg := Config{
		Server: ServerConfig{Listen: v.GetString(KeyServerListen)},
		Poll: PollConfig{
			DefaultTimeout: v.GetDuration(KeyPollDefaultTimeout),
			MaxTimeout:     v.GetDuration(KeyPollMaxTimeout),
		},
		Reaper: ReaperConfig{
			Interval:   v.GetDuration(KeyReaperInterval),
			StaleAfter: v.GetDuration(KeyReaperStaleAfter),
		},
		Routing: RoutingConfig{Strategy: strategy},
		Storage: StorageConfig{
			Backend: strings.ToLower(v.GetString(KeyStorageBackend)),
			Dir:     expandHome(v.GetString(KeyStorageDir), homeDir),
		},
		Log: LogConfig{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
		},
		Client: ClientConfig{ServerURL: strings.TrimRight(v.GetString(KeyClientServerURL), "/")},
		CORS:   CORSConfig{ExtensionID: v.GetString(KeyCORSExtensionID)},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, nil, err
	}

	return cfg, v, nil
}

func setDefaults(v *viper.Viper, baseDir string) {
	v.SetDefault(KeyServerListen, "127.0.0.1:3180")
	v.SetDefault(KeyPollDefaultTimeout, "30s")
	v.SetDefault(KeyPollMaxTimeout, "120s")
	v.SetDefault(KeyReaperInterval, "1h")
	v.SetDefault(KeyReaperStaleAfter, "24h")
	v.SetDefault(KeyRoutingStrategy, string(domain.RoutingFirstMatch))
	v.SetDefault(KeyStorageBackend, BackendFile)
	v.SetDefault(KeyStorageDir, baseDir)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, logging.FormatConsole)
	v.SetDefault(KeyClientServerURL, "http://127.0.0.1:3180")
	v.SetDefault(KeyCORSExtensionID, "")
}

func (c Config) Validate() error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, errors.New("server.listen is required"))
	}
	if c.Poll.DefaultTimeout <= 0 {
		errs = append(errs, errors.New("poll.default_timeout must be positive"))
	}
	if c.Poll.MaxTimeout < c.Poll.DefaultTimeout {
		errs = append(errs, errors.New("poll.max_timeout must be at least poll.default_timeout"))
	}
	if c.Reaper.Interval <= 0 {
		errs = append(errs, errors.New("reaper.interval must be positive"))
	}
	if c.Reaper.StaleAfter <= 0 {
		errs = append(errs, errors.New("reaper.stale_after must be positive"))
	}
	switch c.Storage.Backend {
	case BackendMemory, BackendFile, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("unsupported storage.backend %q", c.Storage.Backend))
	}
	if c.Storage.Backend != BackendMemory && c.Storage.Dir == "" {
		errs = append(errs, errors.New("storage.dir is required"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("unsupported log.format %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}

	return nil
}

func (c Config) SessionsPath() string {
	return filepath.Join(c.Storage.Dir, "sessions.toml")
}

func (c Config) ArchivePath() string {
	return filepath.Join(c.Storage.Dir, "annotations.jsonl")
}

func (c Config) DatabasePath() string {
	return filepath.Join(c.Storage.Dir, "relay.db")
}

func expandHome(path, homeDir string) string {
	if path == "~" {
		return homeDir
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}
