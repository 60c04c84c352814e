package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
	ErrConfigInvalid         = errors.New("config validation failed")
)

// RepositoryVersion is the repository version tag for config file references.
const RepositoryVersion = "v0.1.0"

// CurrentVersion is the current version of the config file.
const CurrentVersion = 1

// Storage backend names.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config represents the entire application configuration.
type Config struct {
	// Version of the config file.
	Version int     `koanf:"version"`
	Debug   Debug   `koanf:"debug"`
	Roblox  Roblox  `koanf:"roblox"`
	Server  Server  `koanf:"server"`
	Storage Storage `koanf:"storage"`
	Redis   Redis   `koanf:"redis"`
	Tracker Tracker `koanf:"tracker"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`
	// Directory that holds the log sessions.
	LogDir string `koanf:"log_dir" validate:"required"`
	// Maximum log sessions to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep" validate:"gte=1"`
	// Maximum lines per log file.
	MaxLogLines int `koanf:"max_log_lines" validate:"gte=100"`
}

// Roblox contains the upstream account configuration.
type Roblox struct {
	// Value of the .ROBLOSECURITY cookie.
	Cookie string `koanf:"cookie" validate:"required"`
	// Logged-in user id. Resolved from the cookie when zero.
	UserID int64 `koanf:"user_id" validate:"gte=0"`
	// Request timeout in milliseconds.
	RequestTimeout int `koanf:"request_timeout" validate:"gte=1000"`
	// Sustained requests per second sent upstream.
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gt=0"`
	// Requests allowed in a single burst.
	Burst int `koanf:"burst" validate:"gte=1"`
	// Requests let through while the breaker is half-open.
	BreakerMaxRequests uint32 `koanf:"breaker_max_requests" validate:"gte=1"`
	// Breaker counter reset interval in milliseconds.
	BreakerInterval int `koanf:"breaker_interval" validate:"gte=0"`
	// Time the breaker stays open in milliseconds.
	BreakerTimeout int `koanf:"breaker_timeout" validate:"gte=1000"`
}

// Server contains HTTP server configuration.
type Server struct {
	// Address to bind to.
	Host string `koanf:"host"`
	// Port to listen on.
	Port int `koanf:"port" validate:"gte=1,lte=65535"`
}

// Storage selects and configures the dataset backend.
type Storage struct {
	// Backend name (file, sqlite, redis, memory).
	Backend string `koanf:"backend" validate:"oneof=file sqlite redis memory"`
	// Directory for the file backend.
	DataDir string `koanf:"data_dir" validate:"required_if=Backend file"`
	// Database path for the sqlite backend.
	SQLitePath string `koanf:"sqlite_path" validate:"required_if=Backend sqlite"`
	// Key prefix for the redis backend.
	KeyPrefix string `koanf:"key_prefix"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	// Redis hostname.
	Host string `koanf:"host"`
	// Redis port.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
	// Database index.
	DB int `koanf:"db" validate:"gte=0"`
}

// Tracker contains the polling cadence of every tracker.
type Tracker struct {
	// Friend list poll interval in seconds.
	FriendInterval int `koanf:"friend_interval" validate:"gte=10"`
	// Presence poll interval in seconds.
	PresenceInterval int `koanf:"presence_interval" validate:"gte=10"`
	// Game presence poll interval in seconds.
	GameInterval int `koanf:"game_interval" validate:"gte=10"`
	// Startup delay in milliseconds.
	StartupDelay int `koanf:"startup_delay" validate:"gte=0"`
}

// Default returns the built-in configuration every other source is layered on.
func Default() Config {
	return Config{
		Version: CurrentVersion,
		Debug: Debug{
			LogLevel:      "info",
			LogDir:        "logs",
			MaxLogsToKeep: 10,
			MaxLogLines:   100000,
		},
		Roblox: Roblox{
			RequestTimeout:     10000,
			RequestsPerSecond:  5,
			Burst:              10,
			BreakerMaxRequests: 5,
			BreakerInterval:    60000,
			BreakerTimeout:     30000,
		},
		Server: Server{
			Host: "localhost",
			Port: 3000,
		},
		Storage: Storage{
			Backend:    BackendFile,
			DataDir:    "data",
			SQLitePath: "data/rowatch.db",
			KeyPrefix:  "rowatch:",
		},
		Redis: Redis{
			Host: "localhost",
			Port: 6379,
		},
		Tracker: Tracker{
			FriendInterval:   300,
			PresenceInterval: 60,
			GameInterval:     120,
			StartupDelay:     2000,
		},
	}
}

// LoadConfig loads the configuration from defaults, the first config.toml found
// in the search paths, a .env file and the environment, in that order.
// Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	// List search paths
	configPaths := []string{
		".rowatch",
		homeDir + "/.rowatch/config",
		"/etc/rowatch/config",
		"config",
		".",
	}

	return Load(configPaths)
}

// Load resolves the configuration against the given search paths.
func Load(configPaths []string) (*Config, string, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load defaults: %w", err)
	}

	var usedConfigPath string

	for _, path := range configPaths {
		configPath := path + "/config.toml"
		if _, err := os.Stat(configPath); err != nil {
			continue
		}

		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, "", fmt.Errorf("failed to load %s: %w", configPath, err)
		}

		usedConfigPath = path

		break
	}

	// A missing .env file is fine, real environment variables still apply
	_ = godotenv.Load()

	if err := k.Load(env.ProviderWithValue("", ".", envTransformFunc), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load environment variables: %w", err)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := checkConfigVersion(config.Version, CurrentVersion); err != nil {
		return nil, "", err
	}

	if err := validator.New().Struct(&config); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}

	return &config, usedConfigPath, nil
}

// envAliases maps environment variables that do not follow the ROWATCH_ scheme.
var envAliases = map[string]string{
	"rblx_key": "roblox.cookie",
	"port":     "server.port",
}

// envTransformFunc maps environment variable names to koanf paths.
// ROWATCH_STORAGE_DATA_DIR becomes storage.data_dir. Unknown and empty variables are dropped.
func envTransformFunc(key, value string) (string, any) {
	if value == "" {
		return "", nil
	}

	key = strings.ToLower(key)

	if path, ok := envAliases[key]; ok {
		return path, value
	}

	rest, ok := strings.CutPrefix(key, "rowatch_")
	if !ok {
		return "", nil
	}

	section, field, ok := strings.Cut(rest, "_")
	if !ok {
		return "", nil
	}

	return section + "." + field, value
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: config.toml", ErrConfigVersionMissing)
	}

	if current != expected {
		return fmt.Errorf(
			"%w: config.toml (got: %d, expected: %d)\n"+
				"Please update your config file from: https://github.com/robalyx/rowatch/tree/%s/config/config.toml",
			ErrConfigVersionMismatch,
			current,
			expected,
			RepositoryVersion,
		)
	}

	return nil
}
