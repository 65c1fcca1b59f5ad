package cfg

import (
	"flag"
	"fmt"
	"hash/fnv"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/denisbrodbeck/machineid"
	"github.com/gobwas/glob"
	"github.com/rs/zerolog/log"
)

// Dialect selects the syntax checker used by -check and /check
type Dialect string

const (
	DialectMySQL  Dialect = "mysql"  // vitess sqlparser
	DialectSQLite Dialect = "sqlite" // rqlite/sql
	DialectNone   Dialect = "none"   // skip syntax checks
)

// SQLMapConfiguration controls where templates are loaded from
type SQLMapConfiguration struct {
	Dirs             []string `toml:"dirs"`
	Include          []string `toml:"include"` // glob patterns on paths relative to a dir
	Exclude          []string `toml:"exclude"`
	Watch            bool     `toml:"watch"`
	WatchDebounceMS  int      `toml:"watch_debounce_ms"`
	StatsIntervalSec int      `toml:"stats_interval_seconds"`
}

// CacheConfiguration controls the resolved-definition cache
type CacheConfiguration struct {
	Enabled bool `toml:"enabled"`
	Size    int  `toml:"size"`
}

// ValidationConfiguration controls template syntax checking
type ValidationConfiguration struct {
	Dialect Dialect `toml:"dialect"`
	Strict  bool    `toml:"strict"` // treat AST/regex table mismatches as errors
}

// AdminConfiguration for the HTTP admin surface
type AdminConfiguration struct {
	Enabled     bool   `toml:"enabled"`
	BindAddress string `toml:"bind_address"`
	Port        int    `toml:"port"`
	Secret      string `toml:"secret"` // empty disables auth
}

// LoggingConfiguration controls logging behavior
type LoggingConfiguration struct {
	Verbose bool   `toml:"verbose"`
	Format  string `toml:"format"` // "console" or "json"
}

// PrometheusConfiguration for metrics
type PrometheusConfiguration struct {
	Enabled bool `toml:"enabled"`
}

// Configuration is the main configuration structure
type Configuration struct {
	InstanceID uint64 `toml:"instance_id"`

	SQLMap     SQLMapConfiguration     `toml:"sqlmap"`
	Cache      CacheConfiguration      `toml:"cache"`
	Validation ValidationConfiguration `toml:"validation"`
	Admin      AdminConfiguration      `toml:"admin"`
	Logging    LoggingConfiguration    `toml:"logging"`
	Prometheus PrometheusConfiguration `toml:"prometheus"`
}

// Command line flags
var (
	ConfigPathFlag = flag.String("config", "config.toml", "Path to configuration file")
	SQLDirFlag     = flag.String("sql-dir", "", "Template directory (overrides config dirs)")
	AdminPortFlag  = flag.Int("admin-port", 0, "Admin HTTP port (overrides config)")
	CheckFlag      = flag.Bool("check", false, "Check every template and exit")
)

// Default configuration
var Config = &Configuration{
	InstanceID: 0, // Auto-generate

	SQLMap: SQLMapConfiguration{
		Dirs:             []string{"./sql"},
		Include:          []string{},
		Exclude:          []string{},
		Watch:            true,
		WatchDebounceMS:  100,
		StatsIntervalSec: 15,
	},

	Cache: CacheConfiguration{
		Enabled: true,
		Size:    4096,
	},

	Validation: ValidationConfiguration{
		Dialect: DialectMySQL,
		Strict:  false,
	},

	Admin: AdminConfiguration{
		Enabled:     true,
		BindAddress: "127.0.0.1",
		Port:        8089,
	},

	Logging: LoggingConfiguration{
		Verbose: false,
		Format:  "console",
	},

	Prometheus: PrometheusConfiguration{
		Enabled: true,
	},
}

// Load loads configuration from file and applies CLI overrides
func Load(configPath string) error {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			log.Info().Str("path", configPath).Msg("Loading configuration")
			if _, err := toml.DecodeFile(configPath, Config); err != nil {
				return fmt.Errorf("failed to decode config: %w", err)
			}
		} else {
			log.Warn().Str("path", configPath).Msg("Config file not found, using defaults")
		}
	}

	if *SQLDirFlag != "" {
		Config.SQLMap.Dirs = []string{*SQLDirFlag}
	}
	if *AdminPortFlag != 0 {
		Config.Admin.Port = *AdminPortFlag
	}

	if Config.InstanceID == 0 {
		var err error
		Config.InstanceID, err = generateInstanceID()
		if err != nil {
			return fmt.Errorf("failed to generate instance ID: %w", err)
		}
		log.Info().Uint64("instance_id", Config.InstanceID).Msg("Auto-generated instance ID")
	}

	return nil
}

// generateInstanceID creates a stable ID based on machine ID
func generateInstanceID() (uint64, error) {
	id, err := machineid.ProtectedID("sqlmap")
	if err != nil {
		return 0, err
	}

	h := fnv.New64a()
	h.Write([]byte(id))
	return h.Sum64(), nil
}

// Validate checks configuration for errors
func Validate() error {
	if len(Config.SQLMap.Dirs) == 0 {
		return fmt.Errorf("at least one sqlmap dir is required")
	}

	for _, pattern := range append(append([]string{}, Config.SQLMap.Include...), Config.SQLMap.Exclude...) {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return fmt.Errorf("invalid sqlmap pattern %q: %w", pattern, err)
		}
	}

	if Config.SQLMap.Watch && Config.SQLMap.WatchDebounceMS < 0 {
		return fmt.Errorf("watch debounce must be >= 0ms")
	}

	if Config.SQLMap.StatsIntervalSec < 1 {
		return fmt.Errorf("stats interval must be >= 1 second")
	}

	if Config.Cache.Enabled && Config.Cache.Size < 1 {
		return fmt.Errorf("cache size must be >= 1")
	}

	switch Config.Validation.Dialect {
	case DialectMySQL, DialectSQLite, DialectNone:
	default:
		return fmt.Errorf("invalid validation dialect: %s", Config.Validation.Dialect)
	}

	if Config.Admin.Enabled && (Config.Admin.Port < 1 || Config.Admin.Port > 65535) {
		return fmt.Errorf("invalid admin port: %d", Config.Admin.Port)
	}

	if Config.Logging.Format != "console" && Config.Logging.Format != "json" {
		return fmt.Errorf("invalid logging format: %s", Config.Logging.Format)
	}

	return nil
}

// IsAdminAuthEnabled returns true when a shared admin secret is configured
func IsAdminAuthEnabled() bool {
	return Config.Admin.Secret != ""
}
