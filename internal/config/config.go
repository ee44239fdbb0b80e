// Package config loads logsearch settings from an optional TOML file and
// environment overrides.
//
// Precedence, lowest first: built-in defaults, ~/.config/logsearch/config.toml,
// environment variables. Command-line flags are applied by the binaries.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/bull/logsearch/internal/discovery"
)

// ErrInvalid is returned when a loaded value is out of range.
var ErrInvalid = errors.New("invalid config")

const (
	DefaultBatchSize      = 10_000
	DefaultMemoryBudgetMB = 500
	DefaultLimit          = 100
	DefaultDebounce       = 2 * time.Second
	DefaultPort           = "8080"
)

// Config is the complete logsearch configuration.
type Config struct {
	IndexDir       string   `toml:"index_dir"`
	Roots          []string `toml:"roots"`
	BatchSize      int      `toml:"batch_size"`
	MemoryBudgetMB int      `toml:"memory_budget_mb"`
	LogLevel       string   `toml:"log_level"`

	Search SearchConfig `toml:"search"`
	Watch  WatchConfig  `toml:"watch"`
	Server ServerConfig `toml:"server"`
}

type SearchConfig struct {
	Limit  int    `toml:"limit"`
	Format string `toml:"format"`
}

type WatchConfig struct {
	Debounce Duration `toml:"debounce"`
}

type ServerConfig struct {
	HTTP bool   `toml:"http"` // serve over HTTP instead of stdio
	Port string `toml:"port"`
}

// Duration decodes TOML strings such as "2s" or "500ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration for the given home directory.
func Default(home string) *Config {
	return &Config{
		IndexDir:       filepath.Join(home, ".local", "share", "logsearch", "index"),
		Roots:          discovery.DefaultRoots(home),
		BatchSize:      DefaultBatchSize,
		MemoryBudgetMB: DefaultMemoryBudgetMB,
		LogLevel:       "info",
		Search:         SearchConfig{Limit: DefaultLimit, Format: "table"},
		Watch:          WatchConfig{Debounce: Duration{DefaultDebounce}},
		Server:         ServerConfig{Port: DefaultPort},
	}
}

// Path returns the default config file location.
func Path(home string) string {
	return filepath.Join(home, ".config", "logsearch", "config.toml")
}

// Load builds the configuration: defaults, then the TOML file at path if it
// exists (empty path means the default location), then the environment.
func Load(path string) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	return LoadWith(path, home, os.LookupEnv)
}

// LoadWith is Load with an explicit home directory and environment lookup.
func LoadWith(path, home string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default(home)
	if path == "" {
		path = Path(home)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	cfg.IndexDir = expandHome(cfg.IndexDir, home)
	for i, r := range cfg.Roots {
		cfg.Roots[i] = expandHome(r, home)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("LOGSEARCH_INDEX_DIR"); ok && v != "" {
		c.IndexDir = v
	}
	if v, ok := lookup("LOGSEARCH_ROOTS"); ok && v != "" {
		c.Roots = filepath.SplitList(v)
	}
	if v, ok := lookup("LOGSEARCH_BATCH_SIZE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: LOGSEARCH_BATCH_SIZE=%q", ErrInvalid, v)
		}
		c.BatchSize = n
	}
	if v, ok := lookup("LOGSEARCH_MEMORY_BUDGET_MB"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: LOGSEARCH_MEMORY_BUDGET_MB=%q", ErrInvalid, v)
		}
		c.MemoryBudgetMB = n
	}
	if v, ok := lookup("LOGSEARCH_LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup("SERVER_MODE"); ok && v != "" {
		c.Server.HTTP = v == "true"
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		c.Server.Port = v
	}
	return nil
}

// Validate rejects values the indexer cannot work with.
func (c *Config) Validate() error {
	switch {
	case c.IndexDir == "":
		return fmt.Errorf("%w: index_dir is empty", ErrInvalid)
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batch_size must be positive, got %d", ErrInvalid, c.BatchSize)
	case c.MemoryBudgetMB <= 0:
		return fmt.Errorf("%w: memory_budget_mb must be positive, got %d", ErrInvalid, c.MemoryBudgetMB)
	case c.Search.Limit <= 0:
		return fmt.Errorf("%w: search.limit must be positive, got %d", ErrInvalid, c.Search.Limit)
	case c.Watch.Debounce.Duration < 0:
		return fmt.Errorf("%w: watch.debounce is negative", ErrInvalid)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}
	return level, nil
}

// Logger returns a text logger on stderr at the configured level.
func (c *Config) Logger() *slog.Logger {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
