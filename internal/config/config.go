// Package config loads modcat's TOML configuration.
//
// The file lives at $XDG_CONFIG_HOME/modcat/config.toml (or
// ~/.config/modcat/config.toml). A missing file at the default path yields
// [Default]; every key is optional.
//
//	feed_url    = "https://modules.example.com/modules.json"
//	modules_dir = "/var/lib/app/modules"
//
//	[cache]
//	backend    = "redis"      # file | redis | none
//	ttl        = "30m"
//	redis_addr = "localhost:6379"
//
//	[mongo]
//	uri = "mongodb://localhost:27017"
//
//	[resolver]
//	range_policy = "intersect" # first | intersect
//
//	[feed]
//	addr = ":8080"
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/modcat/pkg/errors"
	"github.com/matzehuels/modcat/pkg/resolver"
)

// AppName names the XDG subdirectories.
const AppName = "modcat"

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Config is the full configuration.
type Config struct {
	FeedURL    string         `toml:"feed_url"`
	ModulesDir string         `toml:"modules_dir"`
	Cache      CacheConfig    `toml:"cache"`
	Mongo      MongoConfig    `toml:"mongo"`
	Resolver   ResolverConfig `toml:"resolver"`
	Feed       FeedConfig     `toml:"feed"`
}

// CacheConfig selects where fetched feeds are cached.
type CacheConfig struct {
	Backend   string        `toml:"backend"`
	TTL       time.Duration `toml:"ttl"`
	Dir       string        `toml:"dir"`
	RedisAddr string        `toml:"redis_addr"`
	RedisURL  string        `toml:"redis_url"`
}

// MongoConfig enables the MongoDB installed-module store when URI is set.
type MongoConfig struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// ResolverConfig tunes dependency resolution.
type ResolverConfig struct {
	RangePolicy string `toml:"range_policy"`
}

// FeedConfig configures `modcat feed serve`.
type FeedConfig struct {
	Addr string `toml:"addr"`
	Dir  string `toml:"dir"` // Defaults to ModulesDir
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		ModulesDir: filepath.Join(dataHome(), AppName, "modules"),
		Cache: CacheConfig{
			Backend: BackendFile,
			TTL:     time.Hour,
			Dir:     filepath.Join(cacheHome(), AppName),
		},
		Resolver: ResolverConfig{RangePolicy: resolver.FirstDeclared.String()},
		Feed:     FeedConfig{Addr: ":8080"},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(configHome(), AppName, "config.toml")
}

// Load reads the file at path over the defaults. An empty path means
// [DefaultPath], which may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated values and durations.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case BackendFile, BackendRedis, BackendNone:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q (want file, redis or none)", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "cache ttl must not be negative")
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	if c.FeedURL != "" && strings.Contains(c.FeedURL, "://") && !strings.HasPrefix(c.FeedURL, "file://") {
		if err := errors.ValidateURL(c.FeedURL); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "feed_url")
		}
	}
	return nil
}

// Policy returns the configured range policy.
func (c *Config) Policy() (resolver.RangePolicy, error) {
	return resolver.ParseRangePolicy(c.Resolver.RangePolicy)
}

// FeedDir returns the directory `feed serve` publishes.
func (c *Config) FeedDir() string {
	if c.Feed.Dir != "" {
		return c.Feed.Dir
	}
	return c.ModulesDir
}

func configHome() string { return xdgDir("XDG_CONFIG_HOME", ".config") }
func cacheHome() string  { return xdgDir("XDG_CACHE_HOME", ".cache") }
func dataHome() string   { return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share")) }

func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), fallback)
	}
	return filepath.Join(home, fallback)
}
