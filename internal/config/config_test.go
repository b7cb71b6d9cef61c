package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/modcat/pkg/errors"
	"github.com/matzehuels/modcat/pkg/resolver"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultPathsFollowXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")

	if got, want := DefaultPath(), "/tmp/xdg-config/modcat/config.toml"; got != want {
		t.Errorf("DefaultPath() = %q, want %q", got, want)
	}
	cfg := Default()
	if got, want := cfg.Cache.Dir, "/tmp/xdg-cache/modcat"; got != want {
		t.Errorf("Cache.Dir = %q, want %q", got, want)
	}
	if got, want := cfg.ModulesDir, "/tmp/xdg-data/modcat/modules"; got != want {
		t.Errorf("ModulesDir = %q, want %q", got, want)
	}
}

func TestDefaultPathWithoutXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got, want := Default().Cache.Dir, filepath.Join(home, ".cache", AppName); got != want {
		t.Errorf("Cache.Dir = %q, want %q", got, want)
	}
}

func TestLoadMissingDefaultFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.Backend != BackendFile || cfg.Cache.TTL != time.Hour {
		t.Errorf("defaults not applied: %+v", cfg.Cache)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Fatalf("Load missing explicit file: err = %v, want INVALID_CONFIG", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
feed_url = "https://modules.example.com/modules.json"
modules_dir = "/srv/modules"

[cache]
backend = "redis"
ttl = "30m"
redis_addr = "cache:6379"

[mongo]
uri = "mongodb://db:27017"

[resolver]
range_policy = "intersect"

[feed]
addr = ":9090"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.FeedURL != "https://modules.example.com/modules.json" {
		t.Errorf("FeedURL = %q", cfg.FeedURL)
	}
	if cfg.Cache.Backend != BackendRedis || cfg.Cache.TTL != 30*time.Minute || cfg.Cache.RedisAddr != "cache:6379" {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Cache.Dir == "" {
		t.Error("unset keys should keep their defaults")
	}
	if cfg.Mongo.URI != "mongodb://db:27017" {
		t.Errorf("Mongo.URI = %q", cfg.Mongo.URI)
	}
	policy, err := cfg.Policy()
	if err != nil || policy != resolver.Intersect {
		t.Errorf("Policy() = %v, %v; want intersect", policy, err)
	}
	if cfg.Feed.Addr != ":9090" || cfg.FeedDir() != "/srv/modules" {
		t.Errorf("Feed = %+v, FeedDir = %q", cfg.Feed, cfg.FeedDir())
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", `colour = "blue"`},
		{"bad backend", "[cache]\nbackend = \"memcached\""},
		{"bad policy", "[resolver]\nrange_policy = \"newest\""},
		{"bad feed scheme", `feed_url = "ftp://modules.example.com/feed.json"`},
		{"bad toml", `feed_url = `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("err = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestFeedURLMayBeAPath(t *testing.T) {
	cfg, err := Load(writeConfig(t, `feed_url = "/srv/feed/modules.json"`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FeedURL != "/srv/feed/modules.json" {
		t.Errorf("FeedURL = %q", cfg.FeedURL)
	}
}
