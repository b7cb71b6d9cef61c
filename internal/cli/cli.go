// Package cli implements the modcat command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"

	"github.com/matzehuels/modcat/internal/config"
	"github.com/matzehuels/modcat/pkg/cache"
	"github.com/matzehuels/modcat/pkg/catalog"
	"github.com/matzehuels/modcat/pkg/errors"
	"github.com/matzehuels/modcat/pkg/module"
	"github.com/matzehuels/modcat/pkg/semver"
	"github.com/matzehuels/modcat/pkg/source"
	"github.com/matzehuels/modcat/pkg/source/local"
	"github.com/matzehuels/modcat/pkg/source/mongostore"
	"github.com/matzehuels/modcat/pkg/source/remote"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = config.AppName

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Global flags; non-empty values override the config file.
	configPath string
	feedURL    string
	modulesDir string
	policy     string
	noCache    bool
	refresh    bool

	cfg *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// loadConfig reads the config file and applies flag overrides.
func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.feedURL != "" {
		cfg.FeedURL = c.feedURL
	}
	if c.modulesDir != "" {
		cfg.ModulesDir = c.modulesDir
	}
	if c.policy != "" {
		cfg.Resolver.RangePolicy = c.policy
	}
	if c.noCache {
		cfg.Cache.Backend = config.BackendNone
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg
	c.Logger.Debug("configuration loaded", "feed", cfg.FeedURL, "modules_dir", cfg.ModulesDir, "cache", cfg.Cache.Backend)
	return nil
}

// conf returns the loaded configuration, loading defaults if the root
// command's pre-run did not.
func (c *CLI) conf() *config.Config {
	if c.cfg == nil {
		if err := c.loadConfig(); err != nil {
			c.Logger.Warn("using default configuration", "err", err)
			c.cfg = config.Default()
		}
	}
	return c.cfg
}

// =============================================================================
// Environment
// =============================================================================

// env owns the resources a catalog-backed command opened.
type env struct {
	catalog *catalog.Catalog
	closers []func() error
}

func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		_ = e.closers[i]()
	}
}

func newCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendRedis:
		return cache.NewRedisCache(ctx, cache.RedisConfig{URL: cfg.Cache.RedisURL, Addr: cfg.Cache.RedisAddr})
	default:
		return cache.NewFileCache(cfg.Cache.Dir)
	}
}

func (c *CLI) newInstalled(ctx context.Context) (source.Installed, func() error, error) {
	cfg := c.conf()
	if cfg.Mongo.URI == "" {
		return local.NewDir(cfg.ModulesDir, c.Logger), func() error { return nil }, nil
	}
	store, err := mongostore.Open(ctx, mongostore.Config{
		URI:        cfg.Mongo.URI,
		Database:   cfg.Mongo.Database,
		Collection: cfg.Mongo.Collection,
	}, c.Logger)
	if err != nil {
		return nil, nil, err
	}
	return store, func() error { return store.Close(context.Background()) }, nil
}

// Cache key scopes. A feed mirror and a command-line catalog reading the
// same feed URL keep separate entries in a shared cache.
const (
	scopeCatalog = "catalog:"
	scopeMirror  = "mirror:"
)

// feedKeyer returns the cache keyer for feeds read under scope.
func feedKeyer(scope string) cache.Keyer {
	return cache.NewScopedKeyer(cache.NewDefaultKeyer(), scope)
}

func (c *CLI) newFeed(cc cache.Cache, scope string) *remote.Feed {
	cfg := c.conf()
	return remote.New(cc, remote.Options{
		TTL:     cfg.Cache.TTL,
		Refresh: c.refresh,
		Keyer:   feedKeyer(scope),
		Logger:  c.Logger,
	})
}

// openCatalog wires config into cache, sources and a catalog. The catalog
// loads lazily on first use.
func (c *CLI) openCatalog(ctx context.Context) (*env, error) {
	cfg := c.conf()
	if cfg.FeedURL == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig,
			"no module feed configured: set feed_url in %s or pass --feed", config.DefaultPath())
	}
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}

	e := &env{}
	cc, err := newCache(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	e.closers = append(e.closers, cc.Close)

	installed, closeInstalled, err := c.newInstalled(ctx)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.closers = append(e.closers, closeInstalled)

	e.catalog = catalog.New(source.Combine(installed, c.newFeed(cc, scopeCatalog)), catalog.Options{
		FeedLocation: cfg.FeedURL,
		Policy:       policy,
		Logger:       c.Logger,
	})
	return e, nil
}

// loadCatalog loads the catalog behind a spinner.
func (c *CLI) loadCatalog(ctx context.Context, cat *catalog.Catalog) (*catalog.Snapshot, error) {
	spinner := newSpinnerWithContext(ctx, "Loading module catalog...")
	if interactive() {
		spinner.Start()
	}
	snap, err := cat.Snapshot(ctx)
	spinner.Stop()
	return snap, err
}

// =============================================================================
// Module References
// =============================================================================

// parseRef splits "id@version". The version part is optional.
func parseRef(ref string) (id, version string, err error) {
	id, version, _ = strings.Cut(ref, "@")
	if err := errors.ValidateModuleID(id); err != nil {
		return "", "", err
	}
	return id, version, nil
}

// pickVersion returns the record for id at version. version may be an
// exact version or a range such as "^1.2", which picks the newest match.
// Without a version the installed record wins, then the newest.
func pickVersion(ctx context.Context, cat *catalog.Catalog, id, version string) (*module.Record, error) {
	if version != "" {
		if _, err := semver.ParseVersion(version); err == nil {
			return cat.Module(ctx, id, version)
		}
	}
	versions, err := cat.Versions(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, errors.New(errors.ErrCodeModuleNotFound, "module %s not found", id)
	}
	if version != "" {
		return pickInRange(versions, id, version)
	}
	for _, r := range versions {
		if r.Installed {
			return r, nil
		}
	}
	return versions[0], nil
}

func pickInRange(records []*module.Record, id, raw string) (*module.Record, error) {
	c, err := semver.ParseConstraint(raw)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidVersion, err, "invalid version or range %q", raw)
	}
	candidates := make([]semver.Version, len(records))
	for i, r := range records {
		candidates[i] = r.Version
	}
	best, ok := semver.MaxSatisfying(c, candidates)
	if !ok {
		return nil, errors.New(errors.ErrCodeModuleNotFound, "no version of %s matches %s", id, raw)
	}
	for _, r := range records {
		if semver.Compare(r.Version, best) == 0 {
			return r, nil
		}
	}
	return nil, errors.New(errors.ErrCodeModuleNotFound, "no version of %s matches %s", id, raw)
}

// interactive reports whether stdin and stdout are terminals.
func interactive() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
}
