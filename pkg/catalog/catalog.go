// Package catalog maintains the set of modules known to a host and answers
// dependency questions about them.
//
// A [Catalog] reconciles two lists from a [source.ManifestSource]: modules
// installed locally and modules published by a remote feed. The first call
// that needs data loads both lists, merges them and publishes an immutable
// [Snapshot]. Concurrent callers wait for that single load; later calls read
// the snapshot without locking. [Catalog.Reload] builds a new snapshot and
// swaps it in atomically.
//
// Merge rules:
//   - Every remote record is added once per (id, version). If an installed
//     record has the same identity, the remote record takes over its
//     Installed flag and Errors. Remote records are always OnDemand.
//   - Installed records absent from the feed are added unchanged.
//   - Two records with the same identity in the installed list, or in the
//     merged result, fail the load with *errors.DuplicateModuleError.
//
// A failed or cancelled load publishes nothing; the previous snapshot, if
// any, stays current.
package catalog

import (
	"context"
	"io"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/modcat/pkg/errors"
	"github.com/matzehuels/modcat/pkg/module"
	"github.com/matzehuels/modcat/pkg/observability"
	"github.com/matzehuels/modcat/pkg/resolver"
	"github.com/matzehuels/modcat/pkg/semver"
	"github.com/matzehuels/modcat/pkg/source"
)

// State is the catalog's load state.
type State int

const (
	Unloaded State = iota
	Loading
	Loaded
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// Options configures a Catalog.
type Options struct {
	FeedLocation string               // Passed to the source's FetchRemote
	Oracle       semver.Oracle        // Defaults to semver.NewConstraintOracle()
	Policy       resolver.RangePolicy // How conflicting ranges are combined
	Logger       *log.Logger          // Defaults to a discarding logger
}

// WithDefaults returns a copy of o with unset fields filled in.
func (o Options) WithDefaults() Options {
	if o.Oracle == nil {
		o.Oracle = semver.NewConstraintOracle()
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return o
}

// Catalog is safe for concurrent use. Each Catalog guards its own load;
// separate instances never block each other.
type Catalog struct {
	src  source.ManifestSource
	opts Options

	snap atomic.Pointer[Snapshot]

	mu       sync.Mutex
	state    State
	inflight *loadCall
}

// New creates an unloaded catalog. Nothing is fetched until first use.
func New(src source.ManifestSource, opts Options) *Catalog {
	return &Catalog{src: src, opts: opts.WithDefaults()}
}

// State reports whether the catalog has been loaded.
func (c *Catalog) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the current snapshot, loading it first if necessary.
func (c *Catalog) Snapshot(ctx context.Context) (*Snapshot, error) {
	if s := c.snap.Load(); s != nil {
		return s, nil
	}
	return c.load(ctx, false)
}

// Modules returns every module record in the catalog, loading it on first
// use. The records are copies.
func (c *Catalog) Modules(ctx context.Context) ([]*module.Record, error) {
	s, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.Modules(), nil
}

// Module returns a copy of the record with the given id and version.
func (c *Catalog) Module(ctx context.Context, id, version string) (*module.Record, error) {
	s, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	v, err := semver.ParseVersion(version)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidVersion, err, "invalid version %q", version)
	}
	r, ok := s.Lookup(module.Identity{ID: id, Version: v.String()})
	if !ok {
		return nil, errors.New(errors.ErrCodeModuleNotFound, "module %s@%s not found", id, v)
	}
	return r.Clone(), nil
}

// Versions returns copies of every record with the given id, newest first.
// An unknown id yields an empty slice.
func (c *Catalog) Versions(ctx context.Context, id string) ([]*module.Record, error) {
	s, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return module.CloneAll(s.byID[id]), nil
}

// DependentModules resolves the transitive dependencies of root against
// the catalog. Dependencies that no catalog version satisfies are omitted
// from the result and reported in Result.Unresolved; they are not an error.
// The returned records are copies.
func (c *Catalog) DependentModules(ctx context.Context, root *module.Record) (*resolver.Result, error) {
	s, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := resolver.Resolve(s.records, root, resolver.Options{
		Oracle: c.opts.Oracle,
		Policy: c.opts.Policy,
		Logger: func(format string, args ...any) { c.opts.Logger.Debugf(format, args...) },
	})
	if err != nil {
		return nil, err
	}
	for id, r := range res.Modules {
		res.Modules[id] = r.Clone()
	}

	observability.Catalog().OnResolve(ctx, root.String(), len(res.Modules), len(res.Unresolved), time.Since(start))
	if len(res.Unresolved) > 0 {
		c.opts.Logger.Warn("unresolved dependencies", "module", root.String(), "count", len(res.Unresolved))
	}
	return res, nil
}

// Reload fetches both lists again and swaps in the new snapshot. The fetch
// runs under [source.WithRefresh], so cached feed payloads are bypassed. If
// a load is already running, Reload waits for it instead of starting another. On
// failure the current snapshot is kept.
func (c *Catalog) Reload(ctx context.Context) error {
	_, err := c.load(ctx, true)
	return err
}

// Snapshot is one published catalog. It is immutable.
type Snapshot struct {
	ID       string
	LoadedAt time.Time
	Feed     string
	Stats    MergeStats

	records    []*module.Record
	byIdentity map[module.Identity]*module.Record
	byID       map[string][]*module.Record
}

func newSnapshot(id, feed string, records []*module.Record, stats MergeStats) *Snapshot {
	s := &Snapshot{
		ID:         id,
		LoadedAt:   time.Now(),
		Feed:       feed,
		Stats:      stats,
		records:    records,
		byIdentity: make(map[module.Identity]*module.Record, len(records)),
		byID:       make(map[string][]*module.Record),
	}
	for _, r := range records {
		s.byIdentity[r.Identity()] = r
		s.byID[r.ID] = append(s.byID[r.ID], r)
	}
	for _, versions := range s.byID {
		slices.SortStableFunc(versions, module.ByVersionDesc)
	}
	return s
}

// Len returns the number of records.
func (s *Snapshot) Len() int { return len(s.records) }

// Modules returns copies of all records in merge order.
func (s *Snapshot) Modules() []*module.Record {
	return module.CloneAll(s.records)
}

// Lookup returns the record with the given identity. The record is shared;
// do not modify it.
func (s *Snapshot) Lookup(id module.Identity) (*module.Record, bool) {
	r, ok := s.byIdentity[id]
	return r, ok
}
