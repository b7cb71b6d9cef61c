// Package source defines where the catalog gets module records from.
//
// A catalog load needs two lists: the modules installed on this host and
// the modules published by a remote manifest feed. [Installed] and [Remote]
// supply them; [ManifestSource] combines both.
//
// Implementations live in subpackages:
//   - local: installed modules discovered from module.json / module.toml files
//   - mongostore: installed modules tracked in a MongoDB collection
//   - remote: the HTTP (or file) manifest feed, with caching and retry
package source

import (
	"context"
	"slices"

	"github.com/matzehuels/modcat/pkg/module"
)

// Installed lists the modules present on this host. Returned records
// should have Installed set.
type Installed interface {
	FetchInstalled(ctx context.Context) ([]*module.Record, error)
}

// Remote lists the modules published at feedLocation. It fails with a
// transport or decoding error when the feed cannot be read.
type Remote interface {
	FetchRemote(ctx context.Context, feedLocation string) ([]*module.Record, error)
}

type refreshKey struct{}

// WithRefresh marks ctx so that sources holding cached payloads fetch fresh
// data instead. Fresh results may still be written to the cache.
func WithRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, refreshKey{}, true)
}

// RefreshRequested reports whether ctx was marked by WithRefresh.
func RefreshRequested(ctx context.Context) bool {
	v, _ := ctx.Value(refreshKey{}).(bool)
	return v
}

// ManifestSource supplies both lists to a catalog.
type ManifestSource interface {
	Installed
	Remote
}

// Combine joins an installed source and a remote source.
func Combine(installed Installed, remote Remote) ManifestSource {
	return combined{Installed: installed, Remote: remote}
}

type combined struct {
	Installed
	Remote
}

// Static is an in-memory ManifestSource. It ignores the feed location and
// returns copies of its lists, so callers may modify the results.
type Static struct {
	InstalledRecords []*module.Record
	RemoteRecords    []*module.Record
}

// FetchInstalled implements Installed.
func (s *Static) FetchInstalled(ctx context.Context) ([]*module.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return module.CloneAll(s.InstalledRecords), nil
}

// FetchRemote implements Remote.
func (s *Static) FetchRemote(ctx context.Context, _ string) ([]*module.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return module.CloneAll(s.RemoteRecords), nil
}

// Empty is an Installed source with no modules, for hosts that only browse
// a feed.
type Empty struct{}

// FetchInstalled returns no records.
func (Empty) FetchInstalled(context.Context) ([]*module.Record, error) { return nil, nil }

// MarkInstalled returns copies of records with Installed set and
// InitializationMode Immediate, the local state every installed source
// reports.
func MarkInstalled(records []*module.Record) []*module.Record {
	out := slices.Clone(records)
	for i, r := range out {
		c := r.Clone()
		c.Installed = true
		c.InitializationMode = module.Immediate
		out[i] = c
	}
	return out
}

var (
	_ ManifestSource = (*Static)(nil)
	_ Installed      = Empty{}
)
