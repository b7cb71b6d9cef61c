// Package module defines the catalog's unit of identity: a versioned
// feature package with an ordered list of dependencies.
//
// A [Record] is identified by its [Identity], the pair (id, version). Two
// records with equal identity are the same module; the catalog keeps only
// one of them.
//
// Records are built by manifest sources and treated as immutable once the
// catalog publishes them. Use [Record.Clone] before modifying a record
// obtained from elsewhere.
package module

import (
	"fmt"
	"slices"

	"github.com/matzehuels/modcat/pkg/semver"
)

// InitializationMode controls when a module is activated by its host.
type InitializationMode int

const (
	// Immediate modules are activated when the host starts.
	Immediate InitializationMode = iota
	// OnDemand modules are activated only when requested. Records that come
	// from the remote feed are always OnDemand.
	OnDemand
)

// String returns the mode name used in manifests and CLI output.
func (m InitializationMode) String() string {
	switch m {
	case Immediate:
		return "immediate"
	case OnDemand:
		return "on-demand"
	default:
		return fmt.Sprintf("InitializationMode(%d)", int(m))
	}
}

// Dependency is a declared requirement on another module.
// Range is opaque to the catalog; only the version oracle interprets it.
type Dependency struct {
	ID    string
	Range string
}

// Identity is the (id, version) pair that distinguishes records.
// Version is the normalized version string.
type Identity struct {
	ID      string
	Version string
}

// String returns "id@version".
func (i Identity) String() string {
	return i.ID + "@" + i.Version
}

// Record describes one version of one module.
type Record struct {
	ID                 string
	Version            semver.Version
	Dependencies       []Dependency
	Installed          bool
	Errors             []string
	InitializationMode InitializationMode

	// Descriptive fields carried from the manifest. Resolution ignores them.
	Title       string
	Description string
	Authors     []string
	PackageURL  string
	IconURL     string
	Tags        []string
}

// Identity returns the record's (id, version) pair.
func (r *Record) Identity() Identity {
	return Identity{ID: r.ID, Version: r.Version.String()}
}

// String returns "id@version".
func (r *Record) String() string {
	return r.Identity().String()
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Dependencies = slices.Clone(r.Dependencies)
	c.Errors = slices.Clone(r.Errors)
	c.Authors = slices.Clone(r.Authors)
	c.Tags = slices.Clone(r.Tags)
	return &c
}

// HasErrors reports whether prior loads recorded problems for this module.
func (r *Record) HasErrors() bool {
	return len(r.Errors) > 0
}

// CloneAll deep-copies a slice of records.
func CloneAll(records []*Record) []*Record {
	out := make([]*Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

// ByVersionDesc orders records newest first. Records of different ids keep
// their relative order only if the caller sorts stably.
func ByVersionDesc(a, b *Record) int {
	return semver.Compare(b.Version, a.Version)
}
