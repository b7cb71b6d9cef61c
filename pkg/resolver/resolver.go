// Package resolver computes, for a root module, the single concrete version
// of every transitive dependency that must be activated with it.
//
// Resolution works over an immutable slice of records (a catalog snapshot)
// and performs no I/O, so it needs no locking and is safe to run from many
// goroutines at once.
//
// # Algorithm
//
// Closure gathering walks the root's declared dependencies breadth-first in
// declaration order. Each dependency id is visited once; visiting an id
// gathers every record with that id (every version) and queues their own
// dependencies. The root's id is marked visited up front, so dependency
// cycles terminate and the root never appears in its own result.
//
// Version selection then runs per visited id: candidates are filtered
// through the [semver.Oracle] using the range chosen by the [RangePolicy],
// and the highest compatible installed candidate wins; without one, the
// highest compatible candidate wins. An id with no compatible candidate is
// left out and reported in [Result.Unresolved].
package resolver

import (
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/modcat/pkg/errors"
	"github.com/matzehuels/modcat/pkg/module"
	"github.com/matzehuels/modcat/pkg/semver"
)

// RangePolicy decides which declared ranges constrain a dependency that
// several modules in the closure require.
type RangePolicy int

const (
	// FirstDeclared uses the first range met during traversal. Because the
	// walk is breadth-first, the root's own declarations take precedence.
	FirstDeclared RangePolicy = iota
	// Intersect requires a candidate to satisfy every range declared for its
	// id anywhere in the closure.
	Intersect
)

// String returns the policy name used in configuration.
func (p RangePolicy) String() string {
	switch p {
	case FirstDeclared:
		return "first"
	case Intersect:
		return "intersect"
	default:
		return fmt.Sprintf("RangePolicy(%d)", int(p))
	}
}

// ParseRangePolicy converts a configuration value to a RangePolicy.
// The empty string selects FirstDeclared.
func ParseRangePolicy(s string) (RangePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first", "first-declared":
		return FirstDeclared, nil
	case "intersect", "all":
		return Intersect, nil
	default:
		return 0, errors.New(errors.ErrCodeInvalidConfig, "unknown range policy %q (want first or intersect)", s)
	}
}

// Options configures a resolution.
type Options struct {
	Oracle semver.Oracle        // Defaults to semver.NewConstraintOracle()
	Policy RangePolicy          // Defaults to FirstDeclared
	Logger func(string, ...any) // Optional; receives unresolved dependency notices
}

// WithDefaults returns a copy of o with unset fields filled in.
func (o Options) WithDefaults() Options {
	if o.Oracle == nil {
		o.Oracle = semver.NewConstraintOracle()
	}
	if o.Logger == nil {
		o.Logger = func(string, ...any) {}
	}
	return o
}

// Result is the outcome of resolving one root module.
type Result struct {
	Root       module.Identity
	Modules    map[string]*module.Record // Dependency id -> selected record
	Unresolved []*errors.DependencyUnresolvedError
}

// Resolve computes the dependency selection for root over records.
// records is not modified; the returned Result references its elements.
// The only error is a missing root: unsatisfiable dependencies are reported
// through Result.Unresolved.
func Resolve(records []*module.Record, root *module.Record, opts Options) (*Result, error) {
	if root == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "root module is required")
	}
	opts = opts.WithDefaults()

	index := make(map[string][]*module.Record)
	for _, r := range records {
		index[r.ID] = append(index[r.ID], r)
	}

	order, ranges := gather(index, root, opts.Policy)

	res := &Result{
		Root:    root.Identity(),
		Modules: make(map[string]*module.Record, len(order)),
	}
	for _, id := range order {
		candidates := index[id]
		if best := selectBest(candidates, ranges[id], opts.Oracle); best != nil {
			res.Modules[id] = best
			continue
		}
		unresolved := &errors.DependencyUnresolvedError{
			Root:         res.Root.String(),
			DependencyID: id,
			Ranges:       ranges[id],
			Available:    versions(candidates),
		}
		opts.Logger("unresolved dependency: %v", unresolved)
		res.Unresolved = append(res.Unresolved, unresolved)
	}
	return res, nil
}

// gather walks the closure of root and returns the visited dependency ids in
// visit order along with the ranges that constrain each of them.
func gather(index map[string][]*module.Record, root *module.Record, policy RangePolicy) ([]string, map[string][]string) {
	visited := map[string]bool{root.ID: true}
	ranges := make(map[string][]string)
	var order []string

	queue := slices.Clone(root.Dependencies)
	for len(queue) > 0 {
		dep := queue[0]
		queue = queue[1:]

		if visited[dep.ID] {
			if policy == Intersect && dep.ID != root.ID && !slices.Contains(ranges[dep.ID], dep.Range) {
				ranges[dep.ID] = append(ranges[dep.ID], dep.Range)
			}
			continue
		}
		visited[dep.ID] = true
		order = append(order, dep.ID)
		ranges[dep.ID] = []string{dep.Range}

		for _, r := range index[dep.ID] {
			queue = append(queue, r.Dependencies...)
		}
	}
	return order, ranges
}

func selectBest(candidates []*module.Record, ranges []string, oracle semver.Oracle) *module.Record {
	var best *module.Record
	for _, c := range candidates {
		if !acceptsAll(oracle, ranges, c.Version) {
			continue
		}
		if best == nil || preferred(c, best) {
			best = c
		}
	}
	return best
}

func acceptsAll(oracle semver.Oracle, ranges []string, v semver.Version) bool {
	for _, r := range ranges {
		if !oracle.Compatible(r, v) {
			return false
		}
	}
	return true
}

// preferred reports whether a beats b: installed first, then newest.
func preferred(a, b *module.Record) bool {
	if a.Installed != b.Installed {
		return a.Installed
	}
	return semver.Compare(a.Version, b.Version) > 0
}

func versions(records []*module.Record) []string {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, module.ByVersionDesc)
	out := make([]string, len(sorted))
	for i, r := range sorted {
		out[i] = r.Version.String()
	}
	return out
}
