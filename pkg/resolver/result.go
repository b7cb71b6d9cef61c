package resolver

import (
	stderrors "errors"
	"maps"
	"slices"

	"github.com/matzehuels/modcat/pkg/module"
)

// IDs returns the selected dependency ids in sorted order.
func (r *Result) IDs() []string {
	return slices.Sorted(maps.Keys(r.Modules))
}

// Complete reports whether every dependency in the closure was resolved.
func (r *Result) Complete() bool {
	return len(r.Unresolved) == 0
}

// Err joins the unresolved dependency errors, or returns nil.
func (r *Result) Err() error {
	if len(r.Unresolved) == 0 {
		return nil
	}
	errs := make([]error, len(r.Unresolved))
	for i, u := range r.Unresolved {
		errs[i] = u
	}
	return stderrors.Join(errs...)
}

// Ordered returns the selected records in activation order: every record
// comes after the selected records it depends on. Ids are visited in sorted
// order, so the output is deterministic; a dependency cycle is broken at the
// edge that closes it.
func (r *Result) Ordered() []*module.Record {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(r.Modules))
	out := make([]*module.Record, 0, len(r.Modules))

	var visit func(id string)
	visit = func(id string) {
		rec, ok := r.Modules[id]
		if !ok || state[id] != unvisited {
			return
		}
		state[id] = visiting
		for _, dep := range rec.Dependencies {
			visit(dep.ID)
		}
		state[id] = done
		out = append(out, rec)
	}

	for _, id := range r.IDs() {
		visit(id)
	}
	return out
}
