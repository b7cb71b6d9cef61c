package catalog

import (
	"github.com/matzehuels/modcat/pkg/module"
)

// MergeStats summarizes how a snapshot was assembled.
type MergeStats struct {
	Remote    int // Remote records added
	Installed int // Records marked installed in the result
	Inherited int // Remote records that took over an installed record's state
	Orphans   int // Installed records absent from the feed
	Skipped   int // Repeated remote identities that were dropped
}

// merge combines installed and remote records. Inputs are not modified;
// the result holds copies.
func merge(installed, remote []*module.Record) ([]*module.Record, MergeStats) {
	var stats MergeStats

	local := make(map[module.Identity]*module.Record, len(installed))
	for _, r := range installed {
		if _, ok := local[r.Identity()]; !ok {
			local[r.Identity()] = r
		}
	}

	merged := make([]*module.Record, 0, len(installed)+len(remote))
	added := make(map[module.Identity]bool, len(remote))

	for _, r := range remote {
		id := r.Identity()
		if added[id] {
			stats.Skipped++
			continue
		}
		rec := r.Clone()
		if inst, ok := local[id]; ok {
			rec.Installed = inst.Installed
			rec.Errors = append([]string(nil), inst.Errors...)
			stats.Inherited++
		}
		rec.InitializationMode = module.OnDemand
		merged = append(merged, rec)
		added[id] = true
		stats.Remote++
	}

	for _, r := range installed {
		if added[r.Identity()] {
			continue
		}
		merged = append(merged, r.Clone())
		stats.Orphans++
	}

	for _, r := range merged {
		if r.Installed {
			stats.Installed++
		}
	}
	return merged, stats
}
