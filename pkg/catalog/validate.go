package catalog

import (
	"github.com/matzehuels/modcat/pkg/errors"
	"github.com/matzehuels/modcat/pkg/module"
)

// validateUnique fails on the first (id, version) that appears twice.
func validateUnique(records []*module.Record) error {
	seen := make(map[module.Identity]struct{}, len(records))
	for _, r := range records {
		id := r.Identity()
		if _, dup := seen[id]; dup {
			return &errors.DuplicateModuleError{ID: id.ID, Version: id.Version}
		}
		seen[id] = struct{}{}
	}
	return nil
}
