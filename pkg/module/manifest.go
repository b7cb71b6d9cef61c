package module

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/matzehuels/modcat/pkg/errors"
	"github.com/matzehuels/modcat/pkg/semver"
)

// Manifest is the wire shape of a module description, shared by the remote
// feed (a JSON array of manifests) and on-disk module.json / module.toml
// files.
type Manifest struct {
	ID           string               `json:"id" toml:"id" bson:"id"`
	Version      string               `json:"version" toml:"version" bson:"version"`
	Title        string               `json:"title,omitempty" toml:"title" bson:"title,omitempty"`
	Description  string               `json:"description,omitempty" toml:"description" bson:"description,omitempty"`
	Authors      []string             `json:"authors,omitempty" toml:"authors" bson:"authors,omitempty"`
	PackageURL   string               `json:"packageUrl,omitempty" toml:"package_url" bson:"package_url,omitempty"`
	IconURL      string               `json:"iconUrl,omitempty" toml:"icon_url" bson:"icon_url,omitempty"`
	Tags         []string             `json:"tags,omitempty" toml:"tags" bson:"tags,omitempty"`
	Dependencies []ManifestDependency `json:"dependencies,omitempty" toml:"dependencies" bson:"dependencies,omitempty"`
}

// ManifestDependency names a required module. Version holds the required
// range, kept under that key for compatibility with existing feeds.
type ManifestDependency struct {
	ID      string `json:"id" toml:"id" bson:"id"`
	Version string `json:"version" toml:"version" bson:"version"`
}

// Record converts the manifest into a catalog record. The id and version
// must be valid; dependency entries that fail validation are kept out of
// Dependencies and reported in the record's Errors instead, so a single bad
// entry does not hide the module.
func (m *Manifest) Record() (*Record, error) {
	if err := errors.ValidateModuleID(m.ID); err != nil {
		return nil, err
	}
	v, err := semver.ParseVersion(m.Version)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidVersion, err, "module %s has invalid version %q", m.ID, m.Version)
	}

	r := &Record{
		ID:          m.ID,
		Version:     v,
		Title:       m.Title,
		Description: m.Description,
		Authors:     m.Authors,
		PackageURL:  m.PackageURL,
		IconURL:     m.IconURL,
		Tags:        m.Tags,
	}
	for _, d := range m.Dependencies {
		if err := errors.ValidateModuleID(d.ID); err != nil {
			r.Errors = append(r.Errors, fmt.Sprintf("dependency %q: %s", d.ID, errors.UserMessage(err)))
			continue
		}
		if !semver.ValidRange(d.Version) {
			r.Errors = append(r.Errors, fmt.Sprintf("dependency %s: invalid version range %q", d.ID, d.Version))
			continue
		}
		r.Dependencies = append(r.Dependencies, Dependency{ID: d.ID, Range: d.Version})
	}
	return r, nil
}

// ManifestOf is the inverse of [Manifest.Record]. Local state (Installed,
// Errors, InitializationMode) is not part of a manifest and is dropped.
func ManifestOf(r *Record) Manifest {
	m := Manifest{
		ID:          r.ID,
		Version:     r.Version.String(),
		Title:       r.Title,
		Description: r.Description,
		Authors:     r.Authors,
		PackageURL:  r.PackageURL,
		IconURL:     r.IconURL,
		Tags:        r.Tags,
	}
	for _, d := range r.Dependencies {
		m.Dependencies = append(m.Dependencies, ManifestDependency{ID: d.ID, Version: d.Range})
	}
	return m
}

// DecodeFeed reads a JSON array of manifests and converts each to a record.
// Any invalid manifest fails the whole feed.
func DecodeFeed(r io.Reader) ([]*Record, error) {
	var manifests []Manifest
	if err := json.NewDecoder(r).Decode(&manifests); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "decode manifest feed")
	}
	return RecordsOf(manifests)
}

// RecordsOf converts manifests to records, failing on the first invalid one.
func RecordsOf(manifests []Manifest) ([]*Record, error) {
	records := make([]*Record, 0, len(manifests))
	for i := range manifests {
		rec, err := manifests[i].Record()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "manifest %d", i)
		}
		records = append(records, rec)
	}
	return records, nil
}

// EncodeFeed writes records as a JSON array of manifests.
func EncodeFeed(w io.Writer, records []*Record) error {
	manifests := make([]Manifest, len(records))
	for i, r := range records {
		manifests[i] = ManifestOf(r)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(manifests)
}
