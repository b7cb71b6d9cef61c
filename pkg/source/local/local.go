// Package local discovers installed modules from a directory tree.
//
// Each immediate subdirectory of the root that contains a module.toml or
// module.json manifest is one installed module:
//
//	modules/
//	  Acme.Core/module.toml
//	  Acme.Orders/module.json
//
// A subdirectory without a manifest is ignored. A manifest that cannot be
// parsed, or whose id or version is invalid, is skipped with a warning;
// invalid dependency entries are kept as errors on the module's record.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/modcat/pkg/errors"
	"github.com/matzehuels/modcat/pkg/module"
	"github.com/matzehuels/modcat/pkg/source"
)

// Manifest filenames, in lookup order.
const (
	TOMLManifest = "module.toml"
	JSONManifest = "module.json"
)

// Dir is an installed-module source backed by a directory.
type Dir struct {
	root   string
	logger *log.Logger
}

// NewDir returns a source reading modules under root. A nil logger
// discards warnings.
func NewDir(root string, logger *log.Logger) *Dir {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Dir{root: root, logger: logger}
}

// Root returns the directory being scanned.
func (d *Dir) Root() string { return d.root }

// FetchInstalled implements source.Installed. A missing root directory
// means nothing is installed.
func (d *Dir) FetchInstalled(ctx context.Context) ([]*module.Record, error) {
	records, err := d.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return source.MarkInstalled(records), nil
}

// Scan reads every module manifest under the root without marking the
// records installed. The feed server uses it to publish a directory.
func (d *Dir) Scan(ctx context.Context) ([]*module.Record, error) {
	entries, err := os.ReadDir(d.root)
	if os.IsNotExist(err) {
		d.logger.Debug("modules directory does not exist", "dir", d.root)
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInstalledSource, err, "read modules directory %s", d.root)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var records []*module.Record
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(d.root, e.Name())
		path, ok := findManifest(dir)
		if !ok {
			continue
		}
		rec, err := ReadManifest(path)
		if err != nil {
			d.logger.Warn("skipping module", "path", path, "err", err)
			continue
		}
		if rec.HasErrors() {
			d.logger.Warn("module manifest has errors", "module", rec.String(), "errors", rec.Errors)
		}
		records = append(records, rec)
	}

	d.logger.Debug("scanned modules directory", "dir", d.root, "modules", len(records))
	return records, nil
}

func findManifest(dir string) (string, bool) {
	for _, name := range []string{TOMLManifest, JSONManifest} {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}

// ReadManifest parses a module.toml or module.json file into a record.
func ReadManifest(path string) (*module.Record, error) {
	var m module.Manifest
	switch filepath.Ext(path) {
	case ".toml":
		if _, err := toml.DecodeFile(path, &m); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "parse %s", path)
		}
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "parse %s", path)
		}
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported manifest file: %s", filepath.Base(path))
	}

	rec, err := m.Record()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}

var _ source.Installed = (*Dir)(nil)
