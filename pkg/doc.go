// Package pkg holds the modcat libraries.
//
// # Overview
//
// modcat keeps a catalog of versioned feature modules for a host
// application and answers which module versions must be activated together.
// The libraries are organized as:
//
//  1. [module], [semver] - records, manifests and version ranges
//  2. [catalog], [resolver] - merged catalog snapshots and dependency selection
//  3. [source] - where records come from: local directories, MongoDB, the remote feed
//  4. [cache], [httputil] - feed caching and HTTP with retry
//  5. [feed], [render] - publishing feeds and drawing dependency graphs
//  6. [observability] - hooks for metrics, with a Prometheus implementation
//
// # Architecture
//
// The data flow of a resolution:
//
//	installed modules ─┐
//	                   ├→ [catalog] merge + validate → snapshot
//	remote feed ───────┘                                  ↓
//	                                          [resolver] select versions
//	                                                      ↓
//	                                        ordered module list / graph
//
// # Quick Start
//
//	src := source.Combine(
//	    local.NewDir("/var/lib/app/modules", nil),
//	    remote.New(cache.NewNullCache(), remote.Options{}),
//	)
//	cat := catalog.New(src, catalog.Options{FeedLocation: "https://modules.example.com/modules.json"})
//
//	root, err := cat.Module(ctx, "Acme.Orders", "2.1.0")
//	res, err := cat.DependentModules(ctx, root)
//	for _, r := range res.Ordered() {
//	    fmt.Println(r)
//	}
//
// [module]: github.com/matzehuels/modcat/pkg/module
// [semver]: github.com/matzehuels/modcat/pkg/semver
// [catalog]: github.com/matzehuels/modcat/pkg/catalog
// [resolver]: github.com/matzehuels/modcat/pkg/resolver
// [source]: github.com/matzehuels/modcat/pkg/source
// [cache]: github.com/matzehuels/modcat/pkg/cache
// [httputil]: github.com/matzehuels/modcat/pkg/httputil
// [feed]: github.com/matzehuels/modcat/pkg/feed
// [render]: github.com/matzehuels/modcat/pkg/render
// [observability]: github.com/matzehuels/modcat/pkg/observability
package pkg
