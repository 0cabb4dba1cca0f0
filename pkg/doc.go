// Package pkg provides the core libraries for Stackpack bundler configuration
// composition.
//
// # Overview
//
// Stackpack turns a small set of declarative build options into a complete
// bundler configuration. The configuration is assembled from fragments: a
// base for the build mode, the project's own settings and one fragment per
// feature pack that applies to the project. Build tools a pack needs but the
// project does not declare are installed into an isolated dependency store.
//
// # Architecture
//
// The data flow of one composition run:
//
//	BuildOptions (stackpack.toml, STACKPACK_* env, flags)
//	         ↓
//	    [options] package (defaults, validation, absolute paths)
//	         ↓
//	    [probe] + [manifest] packages (project files, package.json)
//	         ↓
//	    [packs] package (check every pack, then build the applicable ones)
//	         ↓                         ↑
//	    [provision] package ── serial queue ──→ [store] package
//	         ↓
//	    [compose] package (base + project + packs, merged in fixed order)
//	         ↓
//	    [fragment.Configuration] → JSON, or [explain] → DOT/SVG
//
// # Main Packages
//
// ## Composition
//
// [compose] - The engine. Checks run sequentially and never provision, so a
// missing prerequisite aborts before anything is installed. Applicable packs
// then build concurrently; their fragments are slotted by pack index so the
// merge order is fixed: base, project, markup, style, typescript, vue, offline.
//
// [fragment] - Partial configurations and the merge rules: lists concatenate,
// scalars take the later set value, keyed maps merge per key. Every
// conflicting value is recorded as an override.
//
// [packs] - The feature packs:
//
//   - markup: html page generation and interpolation
//   - style: stylesheet loaders and extraction (requires a sass preprocessor)
//   - typescript: ts-loader, tsconfig path aliases, type checking
//   - vue: single-file components, with the template compiler pinned to vue
//   - offline: precaching service worker for production builds
//
// ## Inputs
//
// [options] - BuildOptions, defaults and the derived Paths.
//
// [probe] - Presence checks against the project root on a billy filesystem.
//
// [manifest] - Order-preserving package.json reader.
//
// ## Provisioning
//
// [provision] - A single FIFO queue through which every install and lookup
// passes, so at most one package-manager process runs at a time.
//
// [store] - The isolated inner project under the cache directory
// (npm, yarn or pnpm, following the host's lockfile).
//
// ## Support
//
// [errors] - Coded errors (MISSING_PREREQUISITE, PROVISION_FAILED ...).
//
// [observability] - Hooks for provisioning and composition events.
//
// [explain] - Graphviz rendering of how a configuration was composed.
//
// [buildinfo] - Version information injected at build time.
//
// # Quick Start
//
//	s, _ := store.New(store.Config{CacheDir: ".pack", Root: root})
//	engine := compose.NewEngine(provision.New(s))
//	res, err := engine.Compose(ctx, options.BuildOptions{
//	    Type: options.TypeBrowser,
//	    Mode: options.ModeProduction,
//	    Root: root,
//	})
//	if errors.Is(err, errors.ErrCodeMissingPrerequisite) {
//	    // nothing was installed
//	}
//	data, _ := json.MarshalIndent(res.Configuration, "", "  ")
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...               # All tests
//	go test ./pkg/compose/...       # Specific package
//	go test -race ./pkg/provision   # Queue ordering under the race detector
//
// Tests never run a package manager: [provision.Static] stands in for the
// store, and the store's own tests inject a fake command runner.
//
// [compose]: https://pkg.go.dev/github.com/matzehuels/stackpack/pkg/compose
// [fragment]: https://pkg.go.dev/github.com/matzehuels/stackpack/pkg/fragment
// [fragment.Configuration]: https://pkg.go.dev/github.com/matzehuels/stackpack/pkg/fragment#Configuration
// [packs]: https://pkg.go.dev/github.com/matzehuels/stackpack/pkg/packs
// [options]: https://pkg.go.dev/github.com/matzehuels/stackpack/pkg/options
// [probe]: https://pkg.go.dev/github.com/matzehuels/stackpack/pkg/probe
// [manifest]: https://pkg.go.dev/github.com/matzehuels/stackpack/pkg/manifest
// [provision]: https://pkg.go.dev/github.com/matzehuels/stackpack/pkg/provision
// [provision.Static]: https://pkg.go.dev/github.com/matzehuels/stackpack/pkg/provision#Static
// [store]: https://pkg.go.dev/github.com/matzehuels/stackpack/pkg/store
// [errors]: https://pkg.go.dev/github.com/matzehuels/stackpack/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/stackpack/pkg/observability
// [explain]: https://pkg.go.dev/github.com/matzehuels/stackpack/pkg/explain
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/stackpack/pkg/buildinfo
package pkg
