// Package packs contains the feature packs: self-contained units that each
// decide whether one build concern applies to the host project and, if so,
// contribute a configuration fragment for it.
//
// Packs run in two phases. [Pack.Check] only inspects the environment (files,
// manifest, options) and must not provision anything; it returns a
// MISSING_PREREQUISITE error when a hard prerequisite is absent. [Pack.Build]
// runs only for applicable packs, may request tooling from the provider, and
// may run concurrently with other packs' Build calls.
package packs

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackpack/pkg/fragment"
	"github.com/matzehuels/stackpack/pkg/manifest"
	"github.com/matzehuels/stackpack/pkg/options"
	"github.com/matzehuels/stackpack/pkg/probe"
	"github.com/matzehuels/stackpack/pkg/provision"
)

// Env is everything a pack may observe. It is shared read-only between
// packs during one run.
type Env struct {
	Options  options.BuildOptions
	Paths    *options.Paths
	Manifest *manifest.Manifest // nil when the project has no manifest
	Prober   *probe.Prober
	Provider provision.Provider
	Logger   *log.Logger
}

// Dev reports whether the run is in development mode.
func (e *Env) Dev() bool { return e.Options.Dev() }

// Pack is one feature pack.
type Pack interface {
	// Name identifies the pack in fragments, logs and errors.
	Name() string
	// Check reports whether the pack applies. It never provisions.
	Check(ctx context.Context, env *Env) (bool, error)
	// Build produces the pack's fragment. Only called when Check returned true.
	Build(ctx context.Context, env *Env) (fragment.Fragment, error)
}

// Default returns the built-in packs in composition order.
func Default() []Pack {
	return []Pack{
		&Markup{},
		&Style{},
		&TypeScript{},
		&Vue{},
		&Offline{},
	}
}

// Tool is a pinned build dependency.
type Tool struct {
	Name    string
	Version string
}

// use provisions each tool in order and returns their capabilities keyed by
// name.
func use(ctx context.Context, p provision.Provider, tools ...Tool) (map[string]provision.Capability, error) {
	caps := make(map[string]provision.Capability, len(tools))
	for _, t := range tools {
		c, err := p.Use(ctx, t.Name, t.Version)
		if err != nil {
			return nil, err
		}
		caps[t.Name] = c
	}
	return caps, nil
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func envToAny(env map[string]string) map[string]any {
	out := make(map[string]any, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}
