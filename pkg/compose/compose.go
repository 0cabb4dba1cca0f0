// Package compose assembles the final bundler configuration.
//
// An [Engine] runs one composition: it resolves paths, reads the host
// manifest, asks every feature pack whether it applies, lets the applicable
// packs prepare their fragments concurrently and merges everything in a
// fixed order:
//
//	base (mode-specific) → project → markup → style → typescript → vue → offline
//
// Pack checks run one after another before any pack builds, so a missing
// prerequisite aborts the run before anything is provisioned.
package compose

import (
	"github.com/matzehuels/stackpack/pkg/fragment"
	"github.com/matzehuels/stackpack/pkg/options"
)

// Compose merges the mode's base fragment, the project fragment and the pack
// fragments, in that order. It is pure: equal inputs give equal
// configurations.
func Compose(mode options.Mode, p Project, packs ...fragment.Fragment) fragment.Configuration {
	return fragment.Merge(Fragments(mode, p, packs...)...)
}

// Fragments returns every fragment Compose merges, in merge order.
func Fragments(mode options.Mode, p Project, packs ...fragment.Fragment) []fragment.Fragment {
	p.Options.Mode = mode
	all := make([]fragment.Fragment, 0, len(packs)+2)
	all = append(all, Base(mode, p.Options), ProjectFragment(p))
	return append(all, packs...)
}
