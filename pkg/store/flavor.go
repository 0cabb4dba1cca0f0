package store

import "github.com/matzehuels/stackpack/pkg/probe"

// Flavor is the package manager used for the inner project.
type Flavor string

const (
	FlavorNPM  Flavor = "npm"
	FlavorYarn Flavor = "yarn"
	FlavorPNPM Flavor = "pnpm"
)

// DetectFlavor picks the package manager the host project already uses,
// judged by its lockfile. npm is the fallback.
func DetectFlavor(p *probe.Prober) Flavor {
	if _, ok := p.File("yarn.lock"); ok {
		return FlavorYarn
	}
	if _, ok := p.File("pnpm-lock.yaml"); ok {
		return FlavorPNPM
	}
	return FlavorNPM
}

// initArgs is the non-interactive project initialization command.
func (f Flavor) initArgs() []string {
	switch f {
	case FlavorYarn:
		return []string{"init", "-y"}
	case FlavorPNPM:
		return []string{"init"}
	default:
		return []string{"init", "-y"}
	}
}

// addArgs installs spec as a dependency of the current project.
func (f Flavor) addArgs(spec string) []string {
	switch f {
	case FlavorYarn, FlavorPNPM:
		return []string{"add", spec}
	default:
		return []string{"install", spec}
	}
}

// Valid reports whether f is a known flavor.
func (f Flavor) Valid() bool {
	switch f {
	case FlavorNPM, FlavorYarn, FlavorPNPM:
		return true
	}
	return false
}
