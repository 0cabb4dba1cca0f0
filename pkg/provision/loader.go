package provision

import (
	"context"

	"github.com/matzehuels/stackpack/pkg/errors"
	"github.com/matzehuels/stackpack/pkg/store"
)

// ManifestLoader loads capabilities from the isolated store. A module loads
// when its entry resolves; its version comes from the install root's
// manifest.
type ManifestLoader struct {
	Store *store.Store
}

// Load implements Loader.
func (l *ManifestLoader) Load(_ context.Context, name string) (Capability, error) {
	entry, ok := l.Store.Entry(name)
	if !ok {
		return Capability{}, errors.New(errors.ErrCodeProvisionFailed,
			"%s is not loadable from %s", name, l.Store.ResolvePath(name))
	}
	rec, ok := l.Store.Record(name)
	if !ok {
		return Capability{}, errors.New(errors.ErrCodeProvisionFailed,
			"%s has no readable manifest", store.InstallName(name))
	}
	return Capability{Name: name, Version: rec.Version, Path: entry}, nil
}

var _ Loader = (*ManifestLoader)(nil)
