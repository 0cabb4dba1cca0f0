package manifest

import (
	"context"
	"os"
	"sync"

	"github.com/matzehuels/stackpack/pkg/errors"
	"github.com/matzehuels/stackpack/pkg/probe"
)

// Reader lazily loads the manifest in a project root.
//
// Reader is safe for concurrent use. A successful load (including "absent")
// is cached for the Reader's lifetime; failures are not cached.
type Reader struct {
	prober *probe.Prober

	mu     sync.Mutex
	loaded bool
	m      *Manifest
}

// NewReader creates a Reader over the prober's root.
func NewReader(p *probe.Prober) *Reader {
	return &Reader{prober: p}
}

// Path returns the absolute manifest path, whether or not it exists.
func (r *Reader) Path() string {
	return r.prober.Abs(FileName)
}

// Read returns the parsed manifest, or nil without error when the project
// has no manifest.
func (r *Reader) Read(ctx context.Context) (*Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return r.m, nil
	}

	if _, ok := r.prober.File(FileName); !ok {
		r.loaded = true
		return nil, nil
	}
	data, err := r.prober.ReadFile(FileName)
	if err != nil {
		if os.IsNotExist(err) {
			r.loaded = true
			return nil, nil
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "read %s", r.Path())
	}
	m, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "%s", r.Path())
	}

	r.m, r.loaded = m, true
	return m, nil
}

// HasDependency reports whether the host manifest declares name in any
// dependency group. An absent manifest declares nothing.
func (r *Reader) HasDependency(ctx context.Context, name string) (bool, error) {
	m, err := r.Read(ctx)
	if err != nil {
		return false, err
	}
	return m.HasDependency(name), nil
}

// DependencyVersion returns the first declared version of name.
func (r *Reader) DependencyVersion(ctx context.Context, name string) (string, bool, error) {
	m, err := r.Read(ctx)
	if err != nil {
		return "", false, err
	}
	v, ok := m.DependencyVersion(name)
	return v, ok, nil
}
