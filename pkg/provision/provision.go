// Package provision makes build tools available to feature packs.
//
// Every request, from any goroutine, goes through one [Queue], so at most one
// package-manager process runs at a time and requests are served in the
// order they were made. A pack asks for a tool with [Provider.Use] (install
// if missing, then load) or [Provider.Locate] (only make sure the isolated
// project exists, then return where the tool lives).
package provision

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackpack/pkg/errors"
	"github.com/matzehuels/stackpack/pkg/observability"
	"github.com/matzehuels/stackpack/pkg/store"
)

// Capability is a loaded build tool. Packs reference it by Path in the
// configuration they emit.
type Capability struct {
	Name      string `json:"name"`    // requested module path, e.g. "vue-loader/lib/plugin"
	Version   string `json:"version"` // installed version from the package's own manifest
	Path      string `json:"path"`    // absolute module entry
	Installed bool   `json:"-"`       // true when this request ran an install
}

// Provider hands out build tools.
type Provider interface {
	// Use installs name@version into the isolated store when its install
	// root is missing, then loads it.
	Use(ctx context.Context, name, version string) (Capability, error)

	// Locate ensures the isolated project exists and returns name's path
	// under it, installed or not.
	Locate(ctx context.Context, name string) (string, error)
}

// Installer is the part of the isolated store the provisioner drives.
type Installer interface {
	EnsureProject(ctx context.Context) error
	Install(ctx context.Context, name, version string) (bool, error)
	ResolvePath(name string) string
}

// Loader turns an installed module path into a Capability.
type Loader interface {
	Load(ctx context.Context, name string) (Capability, error)
}

// Provisioner is the production Provider.
type Provisioner struct {
	installer Installer
	loader    Loader
	queue     *Queue
	hooks     observability.ProvisionHooks
	logger    *log.Logger
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithHooks sets the event hooks.
func WithHooks(h observability.ProvisionHooks) Option {
	return func(p *Provisioner) {
		if h != nil {
			p.hooks = h
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Provisioner) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithLoader replaces the ManifestLoader.
func WithLoader(l Loader) Option {
	return func(p *Provisioner) { p.loader = l }
}

// New creates a Provisioner over an isolated store.
func New(s *store.Store, opts ...Option) *Provisioner {
	return NewWithInstaller(s, &ManifestLoader{Store: s}, opts...)
}

// NewWithInstaller creates a Provisioner over any Installer and Loader.
func NewWithInstaller(inst Installer, loader Loader, opts ...Option) *Provisioner {
	p := &Provisioner{
		installer: inst,
		loader:    loader,
		queue:     NewQueue(),
		hooks:     observability.NoopProvisionHooks{},
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Use implements Provider.
func (p *Provisioner) Use(ctx context.Context, name, version string) (Capability, error) {
	if err := errors.ValidateNpmPackageName(name); err != nil {
		return Capability{}, errors.Wrap(errors.ErrCodeInvalidPackage, err, "use %s", name)
	}

	var installed bool
	err := p.enqueue(ctx, observability.OpUse, name, version, func(ctx context.Context) (bool, error) {
		var err error
		installed, err = p.installer.Install(ctx, name, version)
		return installed, err
	})
	if err != nil {
		return Capability{}, err
	}

	c, err := p.loader.Load(ctx, name)
	if err != nil {
		return Capability{}, err
	}
	c.Installed = installed
	p.logger.Debug("using build dependency", "package", name, "version", c.Version, "path", c.Path)
	return c, nil
}

// Locate implements Provider.
func (p *Provisioner) Locate(ctx context.Context, name string) (string, error) {
	if err := errors.ValidateNpmPackageName(name); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPackage, err, "locate %s", name)
	}
	err := p.enqueue(ctx, observability.OpLocate, name, "", func(ctx context.Context) (bool, error) {
		return false, p.installer.EnsureProject(ctx)
	})
	if err != nil {
		return "", err
	}
	return p.installer.ResolvePath(name), nil
}

func (p *Provisioner) enqueue(ctx context.Context, op observability.Op, name, version string, fn func(context.Context) (bool, error)) error {
	p.hooks.OnProvisionQueued(ctx, op, name, version, p.queue.Len())
	ticket := p.queue.Submit(ctx, func(ctx context.Context) error {
		p.hooks.OnProvisionStart(ctx, op, name, version)
		start := time.Now()
		installed, err := fn(ctx)
		p.hooks.OnProvisionComplete(ctx, op, name, version, installed, time.Since(start), err)
		return err
	})
	if err := ticket.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return err
		}
		if errors.GetCode(err) == "" {
			return errors.Wrap(errors.ErrCodeProvisionFailed, err, "%s %s", op, name)
		}
		return err
	}
	return nil
}

var _ Provider = (*Provisioner)(nil)
