package compose

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/stackpack/pkg/errors"
	"github.com/matzehuels/stackpack/pkg/fragment"
	"github.com/matzehuels/stackpack/pkg/manifest"
	"github.com/matzehuels/stackpack/pkg/observability"
	"github.com/matzehuels/stackpack/pkg/options"
	"github.com/matzehuels/stackpack/pkg/packs"
	"github.com/matzehuels/stackpack/pkg/probe"
	"github.com/matzehuels/stackpack/pkg/provision"
)

// PackStatus describes what one pack did during a run.
type PackStatus struct {
	Name       string        `json:"name"`
	Applicable bool          `json:"applicable"`
	Duration   time.Duration `json:"duration,omitempty"`
}

// Stats holds run timings.
type Stats struct {
	CheckTime time.Duration
	BuildTime time.Duration
	MergeTime time.Duration
}

// Result is the outcome of a composition run.
type Result struct {
	Options  options.BuildOptions
	Paths    *options.Paths
	Manifest *manifest.Manifest
	Packs    []PackStatus
	// Fragments are the merge inputs, None fragments included.
	Fragments     []fragment.Fragment
	Configuration fragment.Configuration
	Stats         Stats
}

// Engine runs compositions. It is safe for concurrent use; each Compose call
// works on its own paths and manifest.
type Engine struct {
	provider provision.Provider
	packs    []packs.Pack
	hooks    observability.ComposeHooks
	logger   *log.Logger
	environ  map[string]string
	prober   *probe.Prober
}

// Option configures an Engine.
type Option func(*Engine)

// WithHooks sets the event hooks.
func WithHooks(h observability.ComposeHooks) Option {
	return func(e *Engine) {
		if h != nil {
			e.hooks = h
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithPacks replaces the default pack list. Order is merge order.
func WithPacks(p ...packs.Pack) Option {
	return func(e *Engine) { e.packs = p }
}

// WithEnviron sets the inherited environment exposed to bundled code.
func WithEnviron(env map[string]string) Option {
	return func(e *Engine) { e.environ = env }
}

// WithProber fixes the prober instead of probing BuildOptions.Root on disk.
func WithProber(p *probe.Prober) Option {
	return func(e *Engine) { e.prober = p }
}

// NewEngine creates an engine that provisions tools through provider.
func NewEngine(provider provision.Provider, opts ...Option) *Engine {
	e := &Engine{
		provider: provider,
		packs:    packs.Default(),
		hooks:    observability.NoopComposeHooks{},
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compose runs one composition. Any pack error aborts the run; no partial
// configuration is returned.
func (e *Engine) Compose(ctx context.Context, opts options.BuildOptions) (res *Result, err error) {
	start := time.Now()
	defer func() {
		var sources []string
		if res != nil {
			sources = res.Configuration.Sources
		}
		e.hooks.OnComposeComplete(ctx, sources, time.Since(start), err)
	}()

	opts = opts.ApplyDefaults()
	prober, err := e.proberFor(opts)
	if err != nil {
		return nil, err
	}
	opts.Root = prober.Root()

	paths, err := options.Resolve(opts, prober)
	if err != nil {
		return nil, err
	}
	m, err := manifest.NewReader(prober).Read(ctx)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("composing", "options", opts.Summary())
	e.logger.Debug("resolved paths", "root", paths.Root, "manifest", paths.Manifest, "tsconfig", paths.TSConfig)

	env := &packs.Env{
		Options:  opts,
		Paths:    paths,
		Manifest: m,
		Prober:   prober,
		Provider: e.provider,
		Logger:   e.logger,
	}
	res = &Result{Options: opts, Paths: paths, Manifest: m, Packs: make([]PackStatus, len(e.packs))}

	checkStart := time.Now()
	if err := e.check(ctx, env, res.Packs); err != nil {
		return nil, err
	}
	res.Stats.CheckTime = time.Since(checkStart)

	buildStart := time.Now()
	fragments, err := e.build(ctx, env, res.Packs)
	if err != nil {
		return nil, err
	}
	res.Stats.BuildTime = time.Since(buildStart)

	mergeStart := time.Now()
	res.Fragments = Fragments(opts.Mode, Project{
		Options:  opts,
		Paths:    paths,
		Manifest: m,
		Environ:  e.environ,
	}, fragments...)
	res.Configuration = fragment.Merge(res.Fragments...)
	res.Stats.MergeTime = time.Since(mergeStart)

	e.logger.Info("composed configuration",
		"mode", opts.Mode,
		"sources", res.Configuration.Sources,
		"overrides", len(res.Configuration.Overrides),
		"duration", time.Since(start))
	return res, nil
}

// check asks every pack, in order, whether it applies.
func (e *Engine) check(ctx context.Context, env *packs.Env, status []PackStatus) error {
	for i, p := range e.packs {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := p.Check(ctx, env)
		e.hooks.OnPackChecked(ctx, p.Name(), ok, err)
		if err != nil {
			return fmt.Errorf("%s pack: %w", p.Name(), err)
		}
		status[i] = PackStatus{Name: p.Name(), Applicable: ok}
		e.logger.Debug("checked pack", "pack", p.Name(), "applicable", ok)
	}
	return nil
}

// build prepares the applicable packs concurrently. Fragments are slotted by
// pack index so merge order never depends on completion order.
func (e *Engine) build(ctx context.Context, env *packs.Env, status []PackStatus) ([]fragment.Fragment, error) {
	fragments := make([]fragment.Fragment, len(e.packs))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range e.packs {
		if !status[i].Applicable {
			fragments[i] = fragment.None(p.Name())
			continue
		}
		g.Go(func() error {
			start := time.Now()
			f, err := p.Build(gctx, env)
			d := time.Since(start)
			e.hooks.OnPackBuilt(gctx, p.Name(), d, err)
			if err != nil {
				return fmt.Errorf("%s pack: %w", p.Name(), err)
			}
			if f.IsNone() {
				return errors.New(errors.ErrCodeInternal, "%s pack returned no fragment after applying", p.Name())
			}
			f.Name = p.Name()
			fragments[i] = f
			status[i].Duration = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fragments, nil
}

func (e *Engine) proberFor(opts options.BuildOptions) (*probe.Prober, error) {
	if e.prober != nil {
		return e.prober, nil
	}
	root := opts.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "working directory")
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "root %s", root)
	}
	return probe.New(abs), nil
}
