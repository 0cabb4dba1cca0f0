// Package observability provides hooks for provisioning and composition
// events.
//
// Hooks let callers watch a run without the core packages depending on any
// particular output: the CLI drives its progress display from them, tests
// record them, and everything else gets the no-op defaults.
//
// # Usage
//
// Hooks are handed to the component that emits them:
//
//	p := provision.New(store, provision.WithHooks(progress))
//	e := compose.NewEngine(p, compose.WithHooks(progress))
//
// Emitters call them around each unit of work:
//
//	hooks.OnProvisionStart(ctx, op, name, version)
//	// ... install ...
//	hooks.OnProvisionComplete(ctx, op, name, version, installed, time.Since(start), err)
package observability

import (
	"context"
	"time"
)

// Op identifies a provisioning operation.
type Op string

const (
	OpUse    Op = "use"
	OpLocate Op = "locate"
)

// =============================================================================
// Provision Hooks
// =============================================================================

// ProvisionHooks receives events from the dependency provisioner. Events for
// one request arrive in order Queued, Start, Complete; Start/Complete pairs
// never interleave across requests.
type ProvisionHooks interface {
	// OnProvisionQueued records a request entering the serial queue. pending
	// counts the tasks ahead of it.
	OnProvisionQueued(ctx context.Context, op Op, name, version string, pending int)

	// OnProvisionStart records the queue picking up a request.
	OnProvisionStart(ctx context.Context, op Op, name, version string)

	// OnProvisionComplete records a finished request. installed is true only
	// when the package manager actually ran an install.
	OnProvisionComplete(ctx context.Context, op Op, name, version string, installed bool, duration time.Duration, err error)
}

// =============================================================================
// Compose Hooks
// =============================================================================

// ComposeHooks receives events from the composition engine.
type ComposeHooks interface {
	// OnPackChecked records the outcome of a pack's applicability check.
	OnPackChecked(ctx context.Context, pack string, applicable bool, err error)

	// OnPackBuilt records a pack's fragment preparation.
	OnPackBuilt(ctx context.Context, pack string, duration time.Duration, err error)

	// OnComposeComplete records the end of a run.
	OnComposeComplete(ctx context.Context, sources []string, duration time.Duration, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopProvisionHooks is a no-op implementation of ProvisionHooks.
type NoopProvisionHooks struct{}

func (NoopProvisionHooks) OnProvisionQueued(context.Context, Op, string, string, int) {}
func (NoopProvisionHooks) OnProvisionStart(context.Context, Op, string, string)       {}
func (NoopProvisionHooks) OnProvisionComplete(context.Context, Op, string, string, bool, time.Duration, error) {
}

// NoopComposeHooks is a no-op implementation of ComposeHooks.
type NoopComposeHooks struct{}

func (NoopComposeHooks) OnPackChecked(context.Context, string, bool, error)                {}
func (NoopComposeHooks) OnPackBuilt(context.Context, string, time.Duration, error)         {}
func (NoopComposeHooks) OnComposeComplete(context.Context, []string, time.Duration, error) {}

var (
	_ ProvisionHooks = NoopProvisionHooks{}
	_ ComposeHooks   = NoopComposeHooks{}
)

// =============================================================================
// Fan-out
// =============================================================================

// MultiProvisionHooks forwards every event to each non-nil hook in order.
type MultiProvisionHooks []ProvisionHooks

func (m MultiProvisionHooks) OnProvisionQueued(ctx context.Context, op Op, name, version string, pending int) {
	for _, h := range m {
		if h != nil {
			h.OnProvisionQueued(ctx, op, name, version, pending)
		}
	}
}

func (m MultiProvisionHooks) OnProvisionStart(ctx context.Context, op Op, name, version string) {
	for _, h := range m {
		if h != nil {
			h.OnProvisionStart(ctx, op, name, version)
		}
	}
}

func (m MultiProvisionHooks) OnProvisionComplete(ctx context.Context, op Op, name, version string, installed bool, d time.Duration, err error) {
	for _, h := range m {
		if h != nil {
			h.OnProvisionComplete(ctx, op, name, version, installed, d, err)
		}
	}
}

// MultiComposeHooks forwards every event to each non-nil hook in order.
type MultiComposeHooks []ComposeHooks

func (m MultiComposeHooks) OnPackChecked(ctx context.Context, pack string, applicable bool, err error) {
	for _, h := range m {
		if h != nil {
			h.OnPackChecked(ctx, pack, applicable, err)
		}
	}
}

func (m MultiComposeHooks) OnPackBuilt(ctx context.Context, pack string, d time.Duration, err error) {
	for _, h := range m {
		if h != nil {
			h.OnPackBuilt(ctx, pack, d, err)
		}
	}
}

func (m MultiComposeHooks) OnComposeComplete(ctx context.Context, sources []string, d time.Duration, err error) {
	for _, h := range m {
		if h != nil {
			h.OnComposeComplete(ctx, sources, d, err)
		}
	}
}
