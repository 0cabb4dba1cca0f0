package observability

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Recorder captures events as short strings. It implements both hook
// interfaces and is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []string
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *Recorder) add(format string, args ...any) {
	r.mu.Lock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
	r.mu.Unlock()
}

func (r *Recorder) OnProvisionQueued(_ context.Context, op Op, name, version string, _ int) {
	r.add("queued %s %s", op, spec(name, version))
}

func (r *Recorder) OnProvisionStart(_ context.Context, op Op, name, version string) {
	r.add("start %s %s", op, spec(name, version))
}

func (r *Recorder) OnProvisionComplete(_ context.Context, op Op, name, version string, installed bool, _ time.Duration, err error) {
	r.add("done %s %s installed=%t err=%v", op, spec(name, version), installed, err != nil)
}

func (r *Recorder) OnPackChecked(_ context.Context, pack string, applicable bool, err error) {
	r.add("check %s applicable=%t err=%v", pack, applicable, err != nil)
}

func (r *Recorder) OnPackBuilt(_ context.Context, pack string, _ time.Duration, err error) {
	r.add("build %s err=%v", pack, err != nil)
}

func (r *Recorder) OnComposeComplete(_ context.Context, sources []string, _ time.Duration, err error) {
	r.add("compose %v err=%v", sources, err != nil)
}

func spec(name, version string) string {
	if version == "" {
		return name
	}
	return name + "@" + version
}

var (
	_ ProvisionHooks = (*Recorder)(nil)
	_ ComposeHooks   = (*Recorder)(nil)
)
