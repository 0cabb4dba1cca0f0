package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackpack/pkg/observability"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
// It is safe for sequential use by a single goroutine; concurrent calls to done will race.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress creates a progress tracker that captures the current time as start.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Composed configuration (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx, or log.Default() when none is attached.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// =============================================================================
// Log Hooks
// =============================================================================

// logHooks reports provisioning and composition events through the logger.
// It is used when stderr is not a terminal.
type logHooks struct {
	logger *log.Logger
}

var (
	_ observability.ProvisionHooks = (*logHooks)(nil)
	_ observability.ComposeHooks   = (*logHooks)(nil)
)

func (h *logHooks) OnProvisionQueued(_ context.Context, op observability.Op, name, version string, pending int) {
	h.logger.Debug("queued", "op", op, "package", name, "version", version, "ahead", pending)
}

func (h *logHooks) OnProvisionStart(_ context.Context, op observability.Op, name, version string) {
	h.logger.Debug("provisioning", "op", op, "package", name, "version", version)
}

func (h *logHooks) OnProvisionComplete(_ context.Context, op observability.Op, name, version string, installed bool, d time.Duration, err error) {
	switch {
	case err != nil:
		h.logger.Error("provisioning failed", "package", name, "version", version, "err", err)
	case installed:
		h.logger.Info("installed", "package", name, "version", version, "duration", d.Round(time.Millisecond))
	default:
		h.logger.Debug("provisioned", "op", op, "package", name, "duration", d.Round(time.Millisecond))
	}
}

func (h *logHooks) OnPackChecked(_ context.Context, pack string, applicable bool, err error) {
	if err != nil {
		return
	}
	h.logger.Debug("pack checked", "pack", pack, "applicable", applicable)
}

func (h *logHooks) OnPackBuilt(_ context.Context, pack string, d time.Duration, err error) {
	if err != nil {
		return
	}
	h.logger.Debug("pack built", "pack", pack, "duration", d.Round(time.Millisecond))
}

func (h *logHooks) OnComposeComplete(context.Context, []string, time.Duration, error) {}
