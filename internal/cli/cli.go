// Package cli implements the stackpack command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/stackpack/internal/config"
	"github.com/matzehuels/stackpack/pkg/buildinfo"
	"github.com/matzehuels/stackpack/pkg/compose"
	stackerrors "github.com/matzehuels/stackpack/pkg/errors"
	"github.com/matzehuels/stackpack/pkg/observability"
	"github.com/matzehuels/stackpack/pkg/options"
	"github.com/matzehuels/stackpack/pkg/probe"
	"github.com/matzehuels/stackpack/pkg/provision"
	"github.com/matzehuels/stackpack/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display and completions.
const appName = "stackpack"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Provider replaces the isolated store when set.
	Provider provision.Provider

	// Environ is the inherited process environment. Nil means os.Environ().
	Environ []string

	// Interactive enables the live provisioning display.
	Interactive bool

	configFile string
	verbose    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	c := &CLI{Logger: newLogger(w, level)}
	if f, ok := w.(*os.File); ok {
		c.Interactive = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return c
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Stackpack composes bundler configurations from feature packs",
		Long: `Stackpack reads a project's options, probes the project directory and composes
a complete bundler configuration from a base, the project settings and every
feature pack that applies (markup, style, typescript, vue, offline).

Build tools the project does not declare are installed into an isolated
dependency store so the project's own manifest is never touched.`,
		Version:      buildinfo.Resolved(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			return nil
		},
	}
	root.SetVersionTemplate(buildinfo.Template())

	root.PersistentFlags().BoolVar(&c.verbose, "verbose", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&c.configFile, "config", "c", "", "configuration file (default: ./"+config.FileName+")")

	_ = root.MarkPersistentFlagFilename("config", "toml")

	for _, cmd := range []*cobra.Command{
		c.configCommand(),
		c.explainCommand(),
		c.initCommand(),
		c.cacheCommand(),
	} {
		registerCompletions(cmd)
		root.AddCommand(cmd)
	}

	return root
}

// Execute runs the root command with fang's help and error rendering.
// Errors are printed before they are returned.
func (c *CLI) Execute(ctx context.Context, args []string) error {
	root := c.RootCommand()
	if args != nil {
		root.SetArgs(args)
	}
	return fang.Execute(ctx, root,
		fang.WithVersion(buildinfo.Resolved()),
		fang.WithCommit(buildinfo.Commit),
		fang.WithErrorHandler(errorHandler),
	)
}

// errorHandler prints the error and, for failed installs, the package
// manager's command line and output.
func errorHandler(w io.Writer, styles fang.Styles, err error) {
	fang.DefaultErrorHandler(w, styles, err)
	var pe *stackerrors.ProvisionError
	if errors.As(err, &pe) && pe.Output != "" {
		printDetail(w, "$ %s", pe.Command)
		fmt.Fprintln(w, strings.TrimRight(pe.Output, "\n"))
	}
}

// =============================================================================
// Run Wiring
// =============================================================================

// loadOptions merges the configuration file, environment and flags.
func (c *CLI) loadOptions(ctx context.Context, flags *pflag.FlagSet) (options.BuildOptions, error) {
	loaded, err := config.Load(ctx, config.LoadOptions{File: c.configFile, Flags: flags})
	if err != nil {
		return options.BuildOptions{}, err
	}
	if loaded.Path != "" {
		c.Logger.Debug("loaded configuration", "path", loaded.Path)
	}
	return loaded.Options, nil
}

// newEngine builds the provisioner and engine for one run rooted at opts.Root.
func (c *CLI) newEngine(opts options.BuildOptions, hooks hookSet) (*compose.Engine, error) {
	prober := probe.New(opts.Root)

	provider := c.Provider
	if provider == nil {
		opts = opts.ApplyDefaults()
		s, err := store.New(store.Config{
			CacheDir: opts.Cache,
			Root:     opts.Root,
			Flavor:   store.DetectFlavor(prober),
			Logger:   c.Logger,
		})
		if err != nil {
			return nil, err
		}
		c.Logger.Debug("isolated store", "dir", s.Dir(), "flavor", s.Flavor())
		provider = provision.New(s,
			provision.WithHooks(hooks.provision),
			provision.WithLogger(c.Logger),
		)
	}

	environ := c.Environ
	if environ == nil {
		environ = os.Environ()
	}
	return compose.NewEngine(provider,
		compose.WithProber(prober),
		compose.WithHooks(hooks.compose),
		compose.WithLogger(c.Logger),
		compose.WithEnviron(compose.Environ(environ)),
	), nil
}

// composeRun runs the engine, showing live progress when interactive.
func (c *CLI) composeRun(ctx context.Context, opts options.BuildOptions) (*compose.Result, error) {
	if !c.Interactive {
		hooks := hookSet{
			provision: &logHooks{logger: c.Logger},
			compose:   &logHooks{logger: c.Logger},
		}
		engine, err := c.newEngine(opts, hooks)
		if err != nil {
			return nil, err
		}
		return engine.Compose(ctx, opts)
	}
	return runWithProgress(ctx, c.Logger, func(ctx context.Context, hooks hookSet) (*compose.Result, error) {
		engine, err := c.newEngine(opts, hooks)
		if err != nil {
			return nil, err
		}
		return engine.Compose(ctx, opts)
	})
}

// hookSet pairs the observers handed to the provisioner and the engine.
type hookSet struct {
	provision observability.ProvisionHooks
	compose   observability.ComposeHooks
}
