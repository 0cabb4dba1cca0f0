package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stackpack/internal/config"
	"github.com/matzehuels/stackpack/pkg/compose"
	"github.com/matzehuels/stackpack/pkg/errors"
	"github.com/matzehuels/stackpack/pkg/probe"
)

// configOpts holds the config command's own flags.
type configOpts struct {
	output       string
	query        string
	checkEntries bool
	summary      bool
}

// configCommand creates the config command, which composes the final
// configuration and prints it as JSON.
func (c *CLI) configCommand() *cobra.Command {
	var opts configOpts

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Compose the bundler configuration and print it as JSON",
		Long: `Compose the bundler configuration for the project and print it as JSON.

Options are read from stackpack.toml, then STACKPACK_* environment variables,
then flags. Build tools the project lacks are installed into the isolated
store under the cache directory before the configuration is printed.`,
		Example: `  # Development configuration for the current directory
  stackpack config

  # Production library build, written to a file
  stackpack config --mode production --type browserLibrary -o webpack.json

  # Only the resolved aliases
  stackpack config --query '$.resolve.alias'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runConfig(cmd, opts)
		},
	}

	config.AddFlags(cmd.Flags())
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the configuration to a file instead of stdout")
	cmd.Flags().StringVarP(&opts.query, "query", "q", "", "print only the values matching a JSONPath expression")
	cmd.Flags().BoolVar(&opts.checkEntries, "check-entries", false, "fail when an entry file does not exist")
	cmd.Flags().BoolVar(&opts.summary, "summary", false, "print which packs applied to stderr")

	return cmd
}

func (c *CLI) runConfig(cmd *cobra.Command, opts configOpts) error {
	ctx := withLogger(cmd.Context(), c.Logger)
	logger := loggerFromContext(ctx)

	buildOpts, err := c.loadOptions(ctx, cmd.Flags())
	if err != nil {
		return err
	}

	prog := newProgress(logger)
	res, err := c.composeRun(ctx, buildOpts)
	if err != nil {
		return err
	}
	prog.done("Composed configuration")

	if opts.checkEntries {
		if missing := res.Paths.MissingEntries(probe.New(res.Paths.Root)); len(missing) > 0 {
			return errors.New(errors.ErrCodeFileNotFound, "missing entry files: %s", strings.Join(missing, ", "))
		}
	}

	data, err := encodeConfiguration(res, opts.query)
	if err != nil {
		return err
	}

	if opts.summary {
		printSummary(cmd.ErrOrStderr(), res)
	}

	if opts.output == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	printSuccess(cmd.ErrOrStderr(), "Wrote configuration")
	printFile(cmd.ErrOrStderr(), opts.output)
	return nil
}

// encodeConfiguration renders the configuration as indented JSON. With a
// query, only the matching values are rendered, one document per line.
func encodeConfiguration(res *compose.Result, query string) ([]byte, error) {
	data, err := json.MarshalIndent(res.Configuration, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode configuration")
	}
	if query == "" {
		return append(data, '\n'), nil
	}

	expr, err := jp.ParseString(query)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidOptions, err, "query %q", query)
	}
	doc, err := oj.Parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "decode configuration")
	}

	var b strings.Builder
	for _, v := range expr.Get(doc) {
		b.WriteString(oj.JSON(v, &oj.Options{Indent: 2, Sort: true}))
		b.WriteByte('\n')
	}
	return []byte(b.String()), nil
}

// printSummary lists every pack with whether it applied.
func printSummary(w io.Writer, res *compose.Result) {
	names := make([]string, len(res.Packs))
	applied := make([]bool, len(res.Packs))
	for i, p := range res.Packs {
		names[i] = p.Name
		applied[i] = p.Applicable
	}
	printKeyValue(w, "Mode", string(res.Options.Mode))
	printKeyValue(w, "Root", res.Paths.Root)
	printPacks(w, names, applied)
	for _, o := range res.Configuration.Overrides {
		printWarning(w, "%s overrides %s from %s", o.To, o.Slot, o.From)
	}
}
