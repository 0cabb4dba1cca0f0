package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stackpack/internal/config"
	"github.com/matzehuels/stackpack/pkg/explain"
)

// explainOpts holds the explain command's own flags.
type explainOpts struct {
	format   string
	output   string
	detailed bool
}

// explainCommand creates the explain command, which draws the composition
// as a graph of fragments and overrides.
func (c *CLI) explainCommand() *cobra.Command {
	var opts explainOpts

	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Show how the configuration was composed",
		Long: `Compose the configuration and draw which fragments contributed to it.

Each fragment (base, project and the feature packs) is a node; packs that did
not apply are dashed. Red edges mark values a later fragment replaced.`,
		Example: `  # Graphviz source on stdout
  stackpack explain

  # Rendered SVG including plugin names
  stackpack explain --format svg --detailed -o composition.svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExplain(cmd, opts)
		},
	}

	config.AddFlags(cmd.Flags())
	cmd.Flags().StringVarP(&opts.format, "format", "f", explain.FormatDOT, "output format (dot, svg)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write to a file instead of stdout")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "list plugin names in each fragment")

	return cmd
}

func (c *CLI) runExplain(cmd *cobra.Command, opts explainOpts) error {
	ctx := withLogger(cmd.Context(), c.Logger)

	buildOpts, err := c.loadOptions(ctx, cmd.Flags())
	if err != nil {
		return err
	}
	res, err := c.composeRun(ctx, buildOpts)
	if err != nil {
		return err
	}

	var spinner *Spinner
	if c.Interactive && opts.format == explain.FormatSVG {
		spinner = newSpinnerWithContext(ctx, cmd.ErrOrStderr(), "Rendering SVG...")
		spinner.Start()
	}
	data, err := explain.Render(ctx, res, opts.format, explain.Options{Detailed: opts.detailed})
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return err
	}

	if opts.output == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	printSuccess(cmd.ErrOrStderr(), "Rendered %s", opts.format)
	printFile(cmd.ErrOrStderr(), opts.output)
	return nil
}
