package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stackpack/pkg/probe"
	"github.com/matzehuels/stackpack/pkg/store"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the isolated build-dependency store",
	}

	cmd.PersistentFlags().String("root", "", "project root")
	cmd.PersistentFlags().String("cache", "", "cache directory for build dependencies")

	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheListCommand())
	cmd.AddCommand(c.cacheClearCommand())

	return cmd
}

// openStore opens the store configured for the project, honoring --root,
// --cache and their file and environment equivalents.
func (c *CLI) openStore(cmd *cobra.Command) (*store.Store, error) {
	opts, err := c.loadOptions(cmd.Context(), cmd.Flags())
	if err != nil {
		return nil, err
	}
	opts = opts.ApplyDefaults()
	return store.New(store.Config{
		CacheDir: opts.Cache,
		Root:     opts.Root,
		Flavor:   store.DetectFlavor(probe.New(opts.Root)),
		Logger:   c.Logger,
	})
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the isolated store directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.openStore(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.Dir())
			return nil
		},
	}
}

// cacheListCommand creates the "cache list" subcommand.
func (c *CLI) cacheListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List build tools installed in the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.openStore(cmd)
			if err != nil {
				return err
			}
			records, err := s.Records()
			if err != nil {
				return err
			}
			if len(records) == 0 {
				printInfo(cmd.ErrOrStderr(), "Store is empty")
				printDetail(cmd.ErrOrStderr(), "Directory: %s", s.Dir())
				return nil
			}

			rows := make([][]string, len(records))
			for i, r := range records {
				rows[i] = []string{r.Name, r.Version, r.Path}
			}
			t := table.New().
				Border(lipgloss.RoundedBorder()).
				BorderStyle(tableBorderStyle).
				Headers("Package", "Version", "Path").
				Rows(rows...).
				StyleFunc(func(row, col int) lipgloss.Style {
					switch {
					case row == table.HeaderRow:
						return tableHeaderStyle
					case col == 1:
						return StyleNumber
					case col == 2:
						return StyleDim
					}
					return StyleValue
				})
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every installed build tool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.openStore(cmd)
			if err != nil {
				return err
			}
			records, err := s.Records()
			if err != nil {
				return err
			}
			if len(records) == 0 {
				printInfo(cmd.ErrOrStderr(), "Store is empty")
				return nil
			}
			if err := s.Clear(); err != nil {
				return err
			}
			printSuccess(cmd.ErrOrStderr(), "Removed %d packages", len(records))
			printDetail(cmd.ErrOrStderr(), "Directory: %s", s.Dir())
			return nil
		},
	}
}
