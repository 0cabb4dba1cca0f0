package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stackpack/internal/config"
	"github.com/matzehuels/stackpack/pkg/errors"
	"github.com/matzehuels/stackpack/pkg/options"
)

// initCommand creates the init command, which writes a stackpack.toml holding
// every default so it can be edited in place.
func (c *CLI) initCommand() *cobra.Command {
	var (
		force       bool
		projectType string
	)

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a " + config.FileName + " with the default options",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			path := filepath.Join(dir, config.FileName)
			if _, err := os.Stat(path); err == nil && !force {
				return errors.New(errors.ErrCodeInvalidPath, "%s already exists (use --force to overwrite)", path)
			}

			opts := options.BuildOptions{Type: options.ProjectType(projectType)}.ApplyDefaults()
			if err := opts.Validate(); err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := config.Encode(&buf, opts); err != nil {
				return err
			}
			if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}

			w := cmd.ErrOrStderr()
			printSuccess(w, "Created %s", config.FileName)
			printFile(w, path)
			printNextStep(w, "Compose the configuration", appName+" config")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.Flags().StringVar(&projectType, "type", string(options.TypeBrowser), "project type (browser, browserLibrary)")

	return cmd
}
