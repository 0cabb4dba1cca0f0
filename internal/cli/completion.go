package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/stackpack/pkg/explain"
	"github.com/matzehuels/stackpack/pkg/options"
)

// flagValues lists the fixed values offered when completing enumerated flags.
var flagValues = map[string][]string{
	"type":                  {string(options.TypeBrowser), string(options.TypeBrowserLibrary)},
	"mode":                  {string(options.ModeDevelopment), string(options.ModeProduction)},
	"circular-dependencies": {string(options.CircularError), string(options.CircularWarn), string(options.CircularDisable)},
	"format":                {explain.FormatDOT, explain.FormatSVG},
}

// registerCompletions adds value completion to the enumerated flags of cmd and
// file completion to the path flags. The completion command itself is
// provided by cobra.
func registerCompletions(cmd *cobra.Command) {
	for name, values := range flagValues {
		if cmd.Flags().Lookup(name) == nil {
			continue
		}
		_ = cmd.RegisterFlagCompletionFunc(name, cobra.FixedCompletions(values, cobra.ShellCompDirectiveNoFileComp))
	}
	for name, ext := range map[string][]string{
		"tsconfig": {"json"},
		"tslint":   {"json"},
	} {
		if cmd.Flags().Lookup(name) == nil {
			continue
		}
		_ = cmd.MarkFlagFilename(name, ext...)
	}
	for _, name := range []string{"root", "output-path", "static-path", "cache"} {
		switch {
		case cmd.Flags().Lookup(name) != nil:
			_ = cmd.MarkFlagDirname(name)
		case cmd.PersistentFlags().Lookup(name) != nil:
			_ = cmd.MarkPersistentFlagDirname(name)
		}
	}
}
