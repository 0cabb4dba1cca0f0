package compose

import (
	"github.com/matzehuels/stackpack/pkg/fragment"
	"github.com/matzehuels/stackpack/pkg/options"
)

// Module names of the bundler's own tooling. These ship with stackpack's
// runtime and are referenced by name, never provisioned.
const (
	HotDevClient = "react-dev-utils/webpackHotDevClient"
	TerserPlugin = "terser-webpack-plugin"
)

// Devtool module filename templates.
const (
	AbsoluteModuleTemplate = "[absolute-resource-path]"
	RelativeModuleTemplate = "[resource-path]"
)

// Base returns the mode-specific starting fragment.
func Base(mode options.Mode, opts options.BuildOptions) fragment.Fragment {
	if mode == options.ModeDevelopment {
		return developmentBase(opts)
	}
	return productionBase(opts)
}

func developmentBase(opts options.BuildOptions) fragment.Fragment {
	browser := !opts.Library()
	f := fragment.Fragment{
		Name:    "base",
		Mode:    string(options.ModeDevelopment),
		Devtool: "cheap-module-source-map",
		Output: fragment.Output{
			Pathinfo:                      fragment.Bool(true),
			Filename:                      "[name].js",
			DevtoolModuleFilenameTemplate: AbsoluteModuleTemplate,
		},
	}
	if browser {
		f.Entries = []fragment.Entry{{Name: "whd", Import: []string{HotDevClient}}}
		f.Output.Filename = "static/js/[name].js"
		f.Output.ChunkFilename = "static/js/[name].chunk.js"
	}
	return f
}

func productionBase(opts options.BuildOptions) fragment.Fragment {
	sourceMaps := opts.SourceMapsEnabled()
	f := fragment.Fragment{
		Name: "base",
		Mode: string(options.ModeProduction),
		Bail: fragment.Bool(true),
		Output: fragment.Output{
			Filename:                      "[name].js",
			DevtoolModuleFilenameTemplate: RelativeModuleTemplate,
		},
		Optimization: fragment.Optimization{
			Minimizers: []fragment.Plugin{{
				Name:   "terser",
				Module: TerserPlugin,
				Options: map[string]any{
					"terserOptions": map[string]any{
						"parse":    map[string]any{"ecma": 8},
						"compress": map[string]any{"ecma": 5, "warnings": false, "comparisons": false},
						"mangle":   map[string]any{"safari10": true},
						"output":   map[string]any{"ecma": 5, "comments": false, "ascii_only": true},
					},
					"parallel":  true,
					"cache":     true,
					"sourceMap": sourceMaps,
				},
			}},
			ModuleIDs: "hashed",
		},
	}
	if sourceMaps {
		f.Devtool = "source-map"
	}
	if !opts.Library() {
		f.Output.Filename = "static/js/[name].[chunkhash:8].js"
		f.Output.ChunkFilename = "static/js/[name].[chunkhash:8].chunk.js"
	}
	return f
}
