package compose

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/matzehuels/stackpack/pkg/fragment"
	"github.com/matzehuels/stackpack/pkg/manifest"
	"github.com/matzehuels/stackpack/pkg/options"
)

// Project is everything the project fragment is derived from.
type Project struct {
	Options  options.BuildOptions
	Paths    *options.Paths
	Manifest *manifest.Manifest
	// Environ is the inherited process environment. Paths.Environment is
	// layered over it.
	Environ map[string]string
}

// Resolver extensions, in lookup order.
var Extensions = []string{".web.ts", ".ts", ".web.tsx", ".tsx", ".web.js", ".js", ".json", ".web.jsx", ".jsx"}

// Regular expressions used by the core rules.
const (
	LintPattern       = `\.(js|ts)x?$`
	SourceMapPattern  = `\.(js|jsx|mjs)$`
	MJSPattern        = `\.mjs$`
	SourceJSPattern   = `\.(jsx?)$`
	ExternalJSPattern = `\.js$`
	BabelRuntime      = `@babel(?:\/|\\{1,2})runtime`
	FileLoaderExclude = `\.(tsx?|jsx?|json|html)$`
)

// ImagePatterns are inlined below the url-loader size limit.
var ImagePatterns = []string{`\.bmp$`, `\.gif$`, `\.jpe?g$`, `\.png$`}

// URLLoaderLimit is the largest asset, in bytes, inlined as a data URL.
const URLLoaderLimit = 10000

// NodeEmpties are node core modules replaced by empty objects in browser
// bundles.
var NodeEmpties = []string{"child_process", "dgram", "fs", "net", "tls"}

// ProjectFragment derives the project's own fragment: entries, output,
// resolver and optimizer bases, the core rules and the core plugins.
func ProjectFragment(p Project) fragment.Fragment {
	opts, paths := p.Options, p.Paths
	browser := !opts.Library()

	f := fragment.Fragment{
		Name:        "project",
		Performance: fragment.Bool(false),
		Output: fragment.Output{
			Path:          paths.Output,
			PublicPath:    opts.PublicPath,
			Filename:      opts.OutputFilename,
			ChunkFilename: opts.OutputChunkFilename,
		},
		Optimization: fragment.Optimization{
			RuntimeChunk: fragment.Bool(browser),
		},
		Resolve: fragment.Resolve{
			Plugins: []fragment.Plugin{{
				Name:   "module-scope",
				Module: "react-dev-utils/ModuleScopePlugin",
				Options: map[string]any{
					"appSrc":       stringsToAny(paths.Sources),
					"allowedFiles": []any{filepath.Join(paths.Root, manifest.FileName)},
				},
			}},
			Symlinks:   fragment.Bool(false),
			Modules:    append([]string{"node_modules"}, nodePath(paths.Root, p.Environ)...),
			Extensions: append([]string(nil), Extensions...),
			Aliases:    aliases(opts.Aliases),
		},
		Module: fragment.Module{
			StrictExportPresence: fragment.Bool(true),
			Rules:                coreRules(p),
		},
		Plugins: corePlugins(p),
		Node:    make(map[string]string, len(NodeEmpties)),
	}

	for _, e := range paths.Entries {
		f.Entries = append(f.Entries, fragment.Entry{Name: options.EntryName(e), Import: []string{e}})
	}
	if browser {
		f.Optimization.SplitChunks = map[string]any{"chunks": "all", "name": false}
	} else {
		f.Output.Library = fragment.String("")
		f.Output.LibraryTarget = "commonjs"
		f.Externals = p.Manifest.PeerDependencyNames()
	}
	for _, name := range NodeEmpties {
		f.Node[name] = "empty"
	}
	return f
}

// HasESLintConfig reports whether the project configures eslint, either in a
// standalone file or under the manifest's eslintConfig field.
func HasESLintConfig(paths *options.Paths, m *manifest.Manifest) bool {
	return paths.ESLint != "" || m.HasField("eslintConfig")
}

func coreRules(p Project) []fragment.Rule {
	opts, paths := p.Options, p.Paths
	primary := includeOf(paths.PrimarySource())
	thread := fragment.Loader{Loader: "thread-loader"}
	if opts.Dev() {
		thread.Options = map[string]any{"poolTimeout": "Infinity"}
	}

	rules := []fragment.Rule{{Parser: map[string]any{"requireEnsure": false}}}
	if HasESLintConfig(paths, p.Manifest) {
		rules = append(rules, fragment.Rule{
			Test:    []string{LintPattern},
			Enforce: "pre",
			Include: primary,
			Use: []fragment.Loader{{
				Loader: "eslint-loader",
				Options: map[string]any{
					"formatter":  "react-dev-utils/eslintFormatter",
					"eslintPath": "eslint",
				},
			}},
		})
	}
	rules = append(rules,
		fragment.Rule{
			Test:    []string{SourceMapPattern},
			Enforce: "pre",
			Include: primary,
			Use:     []fragment.Loader{{Loader: "source-map-loader"}},
		},
		fragment.Rule{
			Test:    []string{MJSPattern},
			Include: []string{"node_modules"},
			Type:    "javascript/auto",
		},
		fragment.Rule{OneOf: []fragment.Rule{
			{
				Test: append([]string(nil), ImagePatterns...),
				Use: []fragment.Loader{{
					Loader:  "url-loader",
					Options: map[string]any{"limit": URLLoaderLimit, "name": opts.OutputAssetFilename},
				}},
			},
			{
				Test:    []string{SourceJSPattern},
				Include: paths.Sources,
				Use: []fragment.Loader{thread, {
					Loader: "babel-loader",
					Options: map[string]any{
						"customize": "babel-preset-react-app/webpack-overrides",
						"plugins": []any{[]any{
							"babel-plugin-named-asset-import",
							map[string]any{"loaderMap": map[string]any{
								"svg": map[string]any{"ReactComponent": "@svgr/webpack?-prettier,-svgo![path]"},
							}},
						}},
						"cacheDirectory":   true,
						"cacheCompression": false,
						"compact":          !opts.Dev(),
					},
				}},
			},
			{
				Test:    []string{ExternalJSPattern},
				Exclude: []string{BabelRuntime},
				Use: []fragment.Loader{thread, {
					Loader: "babel-loader",
					Options: map[string]any{
						"babelrc":          false,
						"configFile":       false,
						"compact":          false,
						"presets":          []any{[]any{"babel-preset-react-app/dependencies", map[string]any{"helpers": true}}},
						"cacheDirectory":   true,
						"cacheCompression": false,
						"sourceMaps":       false,
					},
				}},
			},
			{
				Exclude: []string{FileLoaderExclude},
				Use: []fragment.Loader{{
					Loader:  "file-loader",
					Options: map[string]any{"name": opts.OutputAssetFilename},
				}},
			},
		}},
	)
	return rules
}

func corePlugins(p Project) []fragment.Plugin {
	opts, paths := p.Options, p.Paths
	var plugins []fragment.Plugin

	if policy := opts.CircularDependencies; policy != "" && policy != options.CircularDisable {
		plugins = append(plugins, fragment.Plugin{
			Name:   "circular-dependency",
			Module: "circular-dependency-plugin",
			Options: map[string]any{
				"exclude":          "node_modules",
				"failOnError":      policy == options.CircularError,
				"allowAsyncCycles": false,
				"cwd":              paths.Root,
			},
		})
	}
	plugins = append(plugins, fragment.Plugin{
		Name:    "define",
		Module:  "webpack/DefinePlugin",
		Options: map[string]any{"process.env": DefineEnvironment(p.Environ, paths.Environment)},
	})
	if opts.Dev() {
		plugins = append(plugins,
			fragment.Plugin{Name: "hot-module-replacement", Module: "webpack/HotModuleReplacementPlugin"},
			fragment.Plugin{Name: "case-sensitive-paths", Module: "case-sensitive-paths-webpack-plugin"},
			fragment.Plugin{
				Name:    "watch-missing-node-modules",
				Module:  "react-dev-utils/WatchMissingNodeModulesPlugin",
				Options: map[string]any{"nodeModulesPath": filepath.Join(paths.Root, "node_modules")},
			},
		)
	}
	plugins = append(plugins,
		fragment.Plugin{
			Name:    "ignore-moment-locales",
			Module:  "webpack/IgnorePlugin",
			Options: map[string]any{"resourceRegExp": `^\./locale$`, "contextRegExp": `moment$`},
		},
		fragment.Plugin{
			Name:    "asset-manifest",
			Module:  "webpack-manifest-plugin",
			Options: map[string]any{"fileName": "asset-manifest.json", "publicPath": opts.PublicPath},
		},
	)
	return plugins
}

// DefineEnvironment merges the layers left to right and JSON-encodes every
// value, the form substituted into bundled code.
func DefineEnvironment(layers ...map[string]string) map[string]any {
	merged := make(map[string]string)
	for _, layer := range layers {
		for k, v := range layer {
			merged[k] = v
		}
	}
	out := make(map[string]any, len(merged))
	for k, v := range merged {
		encoded, _ := json.Marshal(v)
		out[k] = string(encoded)
	}
	return out
}

// nodePath returns the relative NODE_PATH entries resolved against root.
func nodePath(root string, environ map[string]string) []string {
	var out []string
	for _, dir := range filepath.SplitList(environ["NODE_PATH"]) {
		if dir == "" || filepath.IsAbs(dir) {
			continue
		}
		out = append(out, filepath.Join(root, dir))
	}
	return out
}

func aliases(user map[string]string) map[string]string {
	out := map[string]string{"react-native": "react-native-web"}
	for k, v := range user {
		out[k] = v
	}
	return out
}

// Environ converts KEY=VALUE pairs, as returned by os.Environ, into a map.
func Environ(pairs []string) map[string]string {
	out := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			out[k] = v
		}
	}
	return out
}

func includeOf(dir string) []string {
	if dir == "" {
		return nil
	}
	return []string{dir}
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
