package packs

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/ohler55/ojg/sen"

	"github.com/matzehuels/stackpack/pkg/errors"
	"github.com/matzehuels/stackpack/pkg/fragment"
)

// TypeScript tool versions.
var (
	TSLoader            = Tool{"ts-loader", "5.4.4"}
	TSConfigPathsPlugin = Tool{"tsconfig-paths-webpack-plugin", "3.2.0"}
	ForkTSCheckerPlugin = Tool{"fork-ts-checker-webpack-plugin", "1.2.0"}
)

// TypeScriptPattern matches TypeScript sources.
const TypeScriptPattern = `\.(ts|tsx)$`

var (
	tsPathsExpr   = jp.MustParseString("$.compilerOptions.paths")
	tsBaseURLExpr = jp.MustParseString("$.compilerOptions.baseUrl")
)

// TypeScript type-checks and transpiles TypeScript sources.
type TypeScript struct{}

func (*TypeScript) Name() string { return "typescript" }

// Check applies when a tsconfig was found.
func (*TypeScript) Check(_ context.Context, env *Env) (bool, error) {
	return env.Paths.TSConfig != "", nil
}

func (t *TypeScript) Build(ctx context.Context, env *Env) (fragment.Fragment, error) {
	tsconfig := env.Paths.TSConfig
	data, err := env.Prober.ReadFile(tsconfig)
	if err != nil {
		return fragment.Fragment{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", tsconfig)
	}
	aliases, err := TSConfigAliases(data, env.Paths.Root)
	if err != nil {
		return fragment.Fragment{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse %s", tsconfig)
	}

	caps, err := use(ctx, env.Provider, TSLoader, TSConfigPathsPlugin, ForkTSCheckerPlugin)
	if err != nil {
		return fragment.Fragment{}, err
	}
	loader, err := env.Provider.Locate(ctx, TSLoader.Name)
	if err != nil {
		return fragment.Fragment{}, err
	}

	checker := map[string]any{
		"async":    false,
		"tsconfig": tsconfig,
	}
	if env.Paths.TSLint != "" {
		checker["tslint"] = env.Paths.TSLint
	}
	if env.Dev() {
		checker["watch"] = stringsToAny(env.Paths.Sources)
	}

	return fragment.Fragment{
		Name: t.Name(),
		Resolve: fragment.Resolve{
			Aliases: aliases,
			Plugins: []fragment.Plugin{{
				Name:    "tsconfig-paths",
				Module:  caps[TSConfigPathsPlugin.Name].Path,
				Options: map[string]any{"configFile": tsconfig},
			}},
		},
		Module: fragment.Module{Rules: []fragment.Rule{{
			OneOf: []fragment.Rule{{
				Test:    []string{TypeScriptPattern},
				Include: env.Paths.Sources,
				Use: []fragment.Loader{{
					Loader:  loader,
					Options: map[string]any{"configFile": tsconfig, "transpileOnly": true},
				}},
			}},
		}}},
		Plugins: []fragment.Plugin{{
			Name:    "fork-ts-checker",
			Module:  caps[ForkTSCheckerPlugin.Name].Path,
			Options: checker,
		}},
	}, nil
}

// TSConfigAliases derives resolver aliases from compilerOptions.paths. The
// segment of a key before its first "/" becomes the alias; keys without a
// "*" get an exact-match "$" suffix. The first mapped value is resolved
// against root and compilerOptions.baseUrl with any trailing "/*" removed.
// Keys are applied in document order, so when several keys collapse to the
// same alias the last one wins.
func TSConfigAliases(data []byte, root string) (map[string]string, error) {
	doc, err := sen.Parse(data)
	if err != nil {
		return nil, err
	}
	baseURL := "."
	if v, ok := tsBaseURLExpr.First(doc).(string); ok && v != "" {
		baseURL = v
	}
	paths, _ := tsPathsExpr.First(doc).(map[string]any)
	if len(paths) == 0 {
		return map[string]string{}, nil
	}

	keys := &pathKeys{}
	if err := sen.Tokenize(data, keys); err != nil {
		return nil, err
	}

	aliases := make(map[string]string, len(paths))
	for _, key := range keys.keys {
		targets, _ := paths[key].([]any)
		if len(targets) == 0 {
			continue
		}
		target, ok := targets[0].(string)
		if !ok {
			continue
		}
		alias := key
		if i := strings.Index(key, "/"); i >= 0 {
			alias = key[:i]
		}
		if !strings.Contains(key, "*") {
			alias += "$"
		}
		target = strings.TrimSuffix(target, "/*")
		aliases[alias] = filepath.Join(root, baseURL, filepath.FromSlash(target))
	}
	return aliases, nil
}

// pathKeys collects the keys of compilerOptions.paths in document order.
type pathKeys struct {
	oj.ZeroHandler
	stack []string // key that opened each container, "" for the root and array items
	key   string
	keys  []string
}

func (h *pathKeys) open() {
	h.stack = append(h.stack, h.key)
	h.key = ""
}

func (h *pathKeys) close() {
	if len(h.stack) > 0 {
		h.stack = h.stack[:len(h.stack)-1]
	}
	h.key = ""
}

func (h *pathKeys) ObjectStart() { h.open() }
func (h *pathKeys) ObjectEnd() { h.close() }
func (h *pathKeys) ArrayStart() { h.open() }
func (h *pathKeys) ArrayEnd() { h.close() }

func (h *pathKeys) Key(k string) {
	if len(h.stack) == 3 && h.stack[1] == "compilerOptions" && h.stack[2] == "paths" {
		h.keys = append(h.keys, k)
	}
	h.key = k
}

func (h *pathKeys) Null() { h.key = "" }
func (h *pathKeys) Bool(bool) { h.key = "" }
func (h *pathKeys) Int(int64) { h.key = "" }
func (h *pathKeys) Float(float64) { h.key = "" }
func (h *pathKeys) Number(string) { h.key = "" }
func (h *pathKeys) String(string) { h.key = "" }

var _ Pack = (*TypeScript)(nil)
