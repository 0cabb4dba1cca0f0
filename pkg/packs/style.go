package packs

import (
	"context"

	"github.com/matzehuels/stackpack/pkg/errors"
	"github.com/matzehuels/stackpack/pkg/fragment"
)

// Style tool versions.
var (
	CSSLoader            = Tool{"css-loader", "2.1.1"}
	PostCSSLoader        = Tool{"postcss-loader", "3.0.0"}
	SassLoader           = Tool{"sass-loader", "7.1.0"}
	MiniCSSExtractPlugin = Tool{"mini-css-extract-plugin", "0.5.0"}
	PostCSSFlexbugsFixes = Tool{"postcss-flexbugs-fixes", "4.1.0"}
	PostCSSPresetEnv     = Tool{"postcss-preset-env", "6.6.0"}
	CSSModuleLocalIdent  = Tool{"react-dev-utils/getCSSModuleLocalIdent", "9.0.1"}
)

// Preprocessors are the host dependencies that satisfy the style pack.
var Preprocessors = []string{"sass", "node-sass"}

// Style patterns.
const (
	CSSPattern        = `\.css$`
	CSSModulePattern  = `\.module\.css$`
	SassPattern       = `\.(scss|sass)$`
	SassModulePattern = `\.module\.(scss|sass)$`
)

// Style handles stylesheets. It always applies and requires a CSS
// preprocessor in the host manifest.
type Style struct{}

func (*Style) Name() string { return "style" }

// Check fails with MISSING_PREREQUISITE when no preprocessor is declared.
func (s *Style) Check(_ context.Context, env *Env) (bool, error) {
	for _, name := range Preprocessors {
		if env.Manifest.HasDependency(name) {
			return true, nil
		}
	}
	manifest := env.Paths.Manifest
	if manifest == "" {
		manifest = "package.json (missing)"
	}
	return false, errors.New(errors.ErrCodeMissingPrerequisite,
		"%s pack requires one of %v to be declared in %s", s.Name(), Preprocessors, manifest)
}

func (s *Style) Build(ctx context.Context, env *Env) (fragment.Fragment, error) {
	caps, err := use(ctx, env.Provider,
		MiniCSSExtractPlugin, CSSLoader, PostCSSLoader, SassLoader,
		PostCSSFlexbugsFixes, PostCSSPresetEnv, CSSModuleLocalIdent,
	)
	if err != nil {
		return fragment.Fragment{}, err
	}
	extract := caps[MiniCSSExtractPlugin.Name].Path
	sourceMap := env.Options.SourceMapsEnabled()
	localIdent := caps[CSSModuleLocalIdent.Name].Path

	loaders := func(importLoaders int, modules bool, preprocessor string) []fragment.Loader {
		cssOpts := map[string]any{"importLoaders": importLoaders, "sourceMap": sourceMap}
		if modules {
			cssOpts["modules"] = true
			cssOpts["getLocalIdent"] = localIdent
		}
		chain := []fragment.Loader{
			{Loader: extract + "/dist/loader"},
			{Loader: caps[CSSLoader.Name].Path, Options: cssOpts},
			{Loader: caps[PostCSSLoader.Name].Path, Options: map[string]any{
				"ident": "postcss",
				"plugins": []any{
					map[string]any{"module": caps[PostCSSFlexbugsFixes.Name].Path},
					map[string]any{
						"module": caps[PostCSSPresetEnv.Name].Path,
						"options": map[string]any{
							"autoprefixer": map[string]any{"flexbox": "no-2009"},
							"stage":        3,
						},
					},
				},
				"sourceMap": sourceMap,
			}},
		}
		if preprocessor != "" {
			chain = append(chain, fragment.Loader{Loader: preprocessor, Options: map[string]any{"sourceMap": sourceMap}})
		}
		return chain
	}
	sass := caps[SassLoader.Name].Path

	return fragment.Fragment{
		Name: s.Name(),
		Module: fragment.Module{Rules: []fragment.Rule{
			{Test: []string{CSSPattern}, Exclude: []string{CSSModulePattern}, Use: loaders(1, false, "")},
			{Test: []string{CSSModulePattern}, Use: loaders(1, true, "")},
			{Test: []string{SassPattern}, Exclude: []string{SassModulePattern}, Use: loaders(2, false, sass)},
			{Test: []string{SassModulePattern}, Use: loaders(2, true, sass)},
		}},
		Plugins: []fragment.Plugin{{
			Name:   "mini-css-extract",
			Module: extract,
			Options: map[string]any{
				"filename":      env.Options.OutputCSSFilename,
				"chunkFilename": env.Options.OutputCSSChunkFilename,
			},
		}},
	}, nil
}

var _ Pack = (*Style)(nil)
