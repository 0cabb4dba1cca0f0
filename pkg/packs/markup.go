package packs

import (
	"context"

	"github.com/matzehuels/stackpack/pkg/fragment"
)

// Markup tool versions.
var (
	HTMLWebpackPlugin = Tool{"html-webpack-plugin", "3.2.0"}
	InlineChunkHTML   = Tool{"react-dev-utils/InlineChunkHtmlPlugin", "9.0.1"}
	InterpolateHTML   = Tool{"react-dev-utils/InterpolateHtmlPlugin", "9.0.1"}
)

// InlineRuntimePattern selects the chunks inlined into the page in
// production.
const InlineRuntimePattern = `runtime~.+[.]js`

// Markup emits the html page.
type Markup struct{}

func (*Markup) Name() string { return "markup" }

// Check applies when html emission was requested.
func (*Markup) Check(_ context.Context, env *Env) (bool, error) {
	return env.Paths.HTML.Enabled, nil
}

func (m *Markup) Build(ctx context.Context, env *Env) (fragment.Fragment, error) {
	tools := []Tool{HTMLWebpackPlugin, InterpolateHTML}
	if !env.Dev() {
		tools = append(tools, InlineChunkHTML)
	}
	caps, err := use(ctx, env.Provider, tools...)
	if err != nil {
		return fragment.Fragment{}, err
	}
	html := caps[HTMLWebpackPlugin.Name]

	opts := map[string]any{"inject": env.Paths.HTML.Inject}
	if env.Paths.HTML.Template != "" {
		opts["template"] = env.Paths.HTML.Template
	}
	if !env.Dev() {
		opts["minify"] = map[string]any{
			"removeComments":                true,
			"collapseWhitespace":            true,
			"removeRedundantAttributes":     true,
			"useShortDoctype":               true,
			"removeEmptyAttributes":         true,
			"removeStyleLinkTypeAttributes": true,
			"keepClosingSlash":              true,
			"minifyJS":                      true,
			"minifyCSS":                     true,
			"minifyURLs":                    true,
		}
	}

	f := fragment.Fragment{Name: m.Name()}
	f.Plugins = append(f.Plugins, fragment.Plugin{Name: "html", Module: html.Path, Options: opts})
	if !env.Dev() {
		f.Plugins = append(f.Plugins, fragment.Plugin{
			Name:   "inline-chunk-html",
			Module: caps[InlineChunkHTML.Name].Path,
			Options: map[string]any{
				"htmlPlugin": html.Path,
				"tests":      []any{InlineRuntimePattern},
			},
		})
	}
	f.Plugins = append(f.Plugins, fragment.Plugin{
		Name:   "interpolate-html",
		Module: caps[InterpolateHTML.Name].Path,
		Options: map[string]any{
			"htmlPlugin":   html.Path,
			"replacements": envToAny(env.Paths.Environment),
		},
	})
	return f, nil
}

var _ Pack = (*Markup)(nil)
