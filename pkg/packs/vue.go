package packs

import (
	"context"

	"github.com/matzehuels/stackpack/pkg/fragment"
)

// Vue tool versions. The template compiler is pinned to the host's vue
// version at build time.
var (
	VueLoaderPlugin = Tool{"vue-loader/lib/plugin", "15.7.0"}
	VueStyleLoader  = Tool{"vue-style-loader", "4.1.2"}
)

const (
	vueFramework        = "vue"
	vueTemplateCompiler = "vue-template-compiler"
	vueLoader           = "vue-loader"
)

// Vue compiles single-file components when the host depends on vue.
type Vue struct{}

func (*Vue) Name() string { return "vue" }

// Check applies when the host manifest declares vue.
func (*Vue) Check(_ context.Context, env *Env) (bool, error) {
	return env.Manifest.HasDependency(vueFramework), nil
}

func (v *Vue) Build(ctx context.Context, env *Env) (fragment.Fragment, error) {
	version, _ := env.Manifest.DependencyVersion(vueFramework)
	caps, err := use(ctx, env.Provider,
		VueLoaderPlugin,
		VueStyleLoader,
		Tool{vueTemplateCompiler, version},
	)
	if err != nil {
		return fragment.Fragment{}, err
	}
	loader, err := env.Provider.Locate(ctx, vueLoader)
	if err != nil {
		return fragment.Fragment{}, err
	}
	styleLoader, err := env.Provider.Locate(ctx, VueStyleLoader.Name)
	if err != nil {
		return fragment.Fragment{}, err
	}

	return fragment.Fragment{
		Name: v.Name(),
		Module: fragment.Module{Rules: []fragment.Rule{
			{Test: []string{`\.vue$`}, Use: []fragment.Loader{{Loader: loader}}},
			{Test: []string{CSSPattern}, Use: []fragment.Loader{{Loader: styleLoader}}},
		}},
		Plugins: []fragment.Plugin{{
			Name:    "vue-loader",
			Module:  caps[VueLoaderPlugin.Name].Path,
			Options: map[string]any{"compiler": caps[vueTemplateCompiler].Path},
		}},
	}, nil
}

var _ Pack = (*Vue)(nil)
