// Package options defines the declarative build options and the absolute
// paths derived from them.
//
// Options arrive from stackpack.toml, the environment and CLI flags (see
// internal/config). [BuildOptions.ApplyDefaults] fills every optional field
// exactly once; after that the value is authoritative and passed by value
// into the composition engine.
package options

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/matzehuels/stackpack/pkg/errors"
)

// ProjectType selects between an application bundle and a library bundle.
type ProjectType string

const (
	TypeBrowser        ProjectType = "browser"
	TypeBrowserLibrary ProjectType = "browserLibrary"
)

// Mode is the build mode.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

// CircularPolicy controls the circular-dependency check.
type CircularPolicy string

const (
	CircularError   CircularPolicy = "error"
	CircularWarn    CircularPolicy = "warn"
	CircularDisable CircularPolicy = "disable"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultEntry                  = "src/index.js"
	DefaultMode                   = ModeProduction
	DefaultOutputPath             = "dist"
	DefaultOutputAssetFilename    = "static/media/[name].[hash:8].[ext]"
	DefaultOutputCSSFilename      = "static/css/[name].[contenthash:8].css"
	DefaultOutputCSSChunkFilename = "static/css/[name].[contenthash:8].chunk.css"
	DefaultPublicPath             = "/"
	DefaultSources                = "src"
	DefaultCircular               = CircularWarn
	DefaultCache                  = ".pack"
)

// NoInjectSuffix disables script injection when appended to an html template.
const NoInjectSuffix = "!no-inject"

// BuildOptions is the declarative input of one composition run.
type BuildOptions struct {
	Type ProjectType `toml:"type" json:"type"`
	Mode Mode        `toml:"mode" json:"mode"`
	Root string      `toml:"root,omitempty" json:"root"`

	// Entry lists entry files relative to Root. Each element may itself be a
	// comma-separated list.
	Entry []string `toml:"entry" json:"entry"`

	OutputPath             string `toml:"output_path" json:"outputPath"`
	OutputFilename         string `toml:"output_filename,omitempty" json:"outputFilename,omitempty"`
	OutputChunkFilename    string `toml:"output_chunk_filename,omitempty" json:"outputChunkFilename,omitempty"`
	OutputAssetFilename    string `toml:"output_asset_filename,omitempty" json:"outputAssetFilename"`
	OutputCSSFilename      string `toml:"output_css_filename,omitempty" json:"outputCssFilename"`
	OutputCSSChunkFilename string `toml:"output_css_chunk_filename,omitempty" json:"outputCssChunkFilename"`
	PublicPath             string `toml:"public_path,omitempty" json:"publicPath"`
	StaticPath             string `toml:"static_path,omitempty" json:"staticPath,omitempty"`

	Aliases    map[string]string `toml:"aliases,omitempty" json:"aliases,omitempty"`
	Sources    []string          `toml:"sources,omitempty" json:"sources"`
	SourceMaps *bool             `toml:"source_maps,omitempty" json:"sourceMaps"`

	CircularDependencies CircularPolicy `toml:"circular_dependencies,omitempty" json:"circularDependencies"`

	// HTML is "", "false", "true" (default template) or a template path,
	// optionally suffixed with "!no-inject".
	HTML          string `toml:"html,omitempty" json:"html,omitempty"`
	ServiceWorker bool   `toml:"service_worker,omitempty" json:"serviceWorker"`
	Stats         bool   `toml:"stats,omitempty" json:"stats"`

	Env    map[string]string `toml:"env,omitempty" json:"env,omitempty"`
	Ignore []string          `toml:"ignore,omitempty" json:"ignore,omitempty"`

	Cache        string `toml:"cache,omitempty" json:"cache"`
	TSConfigPath string `toml:"tsconfig_path,omitempty" json:"tsconfigPath,omitempty"`
	TSLintPath   string `toml:"tslint_path,omitempty" json:"tslintPath,omitempty"`
}

// ApplyDefaults returns a copy of o with every unset optional field filled.
func (o BuildOptions) ApplyDefaults() BuildOptions {
	if len(o.Entry) == 0 {
		o.Entry = []string{DefaultEntry}
	}
	if o.Mode == "" {
		o.Mode = DefaultMode
	}
	if o.OutputPath == "" {
		o.OutputPath = DefaultOutputPath
	}
	if o.OutputAssetFilename == "" {
		o.OutputAssetFilename = DefaultOutputAssetFilename
	}
	if o.OutputCSSFilename == "" {
		o.OutputCSSFilename = DefaultOutputCSSFilename
	}
	if o.OutputCSSChunkFilename == "" {
		o.OutputCSSChunkFilename = DefaultOutputCSSChunkFilename
	}
	if o.PublicPath == "" {
		o.PublicPath = DefaultPublicPath
	}
	if len(o.Sources) == 0 {
		o.Sources = []string{DefaultSources}
	}
	if o.SourceMaps == nil {
		on := true
		o.SourceMaps = &on
	}
	if o.CircularDependencies == "" {
		o.CircularDependencies = DefaultCircular
	}
	if o.Cache == "" {
		o.Cache = DefaultCache
	}
	o.Entry = splitList(o.Entry)
	o.Sources = splitList(o.Sources)
	o.Aliases = cloneMap(o.Aliases)
	o.Env = cloneMap(o.Env)
	return o
}

// Dev reports whether the options select development mode.
func (o BuildOptions) Dev() bool { return o.Mode == ModeDevelopment }

// Library reports whether the options build a library bundle.
func (o BuildOptions) Library() bool { return o.Type != TypeBrowser }

// SourceMapsEnabled reports the effective sourceMaps flag.
func (o BuildOptions) SourceMapsEnabled() bool { return o.SourceMaps == nil || *o.SourceMaps }

// Validate checks enumerations, regexes and paths. It expects defaults to
// have been applied.
func (o BuildOptions) Validate() error {
	switch o.Type {
	case TypeBrowser, TypeBrowserLibrary:
	case "":
		return errors.New(errors.ErrCodeInvalidOptions, "type is required (%s or %s)", TypeBrowser, TypeBrowserLibrary)
	default:
		return errors.New(errors.ErrCodeInvalidOptions, "unknown type %q", o.Type)
	}
	switch o.Mode {
	case ModeDevelopment, ModeProduction:
	default:
		return errors.New(errors.ErrCodeInvalidOptions, "unknown mode %q", o.Mode)
	}
	switch o.CircularDependencies {
	case CircularError, CircularWarn, CircularDisable:
	default:
		return errors.New(errors.ErrCodeInvalidOptions, "unknown circular_dependencies policy %q", o.CircularDependencies)
	}
	for _, pattern := range o.Ignore {
		if _, err := regexp.Compile(pattern); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidOptions, err, "ignore pattern %q", pattern)
		}
	}
	for _, p := range o.relativePaths() {
		if err := errors.ValidatePath(p); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidOptions, err, "invalid path %q", p)
		}
	}
	if _, err := ParseHTML(o.HTML); err != nil {
		return err
	}
	return nil
}

func (o BuildOptions) relativePaths() []string {
	paths := append([]string{o.OutputPath}, o.Entry...)
	paths = append(paths, o.Sources...)
	for _, p := range []string{o.StaticPath, o.TSConfigPath, o.TSLintPath, o.Cache} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// HTMLOption is the parsed form of BuildOptions.HTML.
type HTMLOption struct {
	Enabled  bool
	Template string // relative to root; empty selects the plugin's default template
	Inject   bool
}

// ParseHTML interprets the html option.
func ParseHTML(s string) (HTMLOption, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "false", "0", "no":
		return HTMLOption{}, nil
	case "true", "1", "yes":
		return HTMLOption{Enabled: true, Inject: true}, nil
	}
	inject := true
	if strings.HasSuffix(s, NoInjectSuffix) {
		inject = false
		s = strings.TrimSuffix(s, NoInjectSuffix)
	}
	if s == "" {
		return HTMLOption{Enabled: true, Inject: inject}, nil
	}
	if err := errors.ValidatePath(s); err != nil {
		return HTMLOption{}, errors.Wrap(errors.ErrCodeInvalidOptions, err, "html template %q", s)
	}
	return HTMLOption{Enabled: true, Template: s, Inject: inject}, nil
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func cloneMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Summary is a one-line description used in logs.
func (o BuildOptions) Summary() string {
	return fmt.Sprintf("%s/%s entries=%s output=%s", o.Type, o.Mode, strings.Join(o.Entry, ","), o.OutputPath)
}
