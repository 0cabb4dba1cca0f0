package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stackpack/pkg/errors"
)

func TestApplyDefaults(t *testing.T) {
	opts := BuildOptions{Type: TypeBrowser}.ApplyDefaults()

	assert.Equal(t, []string{"src/index.js"}, opts.Entry)
	assert.Equal(t, ModeProduction, opts.Mode)
	assert.Equal(t, "dist", opts.OutputPath)
	assert.Equal(t, "static/media/[name].[hash:8].[ext]", opts.OutputAssetFilename)
	assert.Equal(t, "static/css/[name].[contenthash:8].css", opts.OutputCSSFilename)
	assert.Equal(t, "static/css/[name].[contenthash:8].chunk.css", opts.OutputCSSChunkFilename)
	assert.Equal(t, "/", opts.PublicPath)
	assert.Equal(t, []string{"src"}, opts.Sources)
	assert.True(t, opts.SourceMapsEnabled())
	assert.Equal(t, CircularWarn, opts.CircularDependencies)
	assert.Equal(t, ".pack", opts.Cache)
	assert.NoError(t, opts.Validate())
}

func TestSummary(t *testing.T) {
	opts := BuildOptions{Type: TypeBrowserLibrary, Entry: []string{"src/a.js", "src/b.js"}}.ApplyDefaults()
	assert.Equal(t, "browserLibrary/production entries=src/a.js,src/b.js output=dist", opts.Summary())
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	off := false
	in := BuildOptions{
		Type:                 TypeBrowserLibrary,
		Mode:                 ModeDevelopment,
		Entry:                []string{"src/a.ts,src/b.ts", "src/c.ts"},
		SourceMaps:           &off,
		CircularDependencies: CircularDisable,
		Aliases:              map[string]string{"@": "src"},
	}
	opts := in.ApplyDefaults()

	assert.Equal(t, []string{"src/a.ts", "src/b.ts", "src/c.ts"}, opts.Entry)
	assert.False(t, opts.SourceMapsEnabled())
	assert.Equal(t, CircularDisable, opts.CircularDependencies)
	assert.True(t, opts.Dev())
	assert.True(t, opts.Library())

	opts.Aliases["@x"] = "y"
	assert.NotContains(t, in.Aliases, "@x", "defaults must not alias caller maps")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*BuildOptions)
	}{
		{"missing type", func(o *BuildOptions) { o.Type = "" }},
		{"unknown type", func(o *BuildOptions) { o.Type = "node" }},
		{"unknown mode", func(o *BuildOptions) { o.Mode = "staging" }},
		{"unknown circular policy", func(o *BuildOptions) { o.CircularDependencies = "fail" }},
		{"bad ignore regex", func(o *BuildOptions) { o.Ignore = []string{"("} }},
		{"control char in entry", func(o *BuildOptions) { o.Entry = []string{"src/\x00.js"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := BuildOptions{Type: TypeBrowser}.ApplyDefaults()
			tt.mutate(&opts)
			err := opts.Validate()
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeInvalidOptions, errors.GetCode(err))
		})
	}
}

func TestParseHTML(t *testing.T) {
	tests := []struct {
		in   string
		want HTMLOption
	}{
		{"", HTMLOption{}},
		{"false", HTMLOption{}},
		{"true", HTMLOption{Enabled: true, Inject: true}},
		{"src/index.html", HTMLOption{Enabled: true, Template: "src/index.html", Inject: true}},
		{"src/index.html!no-inject", HTMLOption{Enabled: true, Template: "src/index.html"}},
		{"!no-inject", HTMLOption{Enabled: true}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHTML(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := ParseHTML(got.String())
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}
