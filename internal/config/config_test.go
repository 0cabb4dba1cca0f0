package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stackpack/pkg/errors"
	"github.com/matzehuels/stackpack/pkg/options"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0o644))
	return dir
}

func parseFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadWithoutFile(t *testing.T) {
	dir := t.TempDir()
	loaded, err := Load(context.Background(), LoadOptions{Dir: dir})
	require.NoError(t, err)

	assert.Empty(t, loaded.Path)
	assert.Equal(t, dir, loaded.Options.Root)
	assert.Empty(t, loaded.Options.Type)
}

func TestLoadFile(t *testing.T) {
	dir := writeConfig(t, `
type = "browser"
mode = "development"
entry = ["src/main.ts", "src/worker.ts"]
html = true
source_maps = false
circular_dependencies = "error"

[aliases]
"@app" = "src/app"

[env]
API_URL = "https://api.example.test"
`)
	loaded, err := Load(context.Background(), LoadOptions{Dir: dir})
	require.NoError(t, err)

	o := loaded.Options
	assert.Equal(t, filepath.Join(dir, FileName), loaded.Path)
	assert.Equal(t, options.TypeBrowser, o.Type)
	assert.Equal(t, options.ModeDevelopment, o.Mode)
	assert.Equal(t, []string{"src/main.ts", "src/worker.ts"}, o.Entry)
	assert.Equal(t, "true", o.HTML)
	require.NotNil(t, o.SourceMaps)
	assert.False(t, *o.SourceMaps)
	assert.Equal(t, options.CircularError, o.CircularDependencies)
	assert.Equal(t, map[string]string{"@app": "src/app"}, o.Aliases)
	assert.Equal(t, map[string]string{"API_URL": "https://api.example.test"}, o.Env)
}

func TestDecodeHTML(t *testing.T) {
	tests := []struct {
		doc  string
		want string
	}{
		{`html = true`, "true"},
		{`html = false`, "false"},
		{`html = "public/index.html!no-inject"`, "public/index.html!no-inject"},
		{``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.doc, func(t *testing.T) {
			o, err := Decode([]byte(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.want, o.HTML)
		})
	}

	_, err := Decode([]byte(`html = 3`))
	assert.Error(t, err)
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	_, err := Decode([]byte("type = \"browser\"\nservicworker = true\nlint = false\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lint, servicworker")
}

func TestLoadInvalidFile(t *testing.T) {
	dir := writeConfig(t, `type = `)
	_, err := Load(context.Background(), LoadOptions{Dir: dir})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidOptions, errors.GetCode(err))
	assert.Contains(t, err.Error(), FileName)
}

func TestLoadExplicitFileMissing(t *testing.T) {
	_, err := Load(context.Background(), LoadOptions{Dir: t.TempDir(), File: "other.toml"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeFileNotFound, errors.GetCode(err))
}

func TestLoadExplicitFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.toml"), []byte(`type = "browserLibrary"`), 0o644))

	loaded, err := Load(context.Background(), LoadOptions{Dir: dir, File: "lib.toml"})
	require.NoError(t, err)
	assert.Equal(t, options.TypeBrowserLibrary, loaded.Options.Type)
}

func TestPrecedence(t *testing.T) {
	dir := writeConfig(t, `
type = "browser"
mode = "production"
cache = "file-cache"
output_path = "file-out"
public_path = "/file/"
`)
	t.Setenv("PACK_CACHE", "env-cache")
	t.Setenv("STACKPACK_OUTPUT_PATH", "env-out")
	t.Setenv("STACKPACK_PUBLIC_PATH", "/env/")

	fs := parseFlags(t, "--output-path", "flag-out", "--service-worker")
	loaded, err := Load(context.Background(), LoadOptions{Dir: dir, Flags: fs})
	require.NoError(t, err)

	o := loaded.Options
	assert.Equal(t, options.ModeProduction, o.Mode, "file")
	assert.Equal(t, "env-cache", o.Cache, "env over file")
	assert.Equal(t, "/env/", o.PublicPath, "env over file")
	assert.Equal(t, "flag-out", o.OutputPath, "flag over env")
	assert.True(t, o.ServiceWorker)
}

func TestUnsetFlagsDoNotOverride(t *testing.T) {
	dir := writeConfig(t, "type = \"browser\"\nservice_worker = true\nsources = [\"app\"]\n")
	loaded, err := Load(context.Background(), LoadOptions{Dir: dir, Flags: parseFlags(t)})
	require.NoError(t, err)

	assert.True(t, loaded.Options.ServiceWorker)
	assert.Equal(t, []string{"app"}, loaded.Options.Sources)
}

func TestFlags(t *testing.T) {
	fs := parseFlags(t,
		"--type", "browserLibrary",
		"--entry", "a.js,b.js",
		"--sources", "src", "--sources", "lib",
		"--html",
		"--source-maps=false",
		"--alias", "x=src/x",
		"--env", "A=1",
	)
	dir := writeConfig(t, "[aliases]\ny = \"src/y\"\n")

	loaded, err := Load(context.Background(), LoadOptions{Dir: dir, Flags: fs})
	require.NoError(t, err)

	o := loaded.Options
	assert.Equal(t, options.TypeBrowserLibrary, o.Type)
	assert.Equal(t, []string{"a.js", "b.js"}, o.Entry)
	assert.Equal(t, []string{"src", "lib"}, o.Sources)
	assert.Equal(t, "true", o.HTML)
	require.NotNil(t, o.SourceMaps)
	assert.False(t, *o.SourceMaps)
	assert.Equal(t, map[string]string{"x": "src/x", "y": "src/y"}, o.Aliases)
	assert.Equal(t, map[string]string{"A": "1"}, o.Env)
}

func TestRelativeRoot(t *testing.T) {
	dir := writeConfig(t, `root = "web"`)
	loaded, err := Load(context.Background(), LoadOptions{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "web"), loaded.Options.Root)
}

func TestLoadCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Load(ctx, LoadOptions{Dir: t.TempDir()})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEncodeRoundTrip(t *testing.T) {
	in := options.BuildOptions{Type: options.TypeBrowser, HTML: "true"}.ApplyDefaults()

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, in))
	out, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, in.Entry, out.Entry)
	assert.Equal(t, in.HTML, out.HTML)
	assert.Equal(t, in.OutputCSSFilename, out.OutputCSSFilename)
}

func TestProvider(t *testing.T) {
	dir := writeConfig(t, `type = "browser"`)
	loaded, err := NewProvider().Load(context.Background(), LoadOptions{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, options.TypeBrowser, loaded.Options.Type)
}
