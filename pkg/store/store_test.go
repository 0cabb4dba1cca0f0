package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"testing"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackpack/pkg/errors"
	"github.com/matzehuels/stackpack/pkg/probe"
)

// fakeRunner emulates a package manager against a billy filesystem rooted at
// the cache directory.
type fakeRunner struct {
	fs billy.Filesystem

	mu    sync.Mutex
	calls []string
	fail  map[string]string // command prefix → output
}

func (r *fakeRunner) Run(_ context.Context, dir, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	line := strings.Join(append([]string{name}, args...), " ")
	r.calls = append(r.calls, line)
	for prefix, out := range r.fail {
		if strings.HasPrefix(line, prefix) {
			return []byte(out), stderrors.New("exit status 1")
		}
	}

	switch args[0] {
	case "init":
		return nil, util.WriteFile(r.fs, path.Join(InnerProjectDir, "package.json"), []byte(`{"name":"inner-dependencies"}`), 0o644)
	case "install", "add":
		spec := args[1]
		at := strings.LastIndex(spec, "@")
		pkg, version := spec[:at], spec[at+1:]
		body := fmt.Sprintf(`{"name":%q,"version":%q}`, pkg, version)
		return []byte("added 1 package"), util.WriteFile(r.fs, path.Join(InnerProjectDir, "node_modules", pkg, "package.json"), []byte(body), 0o644)
	}
	return nil, nil
}

func (r *fakeRunner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func newStore(t *testing.T, flavor Flavor) (*Store, *fakeRunner) {
	t.Helper()
	fs := memfs.New()
	runner := &fakeRunner{fs: fs}
	s, err := New(Config{
		CacheDir: ".pack",
		Root:     "/project",
		Flavor:   flavor,
		Runner:   runner,
		FS:       fs,
		Logger:   log.New(io.Discard),
	})
	require.NoError(t, err)
	return s, runner
}

func TestNew(t *testing.T) {
	s, _ := newStore(t, "")
	assert.Equal(t, "/project/.pack", s.CacheDir())
	assert.Equal(t, "/project/.pack/inner-dependencies", s.Dir())
	assert.Equal(t, FlavorNPM, s.Flavor())

	_, err := New(Config{})
	assert.Equal(t, errors.ErrCodeInvalidOptions, errors.GetCode(err))

	_, err = New(Config{CacheDir: ".pack", Flavor: "bun"})
	assert.Equal(t, errors.ErrCodeInvalidOptions, errors.GetCode(err))

	abs, err := New(Config{CacheDir: "/var/cache/pack", Root: "/project", FS: memfs.New()})
	require.NoError(t, err)
	assert.Equal(t, "/var/cache/pack", abs.CacheDir())
}

func TestEnsureProjectIsMemoized(t *testing.T) {
	s, runner := newStore(t, FlavorNPM)
	ctx := context.Background()

	require.NoError(t, s.EnsureProject(ctx))
	require.NoError(t, s.EnsureProject(ctx))

	assert.Equal(t, []string{"npm init -y"}, runner.Calls())
}

func TestEnsureProjectReusesExistingManifest(t *testing.T) {
	s, runner := newStore(t, FlavorNPM)
	require.NoError(t, util.WriteFile(runner.fs, path.Join(InnerProjectDir, "package.json"), []byte(`{}`), 0o644))

	require.NoError(t, s.EnsureProject(context.Background()))
	assert.Empty(t, runner.Calls())
}

func TestInstall(t *testing.T) {
	s, runner := newStore(t, FlavorNPM)
	ctx := context.Background()

	installed, err := s.Install(ctx, "vue-loader/lib/plugin", "15.7.0")
	require.NoError(t, err)
	assert.True(t, installed)

	installed, err = s.Install(ctx, "vue-loader", "15.7.0")
	require.NoError(t, err)
	assert.False(t, installed, "second install of the same root is a no-op")

	assert.Equal(t, []string{"npm init -y", "npm install vue-loader@15.7.0"}, runner.Calls())
	assert.True(t, s.HasPackage("vue-loader"))
	assert.True(t, s.HasPackage("vue-loader/lib/plugin"))
}

func TestInstallFlavors(t *testing.T) {
	tests := []struct {
		flavor Flavor
		want   []string
	}{
		{FlavorNPM, []string{"npm init -y", "npm install @babel/core@7.4.0"}},
		{FlavorYarn, []string{"yarn init -y", "yarn add @babel/core@7.4.0"}},
		{FlavorPNPM, []string{"pnpm init", "pnpm add @babel/core@7.4.0"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.flavor), func(t *testing.T) {
			s, runner := newStore(t, tt.flavor)
			_, err := s.Install(context.Background(), "@babel/core/lib/index", "7.4.0")
			require.NoError(t, err)
			assert.Equal(t, tt.want, runner.Calls())
		})
	}
}

func TestInstallFailure(t *testing.T) {
	s, runner := newStore(t, FlavorNPM)
	runner.fail = map[string]string{"npm install": "npm ERR! 404 Not Found"}

	_, err := s.Install(context.Background(), "ts-loader", "99.0.0")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeProvisionFailed, errors.GetCode(err))

	var perr *errors.ProvisionError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "ts-loader", perr.Package)
	assert.Equal(t, "99.0.0", perr.Version)
	assert.Equal(t, "npm install ts-loader@99.0.0", perr.Command)
	assert.Contains(t, perr.Output, "404")
	assert.False(t, s.HasPackage("ts-loader"))
}

func TestInstallRejectsInvalidInput(t *testing.T) {
	s, runner := newStore(t, FlavorNPM)

	_, err := s.Install(context.Background(), "Bad Name", "1.0.0")
	assert.Equal(t, errors.ErrCodeInvalidPackage, errors.GetCode(err))

	_, err = s.Install(context.Background(), "ok", "1.0.0; rm -rf /")
	assert.Equal(t, errors.ErrCodeInvalidPackage, errors.GetCode(err))

	assert.Empty(t, runner.Calls())
}

func TestInstallName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"@scope/name/sub", "@scope/name"},
		{"@scope/name", "@scope/name"},
		{"name/sub/deeper", "name"},
		{"name", "name"},
		{"vue-loader/lib/plugin", "vue-loader"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InstallName(tt.in), tt.in)
	}
}

func TestResolvePath(t *testing.T) {
	s, _ := newStore(t, FlavorNPM)
	assert.Equal(t, "/project/.pack/inner-dependencies/node_modules/vue-loader/lib/plugin", s.ResolvePath("vue-loader/lib/plugin"))
}

func TestRecordsAndClear(t *testing.T) {
	s, runner := newStore(t, FlavorNPM)
	ctx := context.Background()
	for _, name := range []string{"ts-loader", "@vue/component-compiler-utils", "css-loader"} {
		_, err := s.Install(ctx, name, "1.0.0")
		require.NoError(t, err)
	}
	require.NoError(t, util.WriteFile(runner.fs, path.Join(InnerProjectDir, "node_modules", ".package-lock.json"), nil, 0o644))

	records, err := s.Records()
	require.NoError(t, err)
	var names []string
	for _, r := range records {
		names = append(names, r.Name)
		assert.Equal(t, "1.0.0", r.Version)
	}
	assert.Equal(t, []string{"@vue/component-compiler-utils", "css-loader", "ts-loader"}, names)

	require.NoError(t, s.Clear())
	records, err = s.Records()
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = s.Install(ctx, "ts-loader", "1.0.0")
	require.NoError(t, err)
	calls := runner.Calls()
	assert.Equal(t, "npm init -y", calls[len(calls)-2], "clear resets the inner project")
}

func TestDetectFlavor(t *testing.T) {
	tests := []struct {
		lockfile string
		want     Flavor
	}{
		{"yarn.lock", FlavorYarn},
		{"pnpm-lock.yaml", FlavorPNPM},
		{"package-lock.json", FlavorNPM},
		{"", FlavorNPM},
	}
	for _, tt := range tests {
		t.Run(string(tt.want)+"/"+tt.lockfile, func(t *testing.T) {
			fs := memfs.New()
			if tt.lockfile != "" {
				require.NoError(t, util.WriteFile(fs, tt.lockfile, nil, 0o644))
			}
			assert.Equal(t, tt.want, DetectFlavor(probe.NewFS(fs, "/project")))
		})
	}
}

func TestCommandLine(t *testing.T) {
	assert.Equal(t, "npm install ts-loader@5.4.4", CommandLine("npm", "install", "ts-loader@5.4.4"))
	assert.Equal(t, "yarn add 'a b@^1.0.0'", CommandLine("yarn", "add", "a b@^1.0.0"))
}

func TestEntry(t *testing.T) {
	s, runner := newStore(t, FlavorNPM)
	_, err := s.Install(context.Background(), "vue-loader", "15.7.0")
	require.NoError(t, err)
	require.NoError(t, util.WriteFile(runner.fs, path.Join(InnerProjectDir, "node_modules", "vue-loader", "lib", "plugin.js"), nil, 0o644))

	entry, ok := s.Entry("vue-loader")
	require.True(t, ok)
	assert.Equal(t, "/project/.pack/inner-dependencies/node_modules/vue-loader", entry)

	entry, ok = s.Entry("vue-loader/lib/plugin")
	require.True(t, ok)
	assert.Equal(t, "/project/.pack/inner-dependencies/node_modules/vue-loader/lib/plugin.js", entry)

	_, ok = s.Entry("vue-loader/lib/missing")
	assert.False(t, ok)
}
