package manifest

import (
	"context"
	"sync"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stackpack/pkg/errors"
	"github.com/matzehuels/stackpack/pkg/probe"
)

func newReader(t *testing.T, manifest string) (*Reader, *probe.Prober) {
	t.Helper()
	fs := memfs.New()
	if manifest != "" {
		require.NoError(t, util.WriteFile(fs, FileName, []byte(manifest), 0o644))
	}
	p := probe.NewFS(fs, "/project")
	return NewReader(p), p
}

func TestParse(t *testing.T) {
	m, err := Parse([]byte(`{
  "name": "my-app",
  "version": "1.0.0",
  "dependencies": {"react": "^16.8.0"},
  "devDependencies": {"sass": "^1.20.0"},
  "peerDependencies": {"vue": "2.6.10", "lodash": "*"}
}`))
	require.NoError(t, err)

	assert.Equal(t, "my-app", m.Name)
	assert.Equal(t, "1.0.0", m.Version)
	assert.Equal(t, "^16.8.0", m.Dependencies["react"])
	assert.Equal(t, []string{"lodash", "vue"}, m.PeerDependencyNames())

	keys := make([]string, 0, len(m.Fields))
	for _, f := range m.Fields {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"name", "version", "dependencies", "devDependencies", "peerDependencies"}, keys)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{name:`},
		{"array", `["a"]`},
		{"trailing", `{} {}`},
		{"bad dependency map", `{"dependencies": ["react"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidManifest))
		})
	}
}

func TestDependencyVersionScansEveryGroupInDocumentOrder(t *testing.T) {
	m, err := Parse([]byte(`{
  "bundledDependencies": ["vue"],
  "devDependencies": {"vue": "2.6.0"},
  "dependencies": {"vue": "2.5.0"},
  "resolutions": {"vue": "9.9.9"}
}`))
	require.NoError(t, err)

	v, ok := m.DependencyVersion("vue")
	require.True(t, ok)
	assert.Equal(t, "2.6.0", v, "first object-valued dependency group wins")

	_, ok = m.DependencyVersion("react")
	assert.False(t, ok)
}

func TestDependencyVersionCaseInsensitiveKey(t *testing.T) {
	m, err := Parse([]byte(`{"myPeerDEPENDENCIES": {"node-sass": "4.12.0"}}`))
	require.NoError(t, err)

	assert.True(t, m.HasDependency("node-sass"))
}

func TestDependencyVersionIgnoresEmptyVersion(t *testing.T) {
	m, err := Parse([]byte(`{"dependencies": {"vue": ""}}`))
	require.NoError(t, err)
	assert.False(t, m.HasDependency("vue"))

	m, err = Parse([]byte(`{"dependencies": {"vue": ""}, "devDependencies": {"vue": "2.6.10"}}`))
	require.NoError(t, err)
	v, ok := m.DependencyVersion("vue")
	require.True(t, ok)
	assert.Equal(t, "2.6.10", v)
}

func TestNilManifestDeclaresNothing(t *testing.T) {
	var m *Manifest
	assert.False(t, m.HasDependency("vue"))
	assert.Nil(t, m.PeerDependencyNames())
}

func TestHasField(t *testing.T) {
	m, err := Parse([]byte(`{"eslintConfig": {"extends": "react-app"}, "proxy": null}`))
	require.NoError(t, err)

	assert.True(t, m.HasField("eslintConfig"))
	assert.False(t, m.HasField("proxy"))
	assert.False(t, m.HasField("browserslist"))

	raw, ok := m.Field("eslintConfig")
	require.True(t, ok)
	assert.JSONEq(t, `{"extends": "react-app"}`, string(raw))
}

func TestReaderAbsent(t *testing.T) {
	r, _ := newReader(t, "")

	m, err := r.Read(context.Background())
	require.NoError(t, err)
	assert.Nil(t, m)

	ok, err := r.HasDependency(context.Background(), "sass")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReaderCachesFirstLoad(t *testing.T) {
	r, p := newReader(t, `{"dependencies": {"vue": "2.6.10"}}`)
	ctx := context.Background()

	first, err := r.Read(ctx)
	require.NoError(t, err)

	require.NoError(t, util.WriteFile(p.FS(), FileName, []byte(`{"dependencies": {}}`), 0o644))

	second, err := r.Read(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)

	v, ok, err := r.DependencyVersion(ctx, "vue")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2.6.10", v)
}

func TestReaderConcurrentReads(t *testing.T) {
	r, _ := newReader(t, `{"name": "x"}`)

	var wg sync.WaitGroup
	results := make([]*Manifest, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := r.Read(context.Background())
			assert.NoError(t, err)
			results[i] = m
		}(i)
	}
	wg.Wait()

	for _, m := range results[1:] {
		assert.Same(t, results[0], m)
	}
}

func TestReaderMalformed(t *testing.T) {
	r, _ := newReader(t, `{"name": `)

	_, err := r.Read(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidManifest, errors.GetCode(err))
	assert.Contains(t, err.Error(), "/project/package.json")
}

func TestReaderCanceled(t *testing.T) {
	r, _ := newReader(t, `{}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Read(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
