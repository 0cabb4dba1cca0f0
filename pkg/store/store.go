// Package store manages the isolated dependency project.
//
// Build tools that the host project does not declare are installed into a
// private project under the cache directory so the host's own manifest and
// node_modules are never touched:
//
//	<cache>/inner-dependencies/
//	├── package.json
//	└── node_modules/
//
// A Store is not safe for concurrent mutation on its own. All writes are
// expected to happen under the provisioner's serial queue; reads
// ([Store.HasPackage], [Store.ResolvePath]) may happen at any time.
package store

import (
	"context"
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackpack/pkg/errors"
)

// InnerProjectDir is the inner project's directory name under the cache.
const InnerProjectDir = "inner-dependencies"

const (
	manifestFile = "package.json"
	modulesDir   = "node_modules"
)

// Config configures a Store.
type Config struct {
	// CacheDir is the cache location; relative paths resolve against Root.
	CacheDir string
	// Root is the host project root.
	Root string
	// Flavor selects the package manager. Empty means npm.
	Flavor Flavor
	// Runner executes package-manager commands. Nil uses os/exec.
	Runner Runner
	// FS overrides the filesystem rooted at the cache directory.
	FS billy.Filesystem
	// Logger receives progress messages. Nil uses log.Default().
	Logger *log.Logger
}

// Record describes an installed package, read from its own manifest.
type Record struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Path    string `json:"path"`
}

// Store is the isolated dependency project.
type Store struct {
	cacheDir string
	flavor   Flavor
	runner   Runner
	fs       billy.Filesystem
	logger   *log.Logger

	mu    sync.Mutex
	ready bool
}

// New creates a Store. No filesystem work happens until the first call that
// needs the inner project.
func New(cfg Config) (*Store, error) {
	if cfg.CacheDir == "" {
		return nil, errors.New(errors.ErrCodeInvalidOptions, "cache directory is required")
	}
	if err := errors.ValidatePath(cfg.CacheDir); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidOptions, err, "invalid cache directory")
	}
	if cfg.Flavor == "" {
		cfg.Flavor = FlavorNPM
	}
	if !cfg.Flavor.Valid() {
		return nil, errors.New(errors.ErrCodeInvalidOptions, "unknown package manager %q", cfg.Flavor)
	}

	dir := cfg.CacheDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(cfg.Root, dir)
	}
	s := &Store{
		cacheDir: filepath.Clean(dir),
		flavor:   cfg.Flavor,
		runner:   cfg.Runner,
		fs:       cfg.FS,
		logger:   cfg.Logger,
	}
	if s.runner == nil {
		s.runner = NewExecRunner()
	}
	if s.fs == nil {
		s.fs = osfs.New(s.cacheDir)
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	return s, nil
}

// CacheDir returns the absolute cache directory.
func (s *Store) CacheDir() string { return s.cacheDir }

// Dir returns the absolute inner project directory.
func (s *Store) Dir() string { return filepath.Join(s.cacheDir, InnerProjectDir) }

// Flavor returns the package manager in use.
func (s *Store) Flavor() Flavor { return s.flavor }

// EnsureProject creates the inner project if its manifest is missing. The
// check runs at most once per Store; later calls return immediately.
func (s *Store) EnsureProject(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	if _, err := s.fs.Stat(path.Join(InnerProjectDir, manifestFile)); err == nil {
		s.ready = true
		return nil
	}

	s.logger.Info("creating inner project for build dependencies", "dir", s.Dir())
	if err := s.fs.MkdirAll(InnerProjectDir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeProvisionFailed, err, "create %s", s.Dir())
	}
	args := s.flavor.initArgs()
	if err := s.run(ctx, "", "", args); err != nil {
		return err
	}
	s.ready = true
	return nil
}

// HasPackage reports whether name's install root is present. Any read or
// parse failure counts as absent.
func (s *Store) HasPackage(name string) bool {
	_, ok := s.Record(name)
	return ok
}

// Install ensures the inner project exists and installs name@version when
// its install root is missing. It reports whether a package-manager install
// actually ran.
func (s *Store) Install(ctx context.Context, name, version string) (bool, error) {
	if err := errors.ValidateNpmPackageName(name); err != nil {
		return false, errors.Wrap(errors.ErrCodeInvalidPackage, err, "install %s", name)
	}
	if err := errors.ValidateVersion(version); err != nil {
		return false, errors.Wrap(errors.ErrCodeInvalidPackage, err, "install %s", name)
	}
	if err := s.EnsureProject(ctx); err != nil {
		return false, err
	}

	root := InstallName(name)
	if s.HasPackage(root) {
		s.logger.Debug("build dependency present", "package", root)
		return false, nil
	}

	s.logger.Info("installing build dependency", "package", root, "version", version)
	if err := s.run(ctx, root, version, s.flavor.addArgs(root+"@"+version)); err != nil {
		return false, err
	}
	s.logger.Info("installed build dependency", "package", name, "version", version)
	return true, nil
}

func (s *Store) run(ctx context.Context, pkg, version string, args []string) error {
	bin := string(s.flavor)
	line := CommandLine(bin, args...)
	s.logger.Debug("exec", "cmd", line, "dir", s.Dir())

	out, err := s.runner.Run(ctx, s.Dir(), bin, args...)
	if err != nil {
		return errors.Wrap(errors.ErrCodeProvisionFailed, &errors.ProvisionError{
			Package: pkg,
			Version: version,
			Command: line,
			Output:  strings.TrimSpace(string(out)),
			Err:     err,
		}, "%s", line)
	}
	return nil
}

// InstallName returns the part of a module path that names a package:
// "@scope/name/sub" → "@scope/name", "name/sub" → "name".
func InstallName(name string) string {
	parts := strings.Split(name, "/")
	if strings.HasPrefix(parts[0], "@") && len(parts) > 1 {
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

// ResolvePath returns the absolute path name would occupy under the inner
// node_modules, sub-path included, whether or not it is installed.
func (s *Store) ResolvePath(name string) string {
	return filepath.Join(s.Dir(), modulesDir, filepath.FromSlash(name))
}

// Entry reports where name resolves as a module: the path itself, the path
// with a ".js" extension, or a directory.
func (s *Store) Entry(name string) (string, bool) {
	rel := path.Join(InnerProjectDir, modulesDir, name)
	for _, candidate := range []string{rel, rel + ".js"} {
		if _, err := s.fs.Stat(candidate); err == nil {
			return filepath.Join(s.cacheDir, filepath.FromSlash(candidate)), true
		}
	}
	return "", false
}

// Record reads the installed package's manifest.
func (s *Store) Record(name string) (Record, bool) {
	root := InstallName(name)
	data, err := util.ReadFile(s.fs, path.Join(InnerProjectDir, modulesDir, root, manifestFile))
	if err != nil {
		return Record{}, false
	}
	var pkg struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return Record{}, false
	}
	if pkg.Name == "" {
		pkg.Name = root
	}
	return Record{Name: pkg.Name, Version: pkg.Version, Path: s.ResolvePath(root)}, true
}

// Records lists every installed top-level package, sorted by name.
func (s *Store) Records() ([]Record, error) {
	base := path.Join(InnerProjectDir, modulesDir)
	entries, err := s.fs.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "list %s", base)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasPrefix(name, "."):
		case strings.HasPrefix(name, "@"):
			scoped, err := s.fs.ReadDir(path.Join(base, name))
			if err != nil {
				continue
			}
			for _, se := range scoped {
				names = append(names, name+"/"+se.Name())
			}
		default:
			names = append(names, name)
		}
	}
	sort.Strings(names)

	records := make([]Record, 0, len(names))
	for _, name := range names {
		if r, ok := s.Record(name); ok {
			records = append(records, r)
		}
	}
	return records, nil
}

// Clear removes the inner project. The next install recreates it.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := util.RemoveAll(s.fs, InnerProjectDir); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.ErrCodeInternal, err, "remove %s", s.Dir())
	}
	s.ready = false
	return nil
}
