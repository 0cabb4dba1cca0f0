// Package probe answers "does X exist in the host project" questions.
//
// A [Prober] is rooted at the project's working directory and never returns
// an error: every failure (missing file, unreadable directory) degrades to
// "absent" so the caller can decide whether absence matters.
//
//	p := probe.New(cwd)
//	if path, ok := p.File("tsconfig.json"); ok {
//	    // path is absolute
//	}
//	if path, ok := p.Match(regexp.MustCompile(`^\.eslintrc\.(js|ya?ml|json)`)); ok {
//	    // first matching entry in cwd
//	}
package probe

import (
	"path/filepath"
	"regexp"
	"sort"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// Prober performs read-only existence checks relative to a project root.
type Prober struct {
	fs   billy.Filesystem
	root string
}

// New creates a Prober backed by the OS filesystem rooted at root.
func New(root string) *Prober {
	return NewFS(osfs.New(root), root)
}

// NewFS creates a Prober over an arbitrary filesystem. root is only used to
// build the absolute paths handed back to callers.
func NewFS(fs billy.Filesystem, root string) *Prober {
	return &Prober{fs: fs, root: filepath.Clean(root)}
}

// Root returns the absolute project root.
func (p *Prober) Root() string { return p.root }

// FS returns the underlying filesystem.
func (p *Prober) FS() billy.Filesystem { return p.fs }

// Abs joins name onto the project root.
func (p *Prober) Abs(name string) string {
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(p.root, name)
}

// File checks whether the literal name exists relative to the root and
// returns its absolute path.
func (p *Prober) File(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	if _, err := p.fs.Stat(p.rel(name)); err != nil {
		return "", false
	}
	return p.Abs(name), true
}

// Match lists the root's direct entries in name order and returns the first
// whose name matches re.
func (p *Prober) Match(re *regexp.Regexp) (string, bool) {
	entries, err := p.fs.ReadDir(".")
	if err != nil {
		return "", false
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		if re.MatchString(name) {
			return p.Abs(name), true
		}
	}
	return "", false
}

// ReadFile reads a file relative to the root.
func (p *Prober) ReadFile(name string) ([]byte, error) {
	return util.ReadFile(p.fs, p.rel(name))
}

// rel converts an absolute path under the root back into a filesystem path.
func (p *Prober) rel(name string) string {
	if !filepath.IsAbs(name) {
		return filepath.ToSlash(name)
	}
	r, err := filepath.Rel(p.root, name)
	if err != nil {
		return filepath.ToSlash(name)
	}
	return filepath.ToSlash(r)
}
