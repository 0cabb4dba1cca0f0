package provision

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/matzehuels/stackpack/pkg/store"
)

// Static is an in-memory Provider. It never touches the filesystem and
// records every request in call order.
type Static struct {
	// Root is the fake inner project directory. Paths are Root/node_modules/<name>.
	Root string
	// Fail makes Use or Locate of a name return the error.
	Fail map[string]error

	mu        sync.Mutex
	calls     []string
	installed map[string]string
}

// NewStatic returns a Static provider rooted at root.
func NewStatic(root string) *Static {
	return &Static{Root: root}
}

// Use implements Provider.
func (s *Static) Use(_ context.Context, name, version string) (Capability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "use "+name+"@"+version)
	if err := s.Fail[name]; err != nil {
		return Capability{}, err
	}
	if s.installed == nil {
		s.installed = make(map[string]string)
	}
	root := store.InstallName(name)
	_, had := s.installed[root]
	if !had {
		s.installed[root] = version
	}
	return Capability{Name: name, Version: s.installed[root], Path: s.path(name), Installed: !had}, nil
}

// Locate implements Provider.
func (s *Static) Locate(_ context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "locate "+name)
	if err := s.Fail[name]; err != nil {
		return "", err
	}
	return s.path(name), nil
}

// Calls returns the recorded requests.
func (s *Static) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Installs returns how many distinct install roots were provisioned.
func (s *Static) Installs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.installed)
}

func (s *Static) path(name string) string {
	return filepath.Join(s.Root, "node_modules", filepath.FromSlash(name))
}

var _ Provider = (*Static)(nil)
