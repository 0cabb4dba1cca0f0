package options

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/matzehuels/stackpack/pkg/errors"
	"github.com/matzehuels/stackpack/pkg/probe"
)

// ESLintConfigPattern matches standalone eslint configuration files.
var ESLintConfigPattern = regexp.MustCompile(`^\.eslintrc\.(js|ya?ml|json)`)

// Paths are the absolute locations derived from BuildOptions for one run.
// Absent optional files are empty strings.
type Paths struct {
	Root     string   `json:"root"`
	Entries  []string `json:"entries"`
	Output   string   `json:"output"`
	Sources  []string `json:"sources"`
	Static   string   `json:"static,omitempty"`
	Manifest string   `json:"manifest,omitempty"`
	TSConfig string   `json:"tsconfig,omitempty"`
	TSLint   string   `json:"tslint,omitempty"`
	ESLint   string   `json:"eslint,omitempty"`

	HTML HTMLPaths `json:"html"`

	// PublicURL is the public path without trailing slashes.
	PublicURL string `json:"publicUrl"`

	// Environment is exposed to bundled code and to html interpolation.
	Environment map[string]string `json:"-"`

	Ignore []*regexp.Regexp `json:"-"`
}

// HTMLPaths is the resolved html option.
type HTMLPaths struct {
	Enabled  bool   `json:"enabled"`
	Template string `json:"template,omitempty"`
	Inject   bool   `json:"inject"`
}

// Resolve computes Paths for opts relative to the prober's root. opts must
// already carry defaults. Optional files are probed; explicitly configured
// tsconfig/tslint files must exist.
func Resolve(opts BuildOptions, p *probe.Prober) (*Paths, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	root := p.Root()

	paths := &Paths{
		Root:      root,
		Output:    join(root, opts.OutputPath),
		PublicURL: strings.TrimRight(opts.PublicPath, "/"),
	}
	for _, e := range opts.Entry {
		paths.Entries = append(paths.Entries, join(root, e))
	}
	for _, s := range opts.Sources {
		paths.Sources = append(paths.Sources, join(root, s))
	}
	if opts.StaticPath != "" {
		paths.Static = join(root, opts.StaticPath)
	}
	paths.Manifest, _ = p.File("package.json")

	var err error
	if paths.TSConfig, err = probeOptional(p, opts.TSConfigPath, "tsconfig.json"); err != nil {
		return nil, err
	}
	if paths.TSLint, err = probeOptional(p, opts.TSLintPath, "tslint.json"); err != nil {
		return nil, err
	}
	paths.ESLint, _ = p.Match(ESLintConfigPattern)

	html, err := ParseHTML(opts.HTML)
	if err != nil {
		return nil, err
	}
	paths.HTML = HTMLPaths{Enabled: html.Enabled, Inject: html.Inject}
	if html.Template != "" {
		paths.HTML.Template = join(root, html.Template)
	}

	paths.Environment = make(map[string]string, len(opts.Env)+2)
	for k, v := range opts.Env {
		paths.Environment[k] = v
	}
	paths.Environment["NODE_ENV"] = string(opts.Mode)
	paths.Environment["PUBLIC_URL"] = paths.PublicURL

	for _, pattern := range opts.Ignore {
		paths.Ignore = append(paths.Ignore, regexp.MustCompile(pattern))
	}
	return paths, nil
}

func probeOptional(p *probe.Prober, explicit, fallback string) (string, error) {
	if explicit == "" {
		path, _ := p.File(fallback)
		return path, nil
	}
	path, ok := p.File(explicit)
	if !ok {
		return "", errors.New(errors.ErrCodeFileNotFound, "%s not found", p.Abs(explicit))
	}
	return path, nil
}

// MissingEntries returns the entry files that do not exist.
func (ps *Paths) MissingEntries(p *probe.Prober) []string {
	var missing []string
	for _, e := range ps.Entries {
		if _, ok := p.File(e); !ok {
			missing = append(missing, e)
		}
	}
	return missing
}

// PrimarySource is the first source directory, or empty when none.
func (ps *Paths) PrimarySource() string {
	if len(ps.Sources) == 0 {
		return ""
	}
	return ps.Sources[0]
}

// EntryName is the bundle name of an entry file: its base name without
// extension.
func EntryName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func join(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}
