// Package fragment defines partial bundler configurations and how they
// combine.
//
// A [Fragment] has a fixed set of named slots. Each slot kind has one merge
// rule (see [Merge]):
//
//   - lists (rules, plugins, extensions, externals ...) concatenate in order
//   - scalars (mode, devtool, output filename ...) take the later set value
//   - keyed maps (aliases, splitChunks, node) merge per key, later wins
//   - entries with the same name concatenate their imports
//
// Unset means the empty string or a nil pointer; an unset scalar never
// overrides. [None] marks a fragment whose feature does not apply, which is
// different from an applicable fragment that happens to add nothing.
package fragment

// Entry is a named bundle entry point.
type Entry struct {
	Name   string   `json:"name"`
	Import []string `json:"import"`
}

// Output holds output scalars.
type Output struct {
	Path                          string  `json:"path,omitempty"`
	PublicPath                    string  `json:"publicPath,omitempty"`
	Filename                      string  `json:"filename,omitempty"`
	ChunkFilename                 string  `json:"chunkFilename,omitempty"`
	Pathinfo                      *bool   `json:"pathinfo,omitempty"`
	DevtoolModuleFilenameTemplate string  `json:"devtoolModuleFilenameTemplate,omitempty"`
	Library                       *string `json:"library,omitempty"`
	LibraryTarget                 string  `json:"libraryTarget,omitempty"`
}

// Loader is one step of a rule's loader chain. Loader is a module path.
type Loader struct {
	Loader  string         `json:"loader"`
	Options map[string]any `json:"options,omitempty"`
}

// Rule is a module rule. Test, Include and Exclude hold regular expression
// sources or absolute paths.
type Rule struct {
	Test    []string       `json:"test,omitempty"`
	Include []string       `json:"include,omitempty"`
	Exclude []string       `json:"exclude,omitempty"`
	Enforce string         `json:"enforce,omitempty"`
	Type    string         `json:"type,omitempty"`
	Use     []Loader       `json:"use,omitempty"`
	OneOf   []Rule         `json:"oneOf,omitempty"`
	Parser  map[string]any `json:"parser,omitempty"`
}

// Module holds module rules.
type Module struct {
	StrictExportPresence *bool  `json:"strictExportPresence,omitempty"`
	Rules                []Rule `json:"rules,omitempty"`
}

// Plugin is a plugin instance. Name is a stable identifier, Module the path
// the plugin is loaded from.
type Plugin struct {
	Name    string         `json:"name"`
	Module  string         `json:"module"`
	Options map[string]any `json:"options,omitempty"`
}

// Resolve holds module resolution settings.
type Resolve struct {
	Aliases    map[string]string `json:"alias,omitempty"`
	Extensions []string          `json:"extensions,omitempty"`
	Modules    []string          `json:"modules,omitempty"`
	Plugins    []Plugin          `json:"plugins,omitempty"`
	Symlinks   *bool             `json:"symlinks,omitempty"`
}

// Optimization holds chunking and minification settings.
type Optimization struct {
	Minimize     *bool          `json:"minimize,omitempty"`
	Minimizers   []Plugin       `json:"minimizer,omitempty"`
	RuntimeChunk *bool          `json:"runtimeChunk,omitempty"`
	SplitChunks  map[string]any `json:"splitChunks,omitempty"`
	ModuleIDs    string         `json:"moduleIds,omitempty"`
}

// Fragment is a partial configuration contributed by one source.
type Fragment struct {
	// Name identifies the contributor ("base", "project", "style" ...).
	Name string `json:"-"`

	Mode         string            `json:"mode,omitempty"`
	Devtool      string            `json:"devtool,omitempty"`
	Bail         *bool             `json:"bail,omitempty"`
	Performance  *bool             `json:"performance,omitempty"`
	Entries      []Entry           `json:"entry,omitempty"`
	Output       Output            `json:"output"`
	Module       Module            `json:"module"`
	Plugins      []Plugin          `json:"plugins,omitempty"`
	Resolve      Resolve           `json:"resolve"`
	Optimization Optimization      `json:"optimization"`
	Externals    []string          `json:"externals,omitempty"`
	Node         map[string]string `json:"node,omitempty"`

	none bool
}

// None returns the explicit "not applicable" fragment for name.
func None(name string) Fragment {
	return Fragment{Name: name, none: true}
}

// IsNone reports whether f is a None fragment.
func (f Fragment) IsNone() bool { return f.none }

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }

// String returns a pointer to s.
func String(s string) *string { return &s }

// PluginNames lists plugin names in order.
func (f Fragment) PluginNames() []string {
	names := make([]string, 0, len(f.Plugins))
	for _, p := range f.Plugins {
		names = append(names, p.Name)
	}
	return names
}

// Plugin returns the first plugin named name.
func (f Fragment) Plugin(name string) (Plugin, bool) {
	for _, p := range f.Plugins {
		if p.Name == name {
			return p, true
		}
	}
	return Plugin{}, false
}

// Entry returns the entry named name.
func (f Fragment) Entry(name string) (Entry, bool) {
	for _, e := range f.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// RulesMatching returns every rule, oneOf branches included, whose Test
// contains test.
func (f Fragment) RulesMatching(test string) []Rule {
	var out []Rule
	var walk func([]Rule)
	walk = func(rules []Rule) {
		for _, r := range rules {
			for _, t := range r.Test {
				if t == test {
					out = append(out, r)
					break
				}
			}
			walk(r.OneOf)
		}
	}
	walk(f.Module.Rules)
	return out
}
