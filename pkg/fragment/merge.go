package fragment

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// Override records a set value replaced by a later fragment.
type Override struct {
	Slot string `json:"slot"` // e.g. "devtool", "resolve.alias[@app$]"
	From string `json:"from"` // fragment that had set the value
	To   string `json:"to"`   // fragment that replaced it
	Old  string `json:"old"`  // JSON-encoded previous value
	New  string `json:"new"`  // JSON-encoded new value
}

// Configuration is the merged result of a composition run.
type Configuration struct {
	// Sources lists the fragments that contributed, in merge order. None
	// fragments are not listed.
	Sources []string `json:"sources"`
	// Overrides traces every conflicting scalar or keyed value.
	Overrides []Override `json:"overrides,omitempty"`

	Fragment
}

// Fingerprint is the SHA-256 of the configuration's JSON encoding. Map keys
// encode sorted, so equal configurations share a fingerprint.
func (c Configuration) Fingerprint() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode configuration: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Merge combines fragments left to right. None fragments are skipped.
// Conflicts are never errors; they are recorded in Overrides.
func Merge(fragments ...Fragment) Configuration {
	m := &merger{owner: make(map[string]string)}
	for i, f := range fragments {
		if f.IsNone() {
			continue
		}
		src := f.Name
		if src == "" {
			src = fmt.Sprintf("#%d", i)
		}
		m.add(src, f)
	}
	m.cfg.Name = "final"
	return m.cfg
}

type merger struct {
	cfg   Configuration
	owner map[string]string // slot → fragment that set it
	src   string
}

func (m *merger) add(src string, f Fragment) {
	m.src = src
	m.cfg.Sources = append(m.cfg.Sources, src)
	c := &m.cfg.Fragment

	m.str("mode", &c.Mode, f.Mode)
	m.str("devtool", &c.Devtool, f.Devtool)
	m.flag("bail", &c.Bail, f.Bail)
	m.flag("performance", &c.Performance, f.Performance)
	c.Entries = mergeEntries(c.Entries, f.Entries)

	m.str("output.path", &c.Output.Path, f.Output.Path)
	m.str("output.publicPath", &c.Output.PublicPath, f.Output.PublicPath)
	m.str("output.filename", &c.Output.Filename, f.Output.Filename)
	m.str("output.chunkFilename", &c.Output.ChunkFilename, f.Output.ChunkFilename)
	m.flag("output.pathinfo", &c.Output.Pathinfo, f.Output.Pathinfo)
	m.str("output.devtoolModuleFilenameTemplate", &c.Output.DevtoolModuleFilenameTemplate, f.Output.DevtoolModuleFilenameTemplate)
	m.strPtr("output.library", &c.Output.Library, f.Output.Library)
	m.str("output.libraryTarget", &c.Output.LibraryTarget, f.Output.LibraryTarget)

	m.flag("module.strictExportPresence", &c.Module.StrictExportPresence, f.Module.StrictExportPresence)
	c.Module.Rules = append(c.Module.Rules, f.Module.Rules...)
	c.Plugins = append(c.Plugins, f.Plugins...)

	c.Resolve.Aliases = mergeKeyed(m, "resolve.alias", c.Resolve.Aliases, f.Resolve.Aliases)
	c.Resolve.Extensions = append(c.Resolve.Extensions, f.Resolve.Extensions...)
	c.Resolve.Modules = append(c.Resolve.Modules, f.Resolve.Modules...)
	c.Resolve.Plugins = append(c.Resolve.Plugins, f.Resolve.Plugins...)
	m.flag("resolve.symlinks", &c.Resolve.Symlinks, f.Resolve.Symlinks)

	m.flag("optimization.minimize", &c.Optimization.Minimize, f.Optimization.Minimize)
	c.Optimization.Minimizers = append(c.Optimization.Minimizers, f.Optimization.Minimizers...)
	m.flag("optimization.runtimeChunk", &c.Optimization.RuntimeChunk, f.Optimization.RuntimeChunk)
	c.Optimization.SplitChunks = mergeKeyed(m, "optimization.splitChunks", c.Optimization.SplitChunks, f.Optimization.SplitChunks)
	m.str("optimization.moduleIds", &c.Optimization.ModuleIDs, f.Optimization.ModuleIDs)

	c.Externals = append(c.Externals, f.Externals...)
	c.Node = mergeKeyed(m, "node", c.Node, f.Node)
}

func (m *merger) str(slot string, dst *string, v string) {
	if v == "" {
		return
	}
	if *dst != "" && *dst != v {
		m.override(slot, *dst, v)
	}
	*dst = v
	m.owner[slot] = m.src
}

func (m *merger) flag(slot string, dst **bool, v *bool) {
	if v == nil {
		return
	}
	if *dst != nil && **dst != *v {
		m.override(slot, **dst, *v)
	}
	b := *v
	*dst = &b
	m.owner[slot] = m.src
}

func (m *merger) strPtr(slot string, dst **string, v *string) {
	if v == nil {
		return
	}
	if *dst != nil && **dst != *v {
		m.override(slot, **dst, *v)
	}
	s := *v
	*dst = &s
	m.owner[slot] = m.src
}

func (m *merger) override(slot string, old, next any) {
	m.cfg.Overrides = append(m.cfg.Overrides, Override{
		Slot: slot,
		From: m.owner[slot],
		To:   m.src,
		Old:  encode(old),
		New:  encode(next),
	})
}

// mergeKeyed merges src into dst per key, visiting keys in sorted order so
// the override trace is deterministic.
func mergeKeyed[V any](m *merger, slot string, dst, src map[string]V) map[string]V {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]V, len(src))
	}
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		key := slot + "[" + k + "]"
		if old, ok := dst[k]; ok && !reflect.DeepEqual(old, src[k]) {
			m.override(key, old, src[k])
		}
		dst[k] = src[k]
		m.owner[key] = m.src
	}
	return dst
}

// mergeEntries appends src entries; an entry whose name already exists
// extends that entry's imports in place.
func mergeEntries(dst, src []Entry) []Entry {
	for _, e := range src {
		found := false
		for i := range dst {
			if dst[i].Name == e.Name {
				dst[i].Import = append(dst[i].Import, e.Import...)
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, Entry{Name: e.Name, Import: append([]string(nil), e.Import...)})
		}
	}
	return dst
}

func encode(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
