// Package config loads BuildOptions for the CLI.
//
// Options come from three layers, later layers winning:
//
//  1. stackpack.toml in the project directory (or an explicit file)
//  2. environment variables: STACKPACK_<KEY>, plus PACK_CACHE for the cache
//     directory
//  3. command-line flags registered with [AddFlags]
//
// Defaults are not applied here; the composition engine applies them once.
package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/matzehuels/stackpack/pkg/errors"
	"github.com/matzehuels/stackpack/pkg/options"
)

const (
	// FileName is the project configuration file.
	FileName = "stackpack.toml"
	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "STACKPACK"
	// CacheEnv is the short environment override for the cache directory.
	CacheEnv = "PACK_CACHE"
)

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// Dir is the project directory searched for FileName. Defaults to the
	// working directory.
	Dir string
	// File forces loading from a specific file when set.
	File string
	// Flags are the parsed command-line flags, if any.
	Flags *pflag.FlagSet
}

// Loaded is the merged configuration and where it came from.
type Loaded struct {
	Options options.BuildOptions
	// Path is the configuration file that was read, empty when none was.
	Path string
}

// Provider loads configuration from explicit options.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Loaded, error)
}

type fileProvider struct{}

// NewProvider creates a configuration provider.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load implements Provider.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Loaded, error) {
	return Load(ctx, opts)
}

// Load merges file, environment and flags into BuildOptions.
func Load(ctx context.Context, opts LoadOptions) (*Loaded, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	dir := opts.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "working directory")
		}
		dir = wd
	}

	loaded := &Loaded{}
	path, err := locate(dir, opts.File)
	if err != nil {
		return nil, err
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", path)
		}
		if loaded.Options, err = Decode(data); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidOptions, err, "%s", path)
		}
		loaded.Path = path
	}

	v, err := newViper(opts.Flags)
	if err != nil {
		return nil, err
	}
	overlay(&loaded.Options, v)
	if err := overlayMaps(&loaded.Options, opts.Flags); err != nil {
		return nil, err
	}

	switch root := loaded.Options.Root; {
	case root == "":
		loaded.Options.Root = dir
	case !filepath.IsAbs(root):
		loaded.Options.Root = filepath.Join(dir, root)
	}
	return loaded, nil
}

func locate(dir, explicit string) (string, error) {
	if explicit != "" {
		if !filepath.IsAbs(explicit) {
			explicit = filepath.Join(dir, explicit)
		}
		if _, err := os.Stat(explicit); err != nil {
			return "", errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", explicit)
		}
		return explicit, nil
	}
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err != nil {
		return "", nil
	}
	return path, nil
}

// =============================================================================
// File
// =============================================================================

// fileOptions shadows the html field so it accepts a bool or a string.
type fileOptions struct {
	options.BuildOptions
	HTML htmlValue `toml:"html"`
}

type htmlValue string

func (h *htmlValue) UnmarshalTOML(v any) error {
	switch v := v.(type) {
	case bool:
		*h = htmlValue(fmt.Sprint(v))
	case string:
		*h = htmlValue(v)
	default:
		return fmt.Errorf("html must be a bool or a template path, got %T", v)
	}
	return nil
}

// Decode parses a stackpack.toml document. Unknown keys are rejected.
func Decode(data []byte) (options.BuildOptions, error) {
	var f fileOptions
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return options.BuildOptions{}, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return options.BuildOptions{}, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	opts := f.BuildOptions
	opts.HTML = string(f.HTML)
	return opts, nil
}

// Encode writes opts as a stackpack.toml document.
func Encode(w io.Writer, opts options.BuildOptions) error {
	return toml.NewEncoder(w).Encode(opts)
}

// =============================================================================
// Environment and flags
// =============================================================================

type kind int

const (
	kindString kind = iota
	kindList
	kindBool
)

// binding ties a configuration key to its flag.
type binding struct {
	key  string
	flag string
	kind kind
	// usage is the flag's help text.
	usage string
}

var bindings = []binding{
	{"type", "type", kindString, "project type (browser, browserLibrary)"},
	{"mode", "mode", kindString, "build mode (development, production)"},
	{"root", "root", kindString, "project root"},
	{"entry", "entry", kindList, "entry files, relative to the root"},
	{"output_path", "output-path", kindString, "output directory"},
	{"output_filename", "output-filename", kindString, "bundle filename template"},
	{"output_chunk_filename", "output-chunk-filename", kindString, "chunk filename template"},
	{"output_asset_filename", "output-asset-filename", kindString, "asset filename template"},
	{"output_css_filename", "output-css-filename", kindString, "stylesheet filename template"},
	{"output_css_chunk_filename", "output-css-chunk-filename", kindString, "stylesheet chunk filename template"},
	{"public_path", "public-path", kindString, "public URL path of the output"},
	{"static_path", "static-path", kindString, "directory of static files"},
	{"sources", "sources", kindList, "source directories"},
	{"source_maps", "source-maps", kindBool, "emit source maps"},
	{"circular_dependencies", "circular-dependencies", kindString, "circular import policy (error, warn, disable)"},
	{"html", "html", kindString, `emit an html page: true, or a template path (suffix "!no-inject" to skip script injection)`},
	{"service_worker", "service-worker", kindBool, "generate a precaching service worker"},
	{"stats", "stats", kindBool, "write bundle statistics"},
	{"ignore", "ignore", kindList, "watch ignore patterns"},
	{"cache", "cache", kindString, "cache directory for build dependencies"},
	{"tsconfig_path", "tsconfig", kindString, "tsconfig.json path"},
	{"tslint_path", "tslint", kindString, "tslint.json path"},
}

// AddFlags registers every option flag on fs.
func AddFlags(fs *pflag.FlagSet) {
	for _, b := range bindings {
		switch b.kind {
		case kindList:
			fs.StringSlice(b.flag, nil, b.usage)
		case kindBool:
			fs.Bool(b.flag, false, b.usage)
		default:
			fs.String(b.flag, "", b.usage)
		}
	}
	fs.Lookup("html").NoOptDefVal = "true"
	fs.StringToString("alias", nil, "module alias (name=path), repeatable")
	fs.StringToString("env", nil, "environment variable exposed to bundled code (KEY=value), repeatable")
}

func newViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	if err := v.BindEnv("cache", EnvPrefix+"_CACHE", CacheEnv); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "bind %s", CacheEnv)
	}
	if fs == nil {
		return v, nil
	}
	for _, b := range bindings {
		flag := fs.Lookup(b.flag)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(b.key, flag); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "bind flag %s", b.flag)
		}
	}
	return v, nil
}

// overlay copies every key set in the environment or on the command line
// onto o.
func overlay(o *options.BuildOptions, v *viper.Viper) {
	for _, b := range bindings {
		if !v.IsSet(b.key) {
			continue
		}
		switch b.kind {
		case kindList:
			*listField(o, b.key) = v.GetStringSlice(b.key)
		case kindBool:
			setBool(o, b.key, v.GetBool(b.key))
		default:
			*stringField(o, b.key) = v.GetString(b.key)
		}
	}
}

func overlayMaps(o *options.BuildOptions, fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}
	for name, dst := range map[string]*map[string]string{"alias": &o.Aliases, "env": &o.Env} {
		if fs.Lookup(name) == nil || !fs.Changed(name) {
			continue
		}
		values, err := fs.GetStringToString(name)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidOptions, err, "--%s", name)
		}
		if *dst == nil {
			*dst = make(map[string]string, len(values))
		}
		for k, val := range values {
			(*dst)[k] = val
		}
	}
	return nil
}

func stringField(o *options.BuildOptions, key string) *string {
	switch key {
	case "type":
		return (*string)(&o.Type)
	case "mode":
		return (*string)(&o.Mode)
	case "root":
		return &o.Root
	case "output_path":
		return &o.OutputPath
	case "output_filename":
		return &o.OutputFilename
	case "output_chunk_filename":
		return &o.OutputChunkFilename
	case "output_asset_filename":
		return &o.OutputAssetFilename
	case "output_css_filename":
		return &o.OutputCSSFilename
	case "output_css_chunk_filename":
		return &o.OutputCSSChunkFilename
	case "public_path":
		return &o.PublicPath
	case "static_path":
		return &o.StaticPath
	case "circular_dependencies":
		return (*string)(&o.CircularDependencies)
	case "html":
		return &o.HTML
	case "cache":
		return &o.Cache
	case "tsconfig_path":
		return &o.TSConfigPath
	case "tslint_path":
		return &o.TSLintPath
	}
	panic("config: no string option " + key)
}

func listField(o *options.BuildOptions, key string) *[]string {
	switch key {
	case "entry":
		return &o.Entry
	case "sources":
		return &o.Sources
	case "ignore":
		return &o.Ignore
	}
	panic("config: no list option " + key)
}

func setBool(o *options.BuildOptions, key string, b bool) {
	switch key {
	case "source_maps":
		o.SourceMaps = &b
	case "service_worker":
		o.ServiceWorker = b
	case "stats":
		o.Stats = b
	default:
		panic("config: no bool option " + key)
	}
}
