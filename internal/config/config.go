// Package config loads a cxon project description and turns it into a fully
// resolved configuration: defaults applied, expressions evaluated, profile
// selected, paths made absolute and canonical.
package config

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/cxon-build/cxon/internal/toolchain"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var (
	ErrNoConfig       = errors.New("no cxon configuration found")
	ErrNoProject      = errors.New("no project name specified in cxon configuration")
	ErrNoSources      = errors.New("no source files specified in cxon configuration")
	ErrUnknownProfile = errors.New("unknown profile")
	ErrBadThreads     = errors.New("threads must be at least 1")
)

// Filenames are tried in order when Load is given a directory
var Filenames = []string{"cxon.json", "cxon.toml", "cxon.yaml", "cxon.yml"}

const (
	DefaultBuildDir   = "build"
	DefaultOutputDir  = "output"
	DefaultTargetType = "executable"
)

var defaultProfiles = map[string]Profile{
	"debug": {
		Debug: boolPtr(true),
	},
	"release": {
		OptLevel: intOrString{Value: 2},
		Debug:    boolPtr(false),
	},
}

func boolPtr(b bool) *bool { return &b }

// Config is the project description. After Validate and Resolve every path is
// absolute and canonical and every default is filled in; from then on it is
// read-only.
type Config struct {
	Project    string `json:"project"`
	TargetName string `json:"target_name"`
	TargetType string `json:"target_type"`

	Toolchain string `json:"toolchain"`
	CC        string `json:"cc"`
	CXX       string `json:"cxx"`

	Threads int `json:"threads"`

	BuildDir  string `json:"build_dir"`
	OutputDir string `json:"output_dir"`

	Debug *bool `json:"debug"`

	Flags    []string `json:"flags"`
	CFlags   []string `json:"cflags"`
	CXXFlags []string `json:"cxxflags"`

	Sources []string `json:"sources"`

	Defines []string `json:"defines"`
	Include []string `json:"include"`
	Link    []string `json:"link"`
	Libs    []string `json:"libs"`

	ExportCompileCommands     bool   `json:"export_compile_commands"`
	ExportCompileCommandsPath string `json:"export_compile_commands_path"`

	Profile map[string]Profile `json:"profile"`

	// Build is an expression that must evaluate to true before compilation starts
	Build string `json:"build"`

	// ProjectDir is the canonical directory holding the configuration file
	ProjectDir string `json:"-"`
	// File is the configuration file that was loaded
	File string `json:"-"`
	// OptLevel is set from the selected profile
	OptLevel string `json:"-"`

	env Env
}

// Profile defines the [profile.*] section
type Profile struct {
	OptLevel intOrString `json:"opt_level"`
	Debug    *bool       `json:"debug"`
	Flags    []string    `json:"flags"`
}

type intOrString struct {
	Value any
}

func (o *intOrString) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case nil:
		o.Value = nil
	case float64:
		o.Value = int(val)
	case string:
		o.Value = val
	default:
		return fmt.Errorf("opt_level: unexpected type %T", v)
	}
	return nil
}

func (o intOrString) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Value)
}

func (o intOrString) String() string {
	switch v := o.Value.(type) {
	case int:
		return strconv.Itoa(v)
	case string:
		return v
	default:
		return ""
	}
}

// Profiles returns the known profile names, sorted
func (c *Config) Profiles() []string {
	return slices.Sorted(maps.Keys(c.Profile))
}

// DebugInfo reports whether compile and link steps get the debug-info flag
func (c *Config) DebugInfo() bool {
	return c.Debug == nil || *c.Debug
}

// findConfigFile resolves path to a configuration file
func findConfigFile(path string) (string, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !stat.IsDir() {
		return path, nil
	}
	for _, name := range Filenames {
		candidate := filepath.Join(path, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w in %s (looked for %s)", ErrNoConfig, path, strings.Join(Filenames, ", "))
}

// decodeRaw decodes a configuration document into generic maps, choosing the
// format by file extension
func decodeRaw(rdr io.Reader, ext string) (map[string]any, error) {
	var raw map[string]any
	switch strings.ToLower(ext) {
	case ".json":
		dec := json.NewDecoder(rdr)
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
	case ".toml":
		dec := toml.NewDecoder(rdr)
		if err := dec.Decode(&raw); err != nil {
			var derr *toml.DecodeError
			if errors.As(err, &derr) {
				return nil, errors.New(derr.String())
			}
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.NewDecoder(rdr).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported configuration format %q", ext)
	}
	if raw == nil {
		raw = make(map[string]any)
	}
	return raw, nil
}

// decodeInto converts a generic section into a typed value, rejecting unknown keys
func decodeInto(data map[string]any, dst any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// Parse decodes a configuration document in the format given by ext (".json",
// ".toml", ".yaml"), evaluating expressions and conditional sections against env
func Parse(rdr io.Reader, ext string, env Env) (*Config, error) {
	raw, err := decodeRaw(rdr, ext)
	if err != nil {
		return nil, err
	}

	processed, err := processExpressions(raw, env)
	if err != nil {
		return nil, fmt.Errorf("error processing expressions in config: %w", err)
	}
	raw = processed.(map[string]any)

	base, conditional := splitConditional(raw, env)

	cfg := new(Config)
	if err := decodeInto(base, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse cxon configuration: %w", err)
	}
	if err := applyConditional(cfg, conditional, env); err != nil {
		return nil, err
	}

	profiles := maps.Clone(defaultProfiles)
	maps.Copy(profiles, cfg.Profile)
	cfg.Profile = profiles
	cfg.env = env

	return cfg, nil
}

// Load finds and parses the configuration at path (a project directory or a
// configuration file). profile is exposed to expressions; it is not applied.
func Load(path, profile string) (*Config, error) {
	file, err := findConfigFile(path)
	if err != nil {
		return nil, err
	}
	file, err = canonical(file)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	projectDir := filepath.Dir(file)
	env := NewEnv(projectDir, profile)

	cfg, err := Parse(bufio.NewReader(f), filepath.Ext(file), env)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	cfg.File = file
	cfg.ProjectDir = projectDir
	return cfg, nil
}

// ApplyProfile selects a profile: its debug setting applies unless the
// configuration sets debug explicitly, and its flags are appended to flags
func (c *Config) ApplyProfile(name string) error {
	prof, ok := c.Profile[name]
	if !ok {
		return fmt.Errorf("%w %q, known profiles: %s", ErrUnknownProfile, name, strings.Join(c.Profiles(), ", "))
	}
	if c.Debug == nil && prof.Debug != nil {
		c.Debug = boolPtr(*prof.Debug)
	}
	c.OptLevel = prof.OptLevel.String()
	c.Flags = append(c.Flags, prof.Flags...)
	return nil
}

// Validate checks everything that can be checked without touching the
// filesystem and fills in non-path defaults
func (c *Config) Validate() error {
	if c.Project == "" {
		return ErrNoProject
	}
	if c.TargetName == "" {
		c.TargetName = c.Project
	}
	if c.TargetType == "" {
		c.TargetType = DefaultTargetType
	}
	if _, err := toolchain.ParseTargetType(c.TargetType); err != nil {
		return err
	}
	c.TargetType = strings.ToLower(c.TargetType)
	if len(c.Sources) == 0 {
		return ErrNoSources
	}
	if _, err := toolchain.Lookup(c.Toolchain); err != nil {
		return err
	}
	c.Toolchain = strings.ToLower(c.Toolchain)
	if c.Threads < 0 {
		return fmt.Errorf("%w, got %d", ErrBadThreads, c.Threads)
	}
	if c.Debug == nil {
		c.Debug = boolPtr(true)
	}
	return nil
}

// TargetKind returns the parsed target type. Call Validate first.
func (c *Config) TargetKind() (toolchain.TargetType, error) {
	return toolchain.ParseTargetType(c.TargetType)
}

// Tools returns the toolchain descriptor with cc/cxx overrides applied
func (c *Config) Tools() (*toolchain.Toolchain, error) {
	tc, err := toolchain.Lookup(c.Toolchain)
	if err != nil {
		return nil, err
	}
	return tc.WithCompilers(c.CC, c.CXX), nil
}

// CompileFlags returns flags plus the C- or C++-specific flags
func (c *Config) CompileFlags(cxx bool) []string {
	flags := slices.Clone(c.Flags)
	if cxx {
		return append(flags, c.CXXFlags...)
	}
	return append(flags, c.CFlags...)
}
