package config

import (
	"fmt"
	"os"
	"maps"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Env is the environment configuration expressions are evaluated against
type Env struct {
	TargetOS   string            `expr:"target_os"`
	TargetArch string            `expr:"target_arch"`
	Profile    string            `expr:"profile"`
	Environ    map[string]string `expr:"environ"`
	basedir    string
}

func NewEnv(basedir, profile string) Env {
	environ := make(map[string]string)
	for _, e := range os.Environ() {
		if i := strings.Index(e, "="); i >= 0 {
			environ[e[:i]] = e[i+1:]
		}
	}

	return Env{
		TargetOS:   runtime.GOOS,
		TargetArch: runtime.GOARCH,
		Profile:    profile,
		Environ:    environ,
		basedir:    basedir,
	}
}

// resolve joins path onto the project directory and refuses to leave it
func (env Env) resolve(path string) (string, error) {
	fullPath := filepath.Join(env.basedir, path)
	rel, err := filepath.Rel(env.basedir, fullPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside of project directory %q", path, env.basedir)
	}
	return fullPath, nil
}

// Patch applies a diff-match-patch patch to a project file. It reports
// whether any hunk applied; nothing is written otherwise.
func (env Env) Patch(path, patchText string) (bool, error) {
	fullPath, err := env.resolve(path)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return false, err
	}

	dmp := diffmatchpatch.New()
	patches, err := dmp.PatchFromText(patchText)
	if err != nil {
		return false, err
	}
	patchedText, results := dmp.PatchApply(patches, string(data))
	if !slices.Contains(results, true) {
		return false, nil
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(fullPath, []byte(patchedText), info.Mode().Perm()); err != nil {
		return false, err
	}
	return true, nil
}

func (env Env) ReadFile(path string) (string, error) {
	fullPath, err := env.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

var exprRegex = regexp.MustCompile(`\{\{(.+?)\}\}`)

// evaluateString replaces every {{ expr }} in s with the printed result of expr
func evaluateString(s string, env Env) (string, error) {
	var firstErr error
	out := exprRegex.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}
		expression := strings.TrimSpace(match[2 : len(match)-2])
		program, err := expr.Compile(expression, expr.Env(env))
		if err != nil {
			firstErr = fmt.Errorf("failed to compile expression %q: %w", expression, err)
			return match
		}
		result, err := expr.Run(program, env)
		if err != nil {
			firstErr = fmt.Errorf("failed to run expression %q: %w", expression, err)
			return match
		}
		return fmt.Sprint(result)
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// processExpressions evaluates expressions in every string of the decoded
// document, in place. Keys are left alone.
func processExpressions(data any, env Env) (any, error) {
	var err error
	switch v := data.(type) {
	case string:
		return evaluateString(v, env)
	case map[string]any:
		for key := range v {
			if v[key], err = processExpressions(v[key], env); err != nil {
				return nil, err
			}
		}
	case []any:
		for i := range v {
			if v[i], err = processExpressions(v[i], env); err != nil {
				return nil, err
			}
		}
	}
	return data, nil
}

// splitConditional separates plain keys from conditional sections: tables
// whose key compiles as a boolean expression, e.g. `"target_os == 'windows'": {...}`
func splitConditional(raw map[string]any, env Env) (base map[string]any, conditional map[string]map[string]any) {
	base = make(map[string]any)
	conditional = make(map[string]map[string]any)

	for key, val := range raw {
		subMap, ok := val.(map[string]any)
		if !ok {
			base[key] = val
			continue
		}
		if _, err := expr.Compile(key, expr.Env(env), expr.AsBool()); err == nil {
			conditional[key] = subMap
		} else {
			base[key] = val
		}
	}
	return base, conditional
}

// applyConditional evaluates each conditional section, in key order, and merges the matching ones into cfg
func applyConditional(cfg *Config, conditional map[string]map[string]any, env Env) error {
	keys := make([]string, 0, len(conditional))
	for k := range conditional {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, expression := range keys {
		program, err := expr.Compile(expression, expr.Env(env), expr.AsBool())
		if err != nil {
			return fmt.Errorf("failed to compile expression for [%q]: %w", expression, err)
		}
		result, err := expr.Run(program, env)
		if err != nil {
			return fmt.Errorf("failed to run expression for [%q]: %w", expression, err)
		}
		if matched, ok := result.(bool); !ok || !matched {
			continue
		}

		var section Config
		if err := decodeInto(conditional[expression], &section); err != nil {
			return fmt.Errorf("failed to parse conditional section [%q]: %w", expression, err)
		}
		cfg.overlay(conditional[expression], &section)
	}
	return nil
}

func (c *Config) scalarFields() map[string]*string {
	return map[string]*string{
		"project":                      &c.Project,
		"target_name":                  &c.TargetName,
		"target_type":                  &c.TargetType,
		"toolchain":                    &c.Toolchain,
		"cc":                           &c.CC,
		"cxx":                          &c.CXX,
		"build_dir":                    &c.BuildDir,
		"output_dir":                   &c.OutputDir,
		"export_compile_commands_path": &c.ExportCompileCommandsPath,
		"build":                        &c.Build,
	}
}

func (c *Config) listFields() map[string]*[]string {
	return map[string]*[]string{
		"flags":    &c.Flags,
		"cflags":   &c.CFlags,
		"cxxflags": &c.CXXFlags,
		"sources":  &c.Sources,
		"defines":  &c.Defines,
		"include":  &c.Include,
		"link":     &c.Link,
		"libs":     &c.Libs,
	}
}

// overlay merges a matched conditional section into c. Only keys present in
// the section count: lists are appended, booleans OR-ed, profiles merged by
// name and everything else replaced.
func (c *Config) overlay(section map[string]any, o *Config) {
	dstScalars, srcScalars := c.scalarFields(), o.scalarFields()
	dstLists, srcLists := c.listFields(), o.listFields()

	for key := range section {
		if dst, ok := dstScalars[key]; ok {
			*dst = *srcScalars[key]
			continue
		}
		if dst, ok := dstLists[key]; ok {
			*dst = append(*dst, *srcLists[key]...)
			continue
		}
		switch key {
		case "threads":
			c.Threads = o.Threads
		case "debug":
			c.Debug = orBool(c.Debug, o.Debug)
		case "export_compile_commands":
			c.ExportCompileCommands = c.ExportCompileCommands || o.ExportCompileCommands
		case "profile":
			if c.Profile == nil {
				c.Profile = make(map[string]Profile)
			}
			maps.Copy(c.Profile, o.Profile)
		}
	}
}

// orBool ORs two optional booleans; unset only when both are
func orBool(a, b *bool) *bool {
	switch {
	case b == nil:
		return a
	case a == nil:
		return boolPtr(*b)
	default:
		return boolPtr(*a || *b)
	}
}

// RunBuildScript evaluates the build expression; anything but true is an error
func (c *Config) RunBuildScript() error {
	if c.Build == "" {
		return nil
	}

	program, err := expr.Compile(c.Build, expr.Env(c.env))
	if err != nil {
		return fmt.Errorf("failed to compile build script for project %q: %w", c.Project, err)
	}
	result, err := expr.Run(program, c.env)
	if err != nil {
		return fmt.Errorf("failed to run build script for project %q: %w", c.Project, err)
	}

	if ok, isBool := result.(bool); !isBool || !ok {
		return fmt.Errorf("build script for project %q returned %v\n%s", c.Project, result, c.Build)
	}
	return nil
}
