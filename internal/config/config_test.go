package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/cxon-build/cxon/internal/toolchain"
	"github.com/google/go-cmp/cmp"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// writeFiles creates files (relative name -> content) under dir
func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for fn, c := range files {
		p := filepath.Join(dir, fn)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(c), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

// projectDir returns a canonical temporary directory
func projectDir(t *testing.T) string {
	t.Helper()
	dir, err := canonical(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

func loadResolved(t *testing.T, dir string) *Config {
	t.Helper()
	cfg, err := Load(dir, "debug")
	if err != nil {
		t.Fatal("Load failed: ", err)
	}
	if err := cfg.ApplyProfile("debug"); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal("Validate failed: ", err)
	}
	if err := cfg.Resolve(); err != nil {
		t.Fatal("Resolve failed: ", err)
	}
	return cfg
}

func TestLoadJSON(t *testing.T) {
	dir := projectDir(t)
	writeFiles(t, dir, map[string]string{
		"cxon.json": `{
			"project": "demo",
			"toolchain": "GNU",
			"threads": 4,
			"flags": ["-Wall"],
			"cflags": ["-std=c11"],
			"cxxflags": ["-std=c++17"],
			"defines": ["FOO", "BAR=1"],
			"include": ["inc"],
			"libs": ["m"],
			"sources": ["a.c", "src/b.cpp"]
		}`,
		"a.c":       "int main(void) { return 0; }\n",
		"src/b.cpp": "int b() { return 1; }\n",
		"inc/a.h":   "",
	})

	cfg := loadResolved(t, dir)

	if cfg.TargetName != "demo" {
		t.Errorf("TargetName = %q; want demo", cfg.TargetName)
	}
	if cfg.TargetType != "executable" || cfg.Toolchain != "gnu" {
		t.Errorf("TargetType/Toolchain = %q/%q; want executable/gnu", cfg.TargetType, cfg.Toolchain)
	}
	if cfg.Threads != 4 {
		t.Errorf("Threads = %d; want 4", cfg.Threads)
	}
	if !cfg.DebugInfo() {
		t.Error("DebugInfo() = false; want true by default")
	}
	if cfg.BuildDir != filepath.Join(dir, "build") || cfg.OutputDir != filepath.Join(dir, "output") {
		t.Errorf("BuildDir/OutputDir = %q/%q", cfg.BuildDir, cfg.OutputDir)
	}
	for _, d := range []string{cfg.BuildDir, cfg.OutputDir} {
		if st, err := os.Stat(d); err != nil || !st.IsDir() {
			t.Errorf("%s was not created: %v", d, err)
		}
	}
	wantSources := []string{filepath.Join(dir, "a.c"), filepath.Join(dir, "src", "b.cpp")}
	if diff := cmp.Diff(wantSources, cfg.Sources); diff != "" {
		t.Errorf("Sources mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{filepath.Join(dir, "inc")}, cfg.Include); diff != "" {
		t.Errorf("Include mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"-Wall", "-std=c11"}, cfg.CompileFlags(false)); diff != "" {
		t.Errorf("CompileFlags(c) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"-Wall", "-std=c++17"}, cfg.CompileFlags(true)); diff != "" {
		t.Errorf("CompileFlags(cxx) mismatch (-want +got):\n%s", diff)
	}

	tc, err := cfg.Tools()
	if err != nil {
		t.Fatal(err)
	}
	if tc.Name != "gnu" {
		t.Errorf("Tools().Name = %q", tc.Name)
	}
	kind, err := cfg.TargetKind()
	if err != nil || kind != toolchain.Executable {
		t.Errorf("TargetKind() = %v, %v", kind, err)
	}
}

func TestLoadFormatsAgree(t *testing.T) {
	docs := map[string]string{
		"cxon.json": `{"project": "p", "toolchain": "llvm", "target_type": "static_lib", "defines": ["X"], "sources": ["a.c"], "profile": {"fast": {"opt_level": 3}}}`,
		"cxon.toml": `project = "p"
toolchain = "llvm"
target_type = "static_lib"
defines = ["X"]
sources = ["a.c"]

[profile.fast]
opt_level = 3
`,
		"cxon.yaml": `project: p
toolchain: llvm
target_type: static_lib
defines: [X]
sources: [a.c]
profile:
  fast:
    opt_level: 3
`,
	}

	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			dir := projectDir(t)
			writeFiles(t, dir, map[string]string{name: doc, "a.c": ""})

			cfg, err := Load(dir, "fast")
			if err != nil {
				t.Fatal(err)
			}
			if err := cfg.ApplyProfile("fast"); err != nil {
				t.Fatal(err)
			}
			if err := cfg.Validate(); err != nil {
				t.Fatal(err)
			}
			if cfg.File != filepath.Join(dir, name) {
				t.Errorf("File = %q", cfg.File)
			}
			got := []string{cfg.Project, cfg.Toolchain, cfg.TargetType, strings.Join(cfg.Defines, ","), cfg.OptLevel}
			want := []string{"p", "llvm", "static_lib", "X", "3"}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("fields mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadConfigFilePath(t *testing.T) {
	dir := projectDir(t)
	writeFiles(t, dir, map[string]string{"custom.json": `{"project": "x", "toolchain": "gnu", "sources": ["a.c"]}`})

	cfg, err := Load(filepath.Join(dir, "custom.json"), "debug")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ProjectDir != dir {
		t.Errorf("ProjectDir = %q; want %q", cfg.ProjectDir, dir)
	}
}

func TestLoadNoConfig(t *testing.T) {
	if _, err := Load(t.TempDir(), "debug"); !errors.Is(err, ErrNoConfig) {
		t.Errorf("Load(empty dir) = %v; want ErrNoConfig", err)
	}
}

func TestLoadUnknownField(t *testing.T) {
	dir := projectDir(t)
	writeFiles(t, dir, map[string]string{"cxon.json": `{"project": "x", "toolchain": "gnu", "sauces": ["a.c"]}`})
	if _, err := Load(dir, "debug"); err == nil || !strings.Contains(err.Error(), "sauces") {
		t.Errorf("Load with unknown field = %v; want error naming the field", err)
	}
}

func TestExpressions(t *testing.T) {
	dir := projectDir(t)
	writeFiles(t, dir, map[string]string{
		"cxon.json": `{
			"project": "demo",
			"toolchain": "gnu",
			"target_name": "demo-{{ target_os }}",
			"sources": ["a.c"],
			"defines": ["BASE"],
			"target_os == '` + runtime.GOOS + `'": {"defines": ["HOST"], "libs": ["m"], "export_compile_commands": true},
			"target_os == 'plan9-never'": {"defines": ["NEVER"]},
			"profile == 'release'": {"defines": ["NDEBUG"]}
		}`,
		"a.c": "",
	})

	cfg, err := Load(dir, "debug")
	if err != nil {
		t.Fatal(err)
	}
	if want := "demo-" + runtime.GOOS; cfg.TargetName != want {
		t.Errorf("TargetName = %q; want %q", cfg.TargetName, want)
	}
	if diff := cmp.Diff([]string{"BASE", "HOST"}, cfg.Defines); diff != "" {
		t.Errorf("Defines mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"m"}, cfg.Libs); diff != "" {
		t.Errorf("Libs mismatch (-want +got):\n%s", diff)
	}
	if !cfg.ExportCompileCommands {
		t.Error("ExportCompileCommands should be OR-ed in from the matching section")
	}

	cfg, err = Load(dir, "release")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"BASE", "HOST", "NDEBUG"}, cfg.Defines); diff != "" {
		t.Errorf("release Defines mismatch (-want +got):\n%s", diff)
	}
}

func TestBadExpression(t *testing.T) {
	dir := projectDir(t)
	writeFiles(t, dir, map[string]string{"cxon.json": `{"project": "{{ no_such_var }}", "toolchain": "gnu", "sources": ["a.c"]}`})
	if _, err := Load(dir, "debug"); err == nil {
		t.Error("Load with an undefined variable succeeded; want error")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{Project: "p", Toolchain: "gnu", Sources: []string{"a.c"}}
	}

	for _, tc := range []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"no project", func(c *Config) { c.Project = "" }, ErrNoProject},
		{"no sources", func(c *Config) { c.Sources = nil }, ErrNoSources},
		{"bad target type", func(c *Config) { c.TargetType = "firmware" }, toolchain.ErrUnknownTargetType},
		{"bad toolchain", func(c *Config) { c.Toolchain = "tcc" }, toolchain.ErrUnknownToolchain},
		{"negative threads", func(c *Config) { c.Threads = -2 }, ErrBadThreads},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tc.want) {
				t.Errorf("Validate() = %v; want %v", err, tc.want)
			}
		})
	}

	cfg := valid()
	cfg.TargetType = "Shared_Lib"
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.TargetType != "shared_lib" || cfg.TargetName != "p" {
		t.Errorf("TargetType/TargetName = %q/%q", cfg.TargetType, cfg.TargetName)
	}
}

func TestApplyProfile(t *testing.T) {
	newCfg := func() *Config {
		dir := projectDir(t)
		writeFiles(t, dir, map[string]string{"cxon.json": `{
			"project": "p", "toolchain": "gnu", "sources": ["a.c"], "flags": ["-Wall"],
			"profile": {"asan": {"opt_level": "1", "flags": ["-fsanitize=address"]}}
		}`})
		cfg, err := Load(dir, "")
		if err != nil {
			t.Fatal(err)
		}
		return cfg
	}

	cfg := newCfg()
	if diff := cmp.Diff([]string{"asan", "debug", "release"}, cfg.Profiles()); diff != "" {
		t.Errorf("Profiles mismatch (-want +got):\n%s", diff)
	}

	if err := cfg.ApplyProfile("release"); err != nil {
		t.Fatal(err)
	}
	if cfg.DebugInfo() || cfg.OptLevel != "2" {
		t.Errorf("release: DebugInfo = %v, OptLevel = %q; want false, 2", cfg.DebugInfo(), cfg.OptLevel)
	}

	cfg = newCfg()
	cfg.Debug = boolPtr(true)
	if err := cfg.ApplyProfile("release"); err != nil {
		t.Fatal(err)
	}
	if !cfg.DebugInfo() {
		t.Error("explicit debug = true should win over the release profile")
	}

	cfg = newCfg()
	if err := cfg.ApplyProfile("asan"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"-Wall", "-fsanitize=address"}, cfg.Flags); diff != "" {
		t.Errorf("Flags mismatch (-want +got):\n%s", diff)
	}
	if cfg.OptLevel != "1" {
		t.Errorf("OptLevel = %q; want 1", cfg.OptLevel)
	}

	if err := newCfg().ApplyProfile("turbo"); !errors.Is(err, ErrUnknownProfile) {
		t.Errorf("ApplyProfile(turbo) = %v; want ErrUnknownProfile", err)
	}
}

func TestResolveSources(t *testing.T) {
	dir := projectDir(t)
	writeFiles(t, dir, map[string]string{
		"cxon.json":           `{"project": "p", "toolchain": "gnu", "sources": ["src/**/*.c", "main.cpp", "main.cpp"]}`,
		"src/a.c":             "",
		"src/nested/deep/b.c": "",
		"src/c.h":             "",
		"main.cpp":            "",
	})

	cfg := loadResolved(t, dir)
	want := []string{
		filepath.Join(dir, "src", "a.c"),
		filepath.Join(dir, "src", "nested", "deep", "b.c"),
		filepath.Join(dir, "main.cpp"),
		filepath.Join(dir, "main.cpp"),
	}
	if diff := cmp.Diff(want, cfg.Sources); diff != "" {
		t.Errorf("Sources mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"missing source":  `{"project": "p", "toolchain": "gnu", "sources": ["nope.c"]}`,
		"missing include": `{"project": "p", "toolchain": "gnu", "sources": ["a.c"], "include": ["nope"]}`,
		"glob no match":   `{"project": "p", "toolchain": "gnu", "sources": ["src/*.c"]}`,
	} {
		t.Run(name, func(t *testing.T) {
			dir := projectDir(t)
			writeFiles(t, dir, map[string]string{"cxon.json": doc, "a.c": ""})
			cfg, err := Load(dir, "debug")
			if err != nil {
				t.Fatal(err)
			}
			if err := cfg.Validate(); err != nil {
				t.Fatal(err)
			}
			if err := cfg.Resolve(); err == nil {
				t.Error("Resolve succeeded; want error")
			}
		})
	}
}

func TestBuildScript(t *testing.T) {
	dir := projectDir(t)
	orig := "#define VERSION 1\n"
	patched := "#define VERSION 2\n"
	dmp := diffmatchpatch.New()
	patch := dmp.PatchToText(dmp.PatchMake(orig, patched))

	writeFiles(t, dir, map[string]string{"version.h": orig})
	env := NewEnv(dir, "debug")

	cfg := &Config{Project: "p", env: env, Build: `ReadFile("version.h") contains "VERSION 1"`}
	if err := cfg.RunBuildScript(); err != nil {
		t.Errorf("RunBuildScript(contains) failed: %v", err)
	}

	cfg.Build = "Patch(\"version.h\", " + quoteExpr(patch) + ")"
	if err := cfg.RunBuildScript(); err != nil {
		t.Fatalf("RunBuildScript(Patch) failed: %v", err)
	}
	if b, _ := os.ReadFile(filepath.Join(dir, "version.h")); string(b) != patched {
		t.Errorf("version.h = %q; want %q", b, patched)
	}

	cfg.Build = "1 == 2"
	if err := cfg.RunBuildScript(); err == nil {
		t.Error("RunBuildScript(false) succeeded; want error")
	}

	cfg.Build = `ReadFile("../outside")`
	if err := cfg.RunBuildScript(); err == nil {
		t.Error("RunBuildScript reading outside the project succeeded; want error")
	}
}

// quoteExpr renders s as an expr string literal
func quoteExpr(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}

func TestOverlay(t *testing.T) {
	for _, tc := range []struct {
		name      string
		base      *bool
		section   string
		wantDebug *bool
	}{
		{"unset stays unset", nil, `{"defines": ["Y"]}`, nil},
		{"section sets debug", nil, `{"debug": false}`, boolPtr(false)},
		{"false or true", boolPtr(false), `{"debug": true}`, boolPtr(true)},
		{"true or false", boolPtr(true), `{"debug": false}`, boolPtr(true)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var section map[string]any
			if err := json.Unmarshal([]byte(tc.section), &section); err != nil {
				t.Fatal(err)
			}
			var o Config
			if err := decodeInto(section, &o); err != nil {
				t.Fatal(err)
			}
			cfg := Config{Debug: tc.base}
			cfg.overlay(section, &o)
			if diff := cmp.Diff(tc.wantDebug, cfg.Debug); diff != "" {
				t.Errorf("Debug mismatch (-want +got):\n%s", diff)
			}
		})
	}

	dst := Config{Project: "a", TargetName: "keep", Defines: []string{"X"}, Threads: 2}
	section := map[string]any{"defines": nil, "threads": nil, "export_compile_commands": nil, "profile": nil, "project": nil}
	src := Config{Project: "b", TargetName: "ignored", Defines: []string{"Y"}, Threads: 8, ExportCompileCommands: true, Profile: map[string]Profile{"x": {}}}
	dst.overlay(section, &src)
	if dst.Project != "b" || dst.TargetName != "keep" || dst.Threads != 8 || !dst.ExportCompileCommands {
		t.Errorf("overlay result = %+v", dst)
	}
	if diff := cmp.Diff([]string{"X", "Y"}, dst.Defines); diff != "" {
		t.Errorf("Defines mismatch (-want +got):\n%s", diff)
	}
	if _, ok := dst.Profile["x"]; !ok {
		t.Error("Profile map was not merged")
	}
}
