// Package toolchain describes compiler and linker families as plain data.
//
// A Toolchain is selected once from the configuration and then threaded through
// the compile and link stages, which never branch on the toolchain identity.
package toolchain

import (
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"strings"
)

var (
	ErrUnknownToolchain  = errors.New("unsupported toolchain")
	ErrUnknownTargetType = errors.New("unsupported target type")
)

// Names lists the supported toolchain identities in a stable order
var Names = []string{"gnu", "llvm", "msvc"}

// TargetType is the kind of artifact produced by the link stage
type TargetType int

const (
	Executable TargetType = iota
	StaticLib
	SharedLib
	ObjectLib
)

var targetTypeNames = [...]string{
	Executable: "executable",
	StaticLib:  "static_lib",
	SharedLib:  "shared_lib",
	ObjectLib:  "object_lib",
}

// TargetTypes lists the target type names accepted by ParseTargetType
func TargetTypes() []string { return slices.Clone(targetTypeNames[:]) }

func (t TargetType) String() string {
	if t < 0 || int(t) >= len(targetTypeNames) {
		return fmt.Sprintf("TargetType(%d)", int(t))
	}
	return targetTypeNames[t]
}

// ParseTargetType maps a configuration value (case-insensitive) to a TargetType
func ParseTargetType(s string) (TargetType, error) {
	i := slices.Index(targetTypeNames[:], strings.ToLower(s))
	if i < 0 {
		return 0, fmt.Errorf("%w: %q, supported target types are: %s", ErrUnknownTargetType, s, strings.Join(targetTypeNames[:], ", "))
	}
	return TargetType(i), nil
}

// LinkSpec is the command shape for one target type
type LinkSpec struct {
	// Tool is the linker or archiver executable
	Tool string
	// DebugFlag is passed first when debug info is requested, empty if the tool takes none
	DebugFlag string
	// OutputFlag precedes the output path. A last token ending in ':' is glued to the path.
	OutputFlag []string
	// Extension is appended to the output name, without the dot. Empty means none.
	Extension string
	// LinkArgs reports whether link-dir and link-lib arguments are passed to Tool
	LinkArgs bool
	// Passthrough is placed before link-dir and link-lib arguments when non-empty (cl's /link)
	Passthrough string
}

// Toolchain is a fixed table of executable names and flag tokens for one compiler family
type Toolchain struct {
	Name string

	CC  string
	CXX string

	DebugFlag       string
	CompileOnlyFlag string
	// ObjectOutputFlag precedes the object path of a compile step
	ObjectOutputFlag []string
	ObjectExtension  string
	OptFlagPrefix    string

	DefinePrefix  string
	IncludePrefix string
	LinkDirPrefix string
	LibPrefix     string
	LibSuffix     string

	Link map[TargetType]LinkSpec
}

var registry = map[string]*Toolchain{
	"gnu":  gnu,
	"llvm": llvm,
	"msvc": msvc,
}

// Lookup returns the descriptor for a toolchain identity (case-insensitive)
func Lookup(name string) (*Toolchain, error) {
	tc, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q, supported toolchains are: %s", ErrUnknownToolchain, name, strings.Join(Names, ", "))
	}
	return tc, nil
}

// WithCompilers returns a copy of tc whose C and C++ compilers are replaced by
// the non-empty arguments. tc itself is never modified.
func (tc *Toolchain) WithCompilers(cc, cxx string) *Toolchain {
	if cc == "" && cxx == "" {
		return tc
	}
	cp := *tc
	if cc != "" {
		cp.CC = cc
	}
	if cxx != "" {
		cp.CXX = cxx
	}
	return &cp
}

// LinkSpec returns the command shape for a target type
func (tc *Toolchain) LinkSpec(t TargetType) (LinkSpec, error) {
	spec, ok := tc.Link[t]
	if !ok {
		return LinkSpec{}, fmt.Errorf("%w: %s for toolchain %s", ErrUnknownTargetType, t, tc.Name)
	}
	return spec, nil
}

// OutputName appends the target type's extension to name
func (spec LinkSpec) OutputName(name string) string {
	if spec.Extension == "" {
		return name
	}
	return name + "." + spec.Extension
}

// OutputArgs renders flag followed by path, gluing the path onto a last token ending in ':'
func OutputArgs(flag []string, path string) []string {
	if len(flag) == 0 {
		return []string{path}
	}
	last := flag[len(flag)-1]
	if strings.HasSuffix(last, ":") {
		args := slices.Clone(flag[:len(flag)-1])
		return append(args, last+path)
	}
	return append(slices.Clone(flag), path)
}

func prefixed(prefix, suffix string, items []string) []string {
	args := make([]string, 0, len(items))
	for _, item := range items {
		args = append(args, prefix+item+suffix)
	}
	return args
}

func (tc *Toolchain) DefineArgs(defines []string) []string {
	return prefixed(tc.DefinePrefix, "", defines)
}

func (tc *Toolchain) IncludeArgs(dirs []string) []string {
	return prefixed(tc.IncludePrefix, "", dirs)
}

func (tc *Toolchain) LinkDirArgs(dirs []string) []string {
	return prefixed(tc.LinkDirPrefix, "", dirs)
}

// LibArgs prefixes library names, adding the suffix unless the name already carries it
func (tc *Toolchain) LibArgs(libs []string) []string {
	args := make([]string, 0, len(libs))
	for _, lib := range libs {
		if tc.LibSuffix != "" && strings.HasSuffix(lib, tc.LibSuffix) {
			args = append(args, tc.LibPrefix+lib)
			continue
		}
		args = append(args, tc.LibPrefix+lib+tc.LibSuffix)
	}
	return args
}

// OptFlag returns the optimization flag for a level, or "" for no level
func (tc *Toolchain) OptFlag(level string) string {
	if level == "" {
		return ""
	}
	return tc.OptFlagPrefix + level
}

// MissingToolError reports a required executable that isn't on the search path
type MissingToolError struct {
	Toolchain string
	Tool      string
	Err       error
}

func (e *MissingToolError) Error() string {
	return fmt.Sprintf("toolchain %s: required executable %q not found: %v", e.Toolchain, e.Tool, e.Err)
}

func (e *MissingToolError) Unwrap() error { return e.Err }

// Required lists the executables a build of target type t needs, without duplicates
func (tc *Toolchain) Required(t TargetType, needC, needCXX bool) ([]string, error) {
	spec, err := tc.LinkSpec(t)
	if err != nil {
		return nil, err
	}
	var tools []string
	add := func(tool string) {
		if tool != "" && !slices.Contains(tools, tool) {
			tools = append(tools, tool)
		}
	}
	if needC {
		add(tc.CC)
	}
	if needCXX {
		add(tc.CXX)
	}
	add(spec.Tool)
	return tools, nil
}

// LookPathFunc resolves an executable name against the search path
type LookPathFunc func(file string) (string, error)

// Check resolves every tool in Required with lookPath (exec.LookPath if nil) and
// fails with a *MissingToolError on the first one that can't be found
func (tc *Toolchain) Check(t TargetType, needC, needCXX bool, lookPath LookPathFunc) error {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	tools, err := tc.Required(t, needC, needCXX)
	if err != nil {
		return err
	}
	for _, tool := range tools {
		if _, err := lookPath(tool); err != nil {
			return &MissingToolError{Toolchain: tc.Name, Tool: tool, Err: err}
		}
	}
	return nil
}
