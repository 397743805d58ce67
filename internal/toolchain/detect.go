package toolchain

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// tried in order; the first compiler found on the search path wins
var commonCompilers = []struct {
	tool, toolchain string
}{
	{"clang", "llvm"},
	{"gcc", "gnu"},
	{"cl", "msvc"},
}

// Detect guesses a toolchain identity for the current machine. $CC is
// consulted first, then the search path. It returns "" when nothing is found.
func Detect(lookPath LookPathFunc) string {
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	if cc := os.Getenv("CC"); cc != "" {
		if name := fromCompilerName(cc); name != "" {
			return name
		}
	}

	for _, c := range commonCompilers {
		if _, err := lookPath(c.tool); err == nil {
			return c.toolchain
		}
	}
	return ""
}

func fromCompilerName(cc string) string {
	base := strings.ToLower(filepath.Base(cc))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	switch {
	case strings.Contains(base, "clang"):
		return "llvm"
	case strings.Contains(base, "gcc"), strings.Contains(base, "g++"), base == "cc", base == "c++":
		return "gnu"
	case base == "cl":
		return "msvc"
	}
	return ""
}
