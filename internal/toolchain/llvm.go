package toolchain

var llvm = newLLVM(hostOS)

// newLLVM shares the GNU flag grammar; only the executables differ
func newLLVM(goos string) *Toolchain {
	return &Toolchain{
		Name:             "llvm",
		CC:               "clang",
		CXX:              "clang++",
		DebugFlag:        "-g",
		CompileOnlyFlag:  "-c",
		ObjectOutputFlag: []string{"-o"},
		ObjectExtension:  "o",
		OptFlagPrefix:    "-O",
		DefinePrefix:     "-D",
		IncludePrefix:    "-I",
		LinkDirPrefix:    "-L",
		LibPrefix:        "-l",
		Link: map[TargetType]LinkSpec{
			Executable: {
				Tool:       "clang++",
				DebugFlag:  "-g",
				OutputFlag: []string{"-o"},
				Extension:  executableExt(goos),
				LinkArgs:   true,
			},
			StaticLib: {
				Tool:       "ar",
				OutputFlag: []string{"rcs"},
				Extension:  "a",
			},
			SharedLib: {
				Tool:       "clang++",
				DebugFlag:  "-g",
				OutputFlag: []string{"-shared", "-fPIC", "-o"},
				Extension:  sharedLibExt(goos),
				LinkArgs:   true,
			},
			ObjectLib: {
				Tool:       "clang++",
				DebugFlag:  "-g",
				OutputFlag: []string{"-r", "-o"},
				Extension:  "o",
				LinkArgs:   true,
			},
		},
	}
}
