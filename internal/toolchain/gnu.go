package toolchain

var gnu = newGNU(hostOS)

func newGNU(goos string) *Toolchain {
	return &Toolchain{
		Name:             "gnu",
		CC:               "gcc",
		CXX:              "g++",
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
				Tool:       "g++",
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
				Tool:       "g++",
				DebugFlag:  "-g",
				OutputFlag: []string{"-shared", "-fPIC", "-o"},
				Extension:  sharedLibExt(goos),
				LinkArgs:   true,
			},
			ObjectLib: {
				Tool:       "ld",
				DebugFlag:  "-g",
				OutputFlag: []string{"-r", "-o"},
				Extension:  "o",
				LinkArgs:   true,
			},
		},
	}
}
