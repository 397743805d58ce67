package toolchain

var msvc = newMSVC()

func newMSVC() *Toolchain {
	return &Toolchain{
		Name:             "msvc",
		CC:               "cl",
		CXX:              "cl",
		DebugFlag:        "/Zi",
		CompileOnlyFlag:  "/c",
		ObjectOutputFlag: []string{"/Fo:"},
		ObjectExtension:  "obj",
		OptFlagPrefix:    "/O",
		DefinePrefix:     "/D",
		IncludePrefix:    "/I",
		LinkDirPrefix:    "/LIBPATH:",
		LibSuffix:        ".lib",
		Link: map[TargetType]LinkSpec{
			Executable: {
				Tool:        "cl",
				DebugFlag:   "/Zi",
				OutputFlag:  []string{"/Fe:"},
				Extension:   "exe",
				LinkArgs:    true,
				Passthrough: "/link",
			},
			StaticLib: {
				Tool:       "lib",
				OutputFlag: []string{"/OUT:"},
				Extension:  "lib",
				LinkArgs:   true,
			},
			SharedLib: {
				Tool:       "link",
				DebugFlag:  "/DEBUG",
				OutputFlag: []string{"/DLL", "/OUT:"},
				Extension:  "dll",
				LinkArgs:   true,
			},
			// lib has no relocatable merge; it bundles the objects into one COFF archive
			ObjectLib: {
				Tool:       "lib",
				OutputFlag: []string{"/OUT:"},
				Extension:  "obj",
				LinkArgs:   true,
			},
		},
	}
}
