package toolchain

import "runtime"

// executableExt and sharedLibExt follow the host platform for the GNU-style toolchains
func executableExt(goos string) string {
	if goos == "windows" {
		return "exe"
	}
	return ""
}

func sharedLibExt(goos string) string {
	switch goos {
	case "windows":
		return "dll"
	case "darwin", "ios":
		return "dylib"
	default:
		return "so"
	}
}

var hostOS = runtime.GOOS
