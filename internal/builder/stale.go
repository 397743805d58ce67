package builder

import (
	"os"
	"time"
)

// IsStale reports whether the object at objPath has to be regenerated from src.
// When it doesn't, the object's modification time is returned as well.
//
// An unknown source mtime always means stale. Equal timestamps do not.
func IsStale(src SourceUnit, objPath string) (bool, time.Time) {
	stat, err := os.Stat(objPath)
	if err != nil {
		return true, time.Time{}
	}
	objModified := stat.ModTime()
	if objModified.IsZero() || src.Modified.IsZero() {
		return true, time.Time{}
	}
	if src.Modified.After(objModified) {
		return true, time.Time{}
	}
	return false, objModified
}
