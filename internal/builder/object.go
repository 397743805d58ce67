package builder

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cxon-build/cxon/internal/msg"
)

// Object is the compiled-but-unlinked output of one source unit
type Object struct {
	Path   string
	Source string
	// Modified is "now" for a fresh compile, the on-disk mtime for a reused object
	Modified time.Time
	// Fresh is set when the object was compiled during this run
	Fresh bool
	// Linkable is false for header units, whose output is never passed to the linker
	Linkable bool

	seq int
}

// ObjectCollection is an append-only multiset of objects shared by compilation workers
type ObjectCollection struct {
	mu      sync.Mutex
	objects []Object
	frozen  bool
}

// Add appends obj. It panics once the collection has been frozen.
func (c *ObjectCollection) Add(obj Object) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frozen {
		panic("builder: Add on a frozen ObjectCollection")
	}
	c.objects = append(c.objects, obj)
}

// Freeze ends the compile phase and hands out the objects for linking
func (c *ObjectCollection) Freeze() []Object {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frozen = true
	return c.objects
}

// linkInputs returns the paths of the linkable objects
func linkInputs(objs []Object) []string {
	paths := make([]string, 0, len(objs))
	for _, obj := range objs {
		if obj.Linkable {
			paths = append(paths, obj.Path)
		}
	}
	return paths
}

// externalDir holds objects of sources outside the project, one subdirectory per source directory
const externalDir = "_ext"

// ObjectPath maps a source to buildDir/<path relative to projectDir> with its
// extension replaced by ext. Sources outside projectDir go to
// buildDir/_ext/<hash of their directory>/<base name>.
func ObjectPath(buildDir, projectDir, src, ext string) string {
	rel, err := filepath.Rel(projectDir, src)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		sum := sha256.Sum256([]byte(filepath.Dir(src)))
		rel = filepath.Join(externalDir, hex.EncodeToString(sum[:6]), filepath.Base(src))
		msg.Debug("source file %s is outside of project directory %s", src, projectDir)
	}
	return filepath.Join(buildDir, strings.TrimSuffix(rel, filepath.Ext(rel))+"."+ext)
}
