package builder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cxon-build/cxon/internal/config"
)

var (
	ErrUnsupportedExtension = errors.New("unsupported source file extension")
	ErrSourceNotFound       = errors.New("source file does not exist")
)

// Language selects the C or C++ compiler for a unit
type Language int

const (
	LangC Language = iota
	LangCXX
)

func (l Language) String() string {
	if l == LangCXX {
		return "C++"
	}
	return "C"
}

type sourceKind struct {
	lang   Language
	header bool
}

var sourceKinds = map[string]sourceKind{
	"c":   {LangC, false},
	"cpp": {LangCXX, false},
	"cxx": {LangCXX, false},
	"cc":  {LangCXX, false},
	"h":   {LangC, true},
	"hpp": {LangCXX, true},
	"hh":  {LangCXX, true},
	"hxx": {LangCXX, true},
}

// SourceUnit is one translation unit. It is immutable once constructed.
type SourceUnit struct {
	// Path is absolute and canonical
	Path   string
	Lang   Language
	Header bool
	// Modified is the zero time when the filesystem couldn't report it
	Modified time.Time
}

// NewSourceUnit validates the extension, canonicalizes path and records its mtime
func NewSourceUnit(path string) (SourceUnit, error) {
	// extensions are matched exactly: ".C" is not ".c"
	kind, ok := sourceKinds[strings.TrimPrefix(filepath.Ext(path), ".")]
	if !ok {
		return SourceUnit{}, fmt.Errorf("%w: %s", ErrUnsupportedExtension, path)
	}

	canonical, err := config.Canonical(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return SourceUnit{}, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return SourceUnit{}, fmt.Errorf("invalid source file %s: %w", path, err)
	}

	src := SourceUnit{
		Path:   canonical,
		Lang:   kind.lang,
		Header: kind.header,
	}
	if stat, err := os.Stat(canonical); err == nil {
		src.Modified = stat.ModTime()
	}
	return src, nil
}

// sourceUnits builds a unit per configured path, in order, stopping at the first invalid one
func sourceUnits(paths []string) ([]SourceUnit, error) {
	units := make([]SourceUnit, 0, len(paths))
	for _, path := range paths {
		unit, err := NewSourceUnit(path)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, nil
}
