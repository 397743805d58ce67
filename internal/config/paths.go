package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cxon-build/cxon/internal/msg"
)

// canonical returns the absolute path with symlinks evaluated
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return filepath.Clean(resolved), nil
}

// Canonical is exported for collaborators (the builder canonicalizes source units with it)
func Canonical(path string) (string, error) { return canonical(path) }

func (c *Config) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(c.ProjectDir, path)
}

// initDir resolves a directory relative to the project, creating it when create is set
func (c *Config) initDir(path string, create bool) (string, error) {
	path = c.abs(path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if !create {
			return "", fmt.Errorf("directory %s does not exist", path)
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", err
		}
	} else if err != nil {
		return "", err
	}
	return canonical(path)
}

func (c *Config) initDirs(paths []string) ([]string, error) {
	dirs := make([]string, 0, len(paths))
	for _, path := range paths {
		dir, err := c.initDir(path, false)
		if err != nil {
			return nil, err
		}
		dirs = append(dirs, dir)
	}
	return dirs, nil
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// resolveSources expands globs and canonicalizes every source path. Order is
// kept and duplicates are not removed.
func (c *Config) resolveSources() ([]string, error) {
	var files []string
	fsys := os.DirFS(c.ProjectDir)

	for _, pat := range c.Sources {
		if !hasMeta(pat) {
			path := c.abs(pat)
			if _, err := os.Stat(path); err != nil {
				return nil, fmt.Errorf("source file %s: %w", path, err)
			}
			resolved, err := canonical(path)
			if err != nil {
				return nil, err
			}
			files = append(files, resolved)
			continue
		}

		var matches []string
		var err error
		if filepath.IsAbs(pat) {
			matches, err = doublestar.FilepathGlob(pat, doublestar.WithFilesOnly())
		} else {
			matches, err = doublestar.Glob(fsys, filepath.ToSlash(pat), doublestar.WithFilesOnly())
		}
		if err != nil {
			return nil, fmt.Errorf("while globbing %s: %w", pat, err)
		}
		slices.Sort(matches)
		if len(matches) == 0 {
			msg.Warn("source pattern %q matched no files", pat)
		}
		for _, match := range matches {
			resolved, err := canonical(c.abs(filepath.FromSlash(match)))
			if err != nil {
				return nil, fmt.Errorf("while globbing %s: %w", pat, err)
			}
			files = append(files, resolved)
		}
	}

	if len(files) == 0 {
		return nil, ErrNoSources
	}
	return files, nil
}

// Resolve makes every path absolute and canonical, creating the build, output
// and export directories. Call Validate first.
func (c *Config) Resolve() error {
	if c.ProjectDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		c.ProjectDir = wd
	}
	projectDir, err := canonical(c.ProjectDir)
	if err != nil {
		return err
	}
	c.ProjectDir = projectDir

	if c.BuildDir == "" {
		c.BuildDir = DefaultBuildDir
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.BuildDir, err = c.initDir(c.BuildDir, true); err != nil {
		return fmt.Errorf("build_dir: %w", err)
	}
	if c.OutputDir, err = c.initDir(c.OutputDir, true); err != nil {
		return fmt.Errorf("output_dir: %w", err)
	}

	if c.ExportCompileCommands {
		if c.ExportCompileCommandsPath == "" {
			c.ExportCompileCommandsPath = c.ProjectDir
		}
		if c.ExportCompileCommandsPath, err = c.initDir(c.ExportCompileCommandsPath, true); err != nil {
			return fmt.Errorf("export_compile_commands_path: %w", err)
		}
	}

	if c.Sources, err = c.resolveSources(); err != nil {
		return err
	}
	if c.Include, err = c.initDirs(c.Include); err != nil {
		return fmt.Errorf("include: %w", err)
	}
	if c.Link, err = c.initDirs(c.Link); err != nil {
		return fmt.Errorf("link: %w", err)
	}
	return nil
}
