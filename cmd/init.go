// cxon init [name], cxon new [path]
package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cxon-build/cxon/internal/msg"
	"github.com/cxon-build/cxon/internal/toolchain"
	"github.com/fatih/color"
	"github.com/go-git/go-git/v6"
	"github.com/spf13/cobra"
)

func writefile(content string, elem ...string) {
	path := filepath.Join(elem...)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err = os.WriteFile(path, []byte(content), 0o644); err != nil {
			msg.Fatal("create file %s: %v", path, err)
		}
		fmt.Printf("%s file: %s\n", color.HiGreenString("Created"), filepath.ToSlash(path))
	}
}

func mkdir(elem ...string) {
	path := filepath.Join(elem...)
	if err := os.MkdirAll(path, 0o755); err != nil {
		msg.Fatal("mkdir %s: %v", path, err)
	}
}

func getProgramName() string {
	if len(os.Args) == 0 {
		return "cxon"
	}
	basename := filepath.Base(os.Args[0])
	return strings.TrimSuffix(basename, filepath.Ext(basename))
}

// defaultToolchain picks the first compiler family found on PATH
func defaultToolchain() string {
	if name := toolchain.Detect(exec.LookPath); name != "" {
		return name
	}
	msg.Warn("no C compiler found on PATH, defaulting to gnu")
	return "gnu"
}

// gitInit creates a repository in dir unless it's already inside one
func gitInit(dir string) {
	_, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err == nil {
		return
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		msg.Warn("not initializing a git repository: %v", err)
		return
	}
	if _, err := git.PlainInit(dir, false); err != nil {
		msg.Warn("git init %s: %v", dir, err)
		return
	}
	fmt.Printf("%s git repository: %s\n", color.HiGreenString("Initialized"), filepath.ToSlash(dir))
}

// initIn initializes a project in an existing specified directory
func initIn(dir, name, kind string) {
	targetType, err := toolchain.ParseTargetType(kind)
	if err != nil {
		msg.Fatal("%v", err)
	}
	lib := targetType != toolchain.Executable

	// cxon.json
	writefile(fmt.Sprintf(`{
    "project": %q,
    "target_type": %q,
    "toolchain": %q,
    "sources": ["src/**/*.{c,cpp,cc}"],
    "include": ["src"],
    "export_compile_commands": true
}
`, name, targetType, defaultToolchain()), dir, "cxon.json")

	mkdir(dir, "src")

	if lib {
		// src/hello_world.c
		writefile(`#include <stdio.h>
#include "hello_world.h"

void hello_world(void) {
    puts("Hello, World!");
}
`, dir, "src", "hello_world.c")

		// src/hello_world.h
		writefile(`#ifndef HELLOWORLD_H
#define HELLOWORLD_H

#ifdef __cplusplus
extern "C" {
#endif

void hello_world(void);

#ifdef __cplusplus
} // extern "C"
#endif

#endif
`, dir, "src", "hello_world.h")
	} else {
		// src/main.c
		writefile(`// You may change this to a .cpp (.cc) file if you'd like
#include <stdio.h>

int main(void) {
    puts("Hello, World!");
    return 0;
}
`, dir, "src", "main.c")
	}

	// .gitignore
	writefile(`build/
output/
compile_commands.json
`, dir, ".gitignore")

	gitInit(dir)

	programName := getProgramName()
	fmt.Printf("You can now do %s to build, or %s to build and run.\n", color.HiCyanString(programName+" "+dir), color.HiCyanString(programName+" run "+dir))
}

var flagTargetType string

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Create a new project in the current directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		initIn(".", args[0], flagTargetType)
	},
}

var newCmd = &cobra.Command{
	Use:   "new [path]",
	Short: "Create a new project in a new directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mkdir(args[0])
		initIn(args[0], filepath.Base(args[0]), flagTargetType)
	},
}

func init() {
	// cxon init subcommand
	rootCmd.AddCommand(initCmd)
	addTargetTypeFlag(initCmd)

	// cxon new subcommand
	rootCmd.AddCommand(newCmd)
	addTargetTypeFlag(newCmd)
}

func addTargetTypeFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flagTargetType, "type", "T", toolchain.Executable.String(),
		"Target type, one of ["+strings.Join(toolchain.TargetTypes(), ", ")+"]")
	cmd.RegisterFlagCompletionFunc("type", cobra.FixedCompletions(toolchain.TargetTypes(), cobra.ShellCompDirectiveNoFileComp))
}
