package cmd

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/cxon-build/cxon/internal/builder"
	"github.com/cxon-build/cxon/internal/config"
	"github.com/cxon-build/cxon/internal/msg"
	"github.com/spf13/cobra"
)

type EnumValue struct {
	value      string
	allowed    map[string]string // value -> help text
	defaultVal string
}

func NewEnumValue(defaultVal string, allowed map[string]string) EnumValue {
	if _, ok := allowed[defaultVal]; !ok {
		panic(fmt.Sprintf("default value %q not in allowed set", defaultVal))
	}
	return EnumValue{
		value:      defaultVal,
		allowed:    allowed,
		defaultVal: defaultVal,
	}
}

func (e *EnumValue) String() string     { return e.value }
func (e *EnumValue) HelpString() string { return "[" + strings.Join(e.AllowedKeys(), ", ") + "]" }
func (e *EnumValue) Type() string       { return "enum" }
func (e *EnumValue) Value() string      { return e.value }

func (e *EnumValue) Set(v string) error {
	if _, ok := e.allowed[v]; ok {
		e.value = v
		return nil
	}
	return fmt.Errorf("must be one of: %s", strings.Join(e.AllowedKeys(), ", "))
}

func (e *EnumValue) AllowedKeys() []string {
	return slices.Sorted(maps.Keys(e.allowed))
}

func (e *EnumValue) CompletionFunc() func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		items := make([]string, 0, len(e.allowed))
		for _, k := range e.AllowedKeys() {
			if help := e.allowed[k]; help != "" {
				items = append(items, fmt.Sprintf("%s\t%s", k, help))
			} else {
				items = append(items, k)
			}
		}
		return items, cobra.ShellCompDirectiveNoFileComp
	}
}

// targetPath returns the project path argument, "." if none was given
func targetPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// loadConfig loads the configuration at target and applies command-line
// overrides, the selected profile, validation and path resolution
func loadConfig(target string) (*config.Config, error) {
	cfg, err := config.Load(target, flagProfile)
	if err != nil {
		return nil, err
	}
	if flagToolchain != "" {
		cfg.Toolchain = flagToolchain
	}
	if flagThreads > 0 {
		cfg.Threads = flagThreads
	}
	if err := cfg.ApplyProfile(flagProfile); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.File, err)
	}
	if err := cfg.Resolve(); err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.File, err)
	}
	msg.Debug("loaded %s (toolchain %s, target %s %s)", cfg.File, cfg.Toolchain, cfg.TargetType, cfg.TargetName)
	return cfg, nil
}

// newBuilder loads target and prepares a builder with the command-line options
func newBuilder(target string) *builder.Builder {
	cfg, err := loadConfig(target)
	if err != nil {
		msg.Fatal("%v", err)
	}
	b, err := builder.New(cfg, builder.Options{
		Rebuild:    flagRebuild,
		CheckTools: flagCheckTools,
		Runner:     builder.ExecRunner{Timeout: flagTimeout},
	})
	if err != nil {
		msg.Fatal("%v", err)
	}
	return b
}
