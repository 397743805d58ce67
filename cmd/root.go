// cxon [path], cxon build [path]
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/cxon-build/cxon/internal/builder"
	"github.com/cxon-build/cxon/internal/builder/gen"
	"github.com/cxon-build/cxon/internal/msg"
	"github.com/cxon-build/cxon/internal/toolchain"
	"github.com/spf13/cobra"
)

var (
	flagProfile    string
	flagThreads    int
	flagToolchain  string
	flagRebuild    bool
	flagCheckTools bool
	flagTimeout    time.Duration
	flagVerbose    bool
	flagGenerator  EnumValue = NewEnumValue(builder.GeneratorCxon, map[string]string{
		builder.GeneratorCxon:  "Use cxon's builder (default)",
		builder.GeneratorNinja: "Generate build.ninja in the build directory and run ninja",
	})
)

func doBuild(cmd *cobra.Command, args []string) {
	b := newBuilder(targetPath(args))

	if flagGenerator.Value() == builder.GeneratorNinja {
		if err := b.BuildWith(cmd.Context(), gen.NewNinjaGen()); err != nil {
			msg.Fatal("%v", err)
		}
		return
	}

	res, err := b.Build(cmd.Context())
	if err != nil {
		msg.Fatal("%v", err)
	}
	if res.Compiled == 0 && !res.Linked {
		msg.Info("no work to do.")
		return
	}
	msg.Info("built %s (%d compiled) in %s", res.Artifact, res.Compiled, res.Duration.Round(time.Millisecond))
}

var rootCmd = &cobra.Command{
	Use:   "cxon [target path]",
	Short: "Minimal C/C++ build tool",
	Long:  `Builds a C/C++ project described by cxon.json (or cxon.toml, cxon.yaml) in parallel`,
	Args:  cobra.MaximumNArgs(1),
	Run:   doBuild,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		msg.SetVerbose(flagVerbose)
	},
}

var buildCmd = &cobra.Command{
	Use:   "build [target path]",
	Short: "Build the project",
	Long:  `Build the project. If no target path is given, uses "."`,
	Args:  cobra.MaximumNArgs(1),
	Run:   doBuild,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Print every command before running it")

	addBuildFlags(rootCmd)
	rootCmd.Flags().VarP(&flagGenerator, "gen", "g", "Generator to build with, one of "+flagGenerator.HelpString())
	rootCmd.RegisterFlagCompletionFunc("gen", flagGenerator.CompletionFunc())

	// cxon build subcommand
	rootCmd.AddCommand(buildCmd)
	addBuildFlags(buildCmd)
	buildCmd.Flags().VarP(&flagGenerator, "gen", "g", "Generator to build with, one of "+flagGenerator.HelpString())
	buildCmd.RegisterFlagCompletionFunc("gen", flagGenerator.CompletionFunc())
}

// addConfigFlags registers the flags that change how the configuration is loaded
func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flagProfile, "profile", "p", "debug", "Build with the given profile")
	cmd.Flags().StringVarP(&flagToolchain, "toolchain", "t", "", "Override the configured toolchain")
	cmd.RegisterFlagCompletionFunc("toolchain", cobra.FixedCompletions(toolchain.Names, cobra.ShellCompDirectiveNoFileComp))
	cmd.Flags().IntVarP(&flagThreads, "threads", "j", 0, fmt.Sprintf("Number of compile workers (default from config, or %d)", builder.DefaultWorkers()))
}

func addBuildFlags(cmd *cobra.Command) {
	addConfigFlags(cmd)
	cmd.Flags().BoolVar(&flagRebuild, "rebuild", false, "Recompile every source and relink")
	cmd.Flags().BoolVar(&flagCheckTools, "check-tools", true, "Check that every toolchain executable is on PATH before compiling")
	cmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "Kill a compile or link command after this long (0 means never)")
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
