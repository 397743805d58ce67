// cxon run [path] [args...]
package cmd

import (
	"github.com/cxon-build/cxon/internal/msg"
	"github.com/spf13/cobra"
)

func doRun(cmd *cobra.Command, args []string) {
	target := targetPath(args)
	if len(args) > 0 {
		args = args[1:] // other arguments will be passed to program
	}
	b := newBuilder(target)
	if err := b.BuildAndRun(cmd.Context(), args); err != nil {
		msg.Fatal("%v", err)
	}
}

var runCmd = &cobra.Command{
	Use:   "run [target path] [args...]",
	Short: "Build and run the project",
	Long:  `Build and run an executable project. If no target path is given, uses "."`,
	Args:  cobra.ArbitraryArgs,
	Run:   doRun,
}

func init() {
	// cxon run subcommand
	rootCmd.AddCommand(runCmd)
	addBuildFlags(runCmd)
}
