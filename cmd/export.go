// cxon export [path]
package cmd

import (
	"github.com/cxon-build/cxon/internal/builder"
	"github.com/cxon-build/cxon/internal/builder/gen"
	"github.com/cxon-build/cxon/internal/msg"
	"github.com/spf13/cobra"
)

var (
	flagExportDir    string
	flagExportFormat EnumValue = NewEnumValue("compdb", map[string]string{
		"compdb": "compile_commands.json, written to the project directory",
		"ninja":  "build.ninja, written to the build directory",
	})
)

func doExport(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(targetPath(args))
	if err != nil {
		msg.Fatal("%v", err)
	}
	b, err := builder.New(cfg, builder.Options{})
	if err != nil {
		msg.Fatal("%v", err)
	}

	var g gen.Generator
	dir := flagExportDir
	switch flagExportFormat.Value() {
	case "ninja":
		g = gen.NewNinjaGen()
		if dir == "" {
			dir = cfg.BuildDir
		}
	default:
		g = gen.NewCompDB()
		if dir == "" {
			dir = cfg.ProjectDir
		}
	}

	path, err := b.Export(g, dir)
	if err != nil {
		msg.Fatal("%v", err)
	}
	msg.Info("wrote %s", path)
}

var exportCmd = &cobra.Command{
	Use:   "export [target path]",
	Short: "Write the build commands for another tool",
	Long:  `Write compile_commands.json or build.ninja without building. If no target path is given, uses "."`,
	Args:  cobra.MaximumNArgs(1),
	Run:   doExport,
}

func init() {
	// cxon export subcommand
	rootCmd.AddCommand(exportCmd)
	addConfigFlags(exportCmd)
	exportCmd.Flags().VarP(&flagExportFormat, "format", "f", "Output format, one of "+flagExportFormat.HelpString())
	exportCmd.RegisterFlagCompletionFunc("format", flagExportFormat.CompletionFunc())
	exportCmd.Flags().StringVarP(&flagExportDir, "output", "o", "", "Directory to write the file to")
}
