package builder

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/cxon-build/cxon/internal/builder/gen"
	"github.com/cxon-build/cxon/internal/msg"
	"github.com/cxon-build/cxon/internal/toolchain"
)

var ErrNoObjects = errors.New("no objects to link")

// linkCommand renders the single link step for the configured target type
func (b *Builder) linkCommand(objs []Object) (gen.Command, error) {
	spec, err := b.tc.LinkSpec(b.kind)
	if err != nil {
		return gen.Command{}, err
	}
	inputs := linkInputs(objs)
	if len(inputs) == 0 {
		return gen.Command{}, ErrNoObjects
	}
	out := filepath.Join(b.cfg.OutputDir, spec.OutputName(b.cfg.TargetName))

	var args []string
	if b.cfg.DebugInfo() && spec.DebugFlag != "" {
		args = append(args, spec.DebugFlag)
	}
	switch b.kind {
	case toolchain.StaticLib, toolchain.SharedLib:
		args = append(args, toolchain.OutputArgs(spec.OutputFlag, out)...)
		args = append(args, inputs...)
	default:
		args = append(args, inputs...)
		args = append(args, toolchain.OutputArgs(spec.OutputFlag, out)...)
	}

	linkArgs := append(b.tc.LinkDirArgs(b.cfg.Link), b.tc.LibArgs(b.cfg.Libs)...)
	switch {
	case len(linkArgs) == 0:
	case !spec.LinkArgs:
		msg.Warn("%s does not take library arguments for a %s target, ignoring link and libs", spec.Tool, b.kind)
	default:
		if spec.Passthrough != "" {
			args = append(args, spec.Passthrough)
		}
		args = append(args, linkArgs...)
	}

	return gen.Command{
		Dir:    b.cfg.ProjectDir,
		Tool:   spec.Tool,
		Args:   args,
		Inputs: inputs,
		Output: out,
	}, nil
}

// linkStampFile records the last successful link command in the build directory
const linkStampFile = ".cxon_link"

func (b *Builder) linkStampPath() string {
	return filepath.Join(b.cfg.BuildDir, linkStampFile)
}

func readLinkStamp(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var argv []string
	if err := json.Unmarshal(data, &argv); err != nil {
		msg.Debug("ignoring malformed link stamp %s: %v", path, err)
		return nil
	}
	return argv
}

func writeLinkStamp(path string, argv []string) error {
	data, err := json.Marshal(argv)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// linkUpToDate reports whether the last link ran exactly cmd, the artifact is
// at least as new as every object and none of them was recompiled in this run
func linkUpToDate(cmd gen.Command, stamp []string, objs []Object) bool {
	if !slices.Equal(stamp, cmd.Argv()) {
		return false
	}
	stat, err := os.Stat(cmd.Output)
	if err != nil {
		return false
	}
	var newest time.Time
	for _, obj := range objs {
		if obj.Fresh {
			return false
		}
		if obj.Modified.After(newest) {
			newest = obj.Modified
		}
	}
	return !stat.ModTime().Before(newest)
}

// link runs the link step and reports whether it actually ran
func (b *Builder) link(ctx context.Context, objs []Object) (string, bool, error) {
	cmd, err := b.linkCommand(objs)
	if err != nil {
		return "", false, err
	}

	stampPath := b.linkStampPath()
	if !b.opts.Rebuild && linkUpToDate(cmd, readLinkStamp(stampPath), objs) {
		msg.Debug("%s is up to date", b.relPath(cmd.Output))
		return cmd.Output, false, nil
	}

	verb := "LINK"
	if b.kind == toolchain.StaticLib {
		verb = "AR"
	}
	msg.NewProgress(1).Step(verb, b.relPath(cmd.Output))
	msg.Debug("%s", msg.EscapeSlice(cmd.Argv()))

	if b.kind == toolchain.StaticLib {
		// archivers update members in place, so dropped objects would survive
		if err := os.Remove(cmd.Output); err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", false, err
		}
	}
	if err := b.runner.Run(ctx, cmd.Tool, cmd.Args...); err != nil {
		os.Remove(stampPath)
		return "", false, &CommandError{Step: "linking " + b.relPath(cmd.Output), Argv: cmd.Argv(), Err: err}
	}
	if err := writeLinkStamp(stampPath, cmd.Argv()); err != nil {
		msg.Warn("failed to record link command: %v", err)
	}
	return cmd.Output, true, nil
}
