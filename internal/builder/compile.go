package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync"

	"github.com/cxon-build/cxon/internal/builder/gen"
	"github.com/cxon-build/cxon/internal/msg"
	"github.com/cxon-build/cxon/internal/toolchain"
	"github.com/shirou/gopsutil/v3/cpu"
	"golang.org/x/sync/errgroup"
)

// unitQueue hands out source units to workers; each unit is taken exactly once
type unitQueue struct {
	mu    sync.Mutex
	units []SourceUnit
	next  int
}

func newUnitQueue(units []SourceUnit) *unitQueue {
	return &unitQueue{units: slices.Clone(units)}
}

// pop returns the next unit and its position in the source list
func (q *unitQueue) pop() (int, SourceUnit, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.next == len(q.units) {
		return 0, SourceUnit{}, false
	}
	seq := q.next
	q.next++
	return seq, q.units[seq], true
}

// cpuCount prefers the logical CPU count reported by the OS
func cpuCount() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// DefaultWorkers is the worker count used when none is configured: one less
// than the number of CPUs, but at least one
func DefaultWorkers() int {
	return max(cpuCount()-1, 1)
}

func (b *Builder) workerCount() int {
	if b.cfg.Threads > 0 {
		return b.cfg.Threads
	}
	return DefaultWorkers()
}

// compileCommand renders the compile step for unit. The argument order is
// debug flag, compile-only flag, source, object output, includes, defines, then flags.
func (b *Builder) compileCommand(unit SourceUnit, obj string) gen.Command {
	tool := b.tc.CC
	if unit.Lang == LangCXX {
		tool = b.tc.CXX
	}

	var args []string
	if b.cfg.DebugInfo() && b.tc.DebugFlag != "" {
		args = append(args, b.tc.DebugFlag)
	}
	args = append(args, b.tc.CompileOnlyFlag, unit.Path)
	args = append(args, toolchain.OutputArgs(b.tc.ObjectOutputFlag, obj)...)
	args = append(args, b.tc.IncludeArgs(b.cfg.Include)...)
	args = append(args, b.tc.DefineArgs(b.cfg.Defines)...)
	if opt := b.tc.OptFlag(b.cfg.OptLevel); opt != "" {
		args = append(args, opt)
	}
	args = append(args, b.cfg.CompileFlags(unit.Lang == LangCXX)...)

	return gen.Command{
		Dir:    b.cfg.ProjectDir,
		Tool:   tool,
		Args:   args,
		Inputs: []string{unit.Path},
		Output: obj,
	}
}

func (b *Builder) objectPath(unit SourceUnit) string {
	return ObjectPath(b.cfg.BuildDir, b.cfg.ProjectDir, unit.Path, b.tc.ObjectExtension)
}

func (b *Builder) relPath(path string) string {
	if rel, err := filepath.Rel(b.cfg.ProjectDir, path); err == nil {
		return rel
	}
	return path
}

// compileUnit compiles a stale unit or reuses its up-to-date object
func (b *Builder) compileUnit(ctx context.Context, seq int, unit SourceUnit, progress *msg.Progress) (Object, error) {
	objPath := b.objectPath(unit)
	obj := Object{Path: objPath, Source: unit.Path, Linkable: !unit.Header, seq: seq}

	if !b.opts.Rebuild {
		if stale, modified := IsStale(unit, objPath); !stale {
			if msg.Verbose() {
				progress.Step("CACHED", b.relPath(unit.Path))
			} else {
				progress.Skip()
			}
			obj.Modified = modified
			return obj, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(objPath), 0755); err != nil {
		return Object{}, fmt.Errorf("failed to create object directory: %w", err)
	}

	cmd := b.compileCommand(unit, objPath)
	verb := "CC"
	if unit.Lang == LangCXX {
		verb = "CXX"
	}
	progress.Step(verb, b.relPath(unit.Path))
	msg.Debug("%s", msg.EscapeSlice(cmd.Argv()))

	if err := b.runner.Run(ctx, cmd.Tool, cmd.Args...); err != nil {
		return Object{}, &CommandError{Step: "compiling " + b.relPath(unit.Path), Argv: cmd.Argv(), Err: err}
	}

	obj.Modified = b.clock.Now()
	obj.Fresh = true
	return obj, nil
}

// compileAll drains the unit queue with a fixed number of workers. The first
// failure cancels the remaining work and is returned. Objects come back in
// source list order.
func (b *Builder) compileAll(ctx context.Context, units []SourceUnit) ([]Object, error) {
	objects := &ObjectCollection{}
	if len(units) == 0 {
		return objects.Freeze(), nil
	}

	queue := newUnitQueue(units)
	progress := msg.NewProgress(len(units))
	workers := b.workerCount()
	msg.Debug("compiling %d source file(s) with %d worker(s)", len(units), workers)

	eg, ctx := errgroup.WithContext(ctx)
	for range workers {
		eg.Go(func() error {
			for {
				if err := ctx.Err(); err != nil {
					return err
				}
				seq, unit, ok := queue.pop()
				if !ok {
					return nil
				}
				obj, err := b.compileUnit(ctx, seq, unit, progress)
				if err != nil {
					return err
				}
				objects.Add(obj)
			}
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	// workers finish in any order; the link command follows the source list
	objs := objects.Freeze()
	slices.SortFunc(objs, func(a, b Object) int { return a.seq - b.seq })
	progress.Finish(fmt.Sprintf("compile phase (%d object(s))", len(objs)))
	return objs, nil
}
