package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/cxon-build/cxon/internal/builder/gen"
	"github.com/cxon-build/cxon/internal/config"
	"github.com/cxon-build/cxon/internal/msg"
	"github.com/cxon-build/cxon/internal/toolchain"
)

var errCantRunLib = errors.New("can't run a library target (target_type is not executable)")

const (
	GeneratorCxon  = "cxon"
	GeneratorNinja = "ninja"
)

// Generators lists the accepted --gen values
var Generators = []string{GeneratorCxon, GeneratorNinja}

type Options struct {
	// Rebuild treats every unit as stale and always relinks
	Rebuild bool
	// CheckTools looks up every required executable on the search path before compiling
	CheckTools bool

	// Runner defaults to an ExecRunner without a timeout
	Runner Runner
	// Clock defaults to the real clock
	Clock clock.Clock
	// LookPath defaults to exec.LookPath
	LookPath toolchain.LookPathFunc
}

// Builder runs one build of a resolved configuration. The configuration is
// treated as read-only.
type Builder struct {
	cfg  *config.Config
	tc   *toolchain.Toolchain
	kind toolchain.TargetType
	opts Options

	runner   Runner
	clock    clock.Clock
	lookPath toolchain.LookPathFunc
}

// Result describes a successful build
type Result struct {
	Artifact string
	Objects  []Object
	// Compiled counts units whose compiler actually ran
	Compiled int
	Linked   bool
	Duration time.Duration
}

// New prepares a builder for cfg, which must already be validated and resolved
func New(cfg *config.Config, opts Options) (*Builder, error) {
	tc, err := cfg.Tools()
	if err != nil {
		return nil, err
	}
	kind, err := cfg.TargetKind()
	if err != nil {
		return nil, err
	}

	b := &Builder{
		cfg:      cfg,
		tc:       tc,
		kind:     kind,
		opts:     opts,
		runner:   opts.Runner,
		clock:    opts.Clock,
		lookPath: opts.LookPath,
	}
	if b.runner == nil {
		b.runner = ExecRunner{}
	}
	if b.clock == nil {
		b.clock = clock.NewClock()
	}
	if b.lookPath == nil {
		b.lookPath = exec.LookPath
	}
	return b, nil
}

func (b *Builder) Toolchain() *toolchain.Toolchain { return b.tc }

// Sources builds the source units in configuration order
func (b *Builder) Sources() ([]SourceUnit, error) {
	return sourceUnits(b.cfg.Sources)
}

func needsLanguages(units []SourceUnit) (needC, needCXX bool) {
	for _, unit := range units {
		if unit.Lang == LangCXX {
			needCXX = true
		} else {
			needC = true
		}
	}
	return needC, needCXX
}

// prepare runs everything that must succeed before the first compiler starts
func (b *Builder) prepare() ([]SourceUnit, error) {
	if err := b.cfg.RunBuildScript(); err != nil {
		return nil, err
	}

	units, err := b.Sources()
	if err != nil {
		return nil, err
	}

	if b.opts.CheckTools {
		needC, needCXX := needsLanguages(units)
		if err := b.tc.Check(b.kind, needC, needCXX, b.lookPath); err != nil {
			return nil, err
		}
	}
	return units, nil
}

// Build compiles every stale unit in parallel, links the artifact and, when
// configured, exports the compile command database
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := b.clock.Now()

	units, err := b.prepare()
	if err != nil {
		return nil, err
	}

	objs, err := b.compileAll(ctx, units)
	if err != nil {
		return nil, err
	}

	compiled := 0
	for _, obj := range objs {
		if obj.Fresh {
			compiled++
		}
	}

	artifact, linked, err := b.link(ctx, objs)
	if err != nil {
		return nil, err
	}

	if b.cfg.ExportCompileCommands {
		path, err := b.Export(gen.NewCompDB(), b.cfg.ExportCompileCommandsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to export compile commands: %w", err)
		}
		msg.Debug("wrote %s", path)
	}

	return &Result{
		Artifact: artifact,
		Objects:  objs,
		Compiled: compiled,
		Linked:   linked,
		Duration: b.clock.Since(start),
	}, nil
}

// Export renders the commands of a full rebuild with g and writes the result
// to dir/g.BuildFile()
func (b *Builder) Export(g gen.Generator, dir string) (string, error) {
	units, err := b.Sources()
	if err != nil {
		return "", err
	}

	objs := make([]Object, 0, len(units))
	for _, unit := range units {
		cmd := b.compileCommand(unit, b.objectPath(unit))
		g.AddCompile(cmd)
		objs = append(objs, Object{Path: cmd.Output, Source: unit.Path, Linkable: !unit.Header})
	}

	link, err := b.linkCommand(objs)
	switch {
	case errors.Is(err, ErrNoObjects):
		msg.Warn("no linkable sources, the generated file has no link step")
	case err != nil:
		return "", err
	default:
		g.SetLink(link)
	}

	out, err := g.Generate()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, g.BuildFile())
	if err := os.WriteFile(path, []byte(out), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// BuildWith writes a build file for an external tool into the build directory
// and runs that tool
func (b *Builder) BuildWith(ctx context.Context, g gen.Generator) error {
	if _, err := b.prepare(); err != nil {
		return err
	}
	if _, err := b.Export(g, b.cfg.BuildDir); err != nil {
		return err
	}
	invoker, ok := g.(gen.Invoker)
	if !ok {
		return fmt.Errorf("generator for %s can't be invoked", g.BuildFile())
	}
	return invoker.Invoke(ctx, b.cfg.BuildDir)
}

// BuildAndRun builds an executable target and runs it with inherited stdio
func (b *Builder) BuildAndRun(ctx context.Context, args []string) error {
	if b.kind != toolchain.Executable {
		return errCantRunLib
	}

	res, err := b.Build(ctx)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, res.Artifact, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	return cmd.Run()
}
