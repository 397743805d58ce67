package gen

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/cxon-build/cxon/internal/msg"
)

type ninjaEdge struct {
	rule string
	cmd  Command
}

// NinjaGen writes a build.ninja whose edges carry the exact command lines the
// builtin builder would run
type NinjaGen struct {
	// Quote renders an argument vector as one command line
	Quote func([]string) string

	compiles []ninjaEdge
	outputs  map[string]bool
	link     *ninjaEdge
}

func NewNinjaGen() *NinjaGen {
	quote := msg.EscapeSlice
	if runtime.GOOS == "windows" {
		quote = windowsCommandLine
	}
	return &NinjaGen{Quote: quote, outputs: make(map[string]bool)}
}

func (g *NinjaGen) BuildFile() string { return "build.ninja" }

func write(sb *strings.Builder, s ...string) {
	for _, str := range s {
		sb.WriteString(str)
	}
}

func writeln(sb *strings.Builder, s ...string) {
	write(sb, s...)
	sb.WriteByte('\n')
}

var ninjaPathEscaper = strings.NewReplacer("$", "$$", ":", "$:", " ", "$ ", "\n", "$\n")

func quote(s string) string { return ninjaPathEscaper.Replace(filepath.ToSlash(s)) }

var ninjaValueEscaper = strings.NewReplacer("$", "$$", "\n", "$\n")

// AddCompile adds an object edge. A second edge for the same object is dropped
// since ninja refuses multiple rules generating one output.
func (g *NinjaGen) AddCompile(cmd Command) {
	if g.outputs == nil {
		g.outputs = make(map[string]bool)
	}
	if g.outputs[cmd.Output] {
		msg.Warn("ninja: %s is generated more than once, keeping the first edge", cmd.Output)
		return
	}
	g.outputs[cmd.Output] = true
	g.compiles = append(g.compiles, ninjaEdge{rule: "cc", cmd: cmd})
}

func (g *NinjaGen) SetLink(cmd Command) {
	g.link = &ninjaEdge{rule: "link", cmd: cmd}
}

func (g *NinjaGen) writeEdge(sb *strings.Builder, edge ninjaEdge) {
	write(sb, "build ", quote(edge.cmd.Output), ": ", edge.rule)
	for _, in := range edge.cmd.Inputs {
		write(sb, " ", quote(in))
	}
	writeln(sb)
	quoteArgs := g.Quote
	if quoteArgs == nil {
		quoteArgs = msg.EscapeSlice
	}
	writeln(sb, "  cmd = ", ninjaValueEscaper.Replace(quoteArgs(edge.cmd.Argv())))
}

func (g *NinjaGen) Generate() (string, error) {
	var sb strings.Builder

	writeln(&sb, "ninja_required_version = 1.3")
	writeln(&sb)

	write(&sb,
		`rule cc
  command = $cmd
  description = CC $out
`)
	write(&sb,
		`rule link
  command = $cmd
  description = LINK $out
`)
	writeln(&sb)

	for _, edge := range g.compiles {
		g.writeEdge(&sb, edge)
	}

	if g.link != nil {
		writeln(&sb)
		g.writeEdge(&sb, *g.link)
		writeln(&sb)
		writeln(&sb, "default ", quote(g.link.cmd.Output))
	}

	return sb.String(), nil
}

func (g *NinjaGen) Invoke(ctx context.Context, buildDir string) error {
	cmd := exec.CommandContext(ctx, "ninja", "-C", buildDir, "-f", g.BuildFile())
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}

// windowsCommandLine joins args the way CreateProcess splits them
func windowsCommandLine(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = windowsQuote(arg)
	}
	return strings.Join(quoted, " ")
}

func windowsQuote(arg string) string {
	if arg != "" && !strings.ContainsAny(arg, " \t\"") {
		return arg
	}
	var sb strings.Builder
	sb.WriteByte('"')
	slashes := 0
	for _, r := range arg {
		switch r {
		case '\\':
			slashes++
		case '"':
			// backslashes before a quote are doubled, plus one for the quote
			sb.WriteString(strings.Repeat(`\`, slashes+1))
			slashes = 0
		default:
			slashes = 0
		}
		sb.WriteRune(r)
	}
	// the closing quote doubles any trailing backslashes
	sb.WriteString(strings.Repeat(`\`, slashes))
	sb.WriteByte('"')
	return sb.String()
}
