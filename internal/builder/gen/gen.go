package gen

import "context"

// Command is one fully rendered compile or link step
type Command struct {
	// Dir is the working directory the command is run from
	Dir  string
	Tool string
	Args []string
	// Inputs are the source for a compile step, the objects for a link step
	Inputs []string
	Output string
}

// Argv returns the tool followed by its arguments
func (c Command) Argv() []string {
	return append([]string{c.Tool}, c.Args...)
}

// Generator renders compile and link commands into a build file for another tool
type Generator interface {
	AddCompile(cmd Command)
	SetLink(cmd Command)
	Generate() (string, error)
	BuildFile() string
}

// Invoker is implemented by generators whose build file can be executed
type Invoker interface {
	Invoke(ctx context.Context, buildDir string) error
}
