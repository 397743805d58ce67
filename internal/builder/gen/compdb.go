package gen

import (
	"encoding/json"
	"path/filepath"
)

// compileCommand is one entry of a JSON compilation database
type compileCommand struct {
	Directory string   `json:"directory"`
	File      string   `json:"file"`
	Arguments []string `json:"arguments"`
	Output    string   `json:"output,omitempty"`
}

// CompDB writes compile_commands.json for editors and language servers.
// Link commands are not part of the format and are ignored.
type CompDB struct {
	entries []compileCommand
}

func NewCompDB() *CompDB { return &CompDB{} }

func (g *CompDB) BuildFile() string { return "compile_commands.json" }

func (g *CompDB) AddCompile(cmd Command) {
	file := cmd.Output
	if len(cmd.Inputs) > 0 {
		file = cmd.Inputs[0]
	}
	g.entries = append(g.entries, compileCommand{
		Directory: filepath.Clean(cmd.Dir),
		File:      file,
		Arguments: cmd.Argv(),
		Output:    cmd.Output,
	})
}

func (g *CompDB) SetLink(Command) {}

func (g *CompDB) Generate() (string, error) {
	entries := g.entries
	if entries == nil {
		entries = []compileCommand{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}
