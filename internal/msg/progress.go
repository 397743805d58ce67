package msg

import (
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Progress counts finished build steps and prints one line per step.
// It is safe for concurrent use by compilation workers.
type Progress struct {
	Total int
	Start time.Time

	mu      sync.Mutex
	current int
}

func NewProgress(total int) *Progress {
	return &Progress{
		Total: total,
		Start: time.Now(),
	}
}

// Step advances the counter and prints `[i/N] VERB path`
func (p *Progress) Step(verb, path string) {
	p.mu.Lock()
	p.current++
	current := p.current
	p.mu.Unlock()

	width := len(strconv.Itoa(max(p.Total, 1)))
	line := fmt.Sprintf("[%*d/%d] %s %s\n", width, current, p.Total, verbColor(verb), path)

	mu.Lock()
	io.WriteString(out, line)
	mu.Unlock()
}

// Skip advances the counter without printing anything
func (p *Progress) Skip() {
	p.mu.Lock()
	p.current++
	p.mu.Unlock()
}

// Current returns how many steps have been reported so far
func (p *Progress) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Finish reports the elapsed time when verbose
func (p *Progress) Finish(what string) {
	Debug("%s in %s", what, time.Since(p.Start).Round(time.Millisecond))
}

func verbColor(verb string) string {
	switch verb {
	case "CC", "CXX":
		return color.HiCyanString("%-6s", verb)
	case "LINK", "AR":
		return color.HiMagentaString("%-6s", verb)
	default:
		return color.HiBlackString("%-6s", verb)
	}
}
