package msg

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/fatih/color"
)

var (
	mu      sync.Mutex
	out     io.Writer = os.Stdout
	verbose atomic.Bool
)

// SetVerbose toggles Debug output
func SetVerbose(v bool) { verbose.Store(v) }

// Verbose reports whether Debug output is enabled
func Verbose() bool { return verbose.Load() }

// SetOutput redirects all messages, returning the previous writer
func SetOutput(w io.Writer) io.Writer {
	mu.Lock()
	defer mu.Unlock()
	prev := out
	out = w
	return prev
}

// writeLine writes one whole line so that messages from concurrent workers don't interleave
func writeLine(prefix, format string, a ...any) {
	line := prefix + ": " + fmt.Sprintf(format, a...) + "\n"
	mu.Lock()
	io.WriteString(out, line)
	mu.Unlock()
}

func Error(format string, a ...any) {
	writeLine(color.HiRedString("error"), format, a...)
}

func Warn(format string, a ...any) {
	writeLine(color.YellowString("warn"), format, a...)
}

func Fatal(format string, a ...any) {
	writeLine(color.RedString("fatal"), format, a...)
	os.Exit(1)
}

func Info(format string, a ...any) {
	writeLine(color.HiGreenString("info"), format, a...)
}

func Debug(format string, a ...any) {
	if !verbose.Load() {
		return
	}
	writeLine(color.HiBlackString("debug"), format, a...)
}
