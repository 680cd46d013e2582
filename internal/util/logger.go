// Package util provides logging setup and small process helpers shared by the binaries.
package util

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/hashicorp/go-hclog"
)

var (
	mu   sync.Mutex
	root hclog.Logger = hclog.New(&hclog.LoggerOptions{
		Name:   "beaconbot",
		Level:  hclog.Info,
		Output: os.Stderr,
	})
)

// SetupLogger configures the root logger. Output goes to stderr plus any extra writers.
func SetupLogger(level string, writers ...io.Writer) hclog.Logger {
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		lvl = hclog.Info
	}
	out := io.Writer(os.Stderr)
	if len(writers) > 0 {
		out = io.MultiWriter(append([]io.Writer{os.Stderr}, writers...)...)
	}
	l := hclog.New(&hclog.LoggerOptions{
		Name:   "beaconbot",
		Level:  lvl,
		Output: out,
	})

	mu.Lock()
	root = l
	mu.Unlock()
	return l
}

// Logger returns a named child of the root logger.
func Logger(name string) hclog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return root.Named(name)
}

// Info prints general system information messages.
func Info(msg string, args ...any) {
	Logger("main").Info(fmt.Sprintf(msg, args...))
}

// Error prints error messages.
func Error(msg string, args ...any) {
	Logger("main").Error(fmt.Sprintf(msg, args...))
}
