// Package logger writes pipeline diagnostics to stderr. Debug lines and
// stage headers appear only with --verbose; warnings always appear.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose turns debug output on or off.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// SetOutput redirects all log lines. The default is os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func printf(always bool, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if always || verbose {
		fmt.Fprintf(output, format, args...)
	}
}

func Debug(format string, args ...any) {
	printf(false, "[DEBUG] "+format+"\n", args...)
}

func Warn(format string, args ...any) {
	printf(true, "[WARN] "+format+"\n", args...)
}

// Section opens a pipeline stage such as "ingest paper.pdf" or "ask".
func Section(name string) {
	printf(false, "\n=== %s ===\n", name)
}

// Timed logs how long a stage took at debug level.
//
//	defer logger.Timed("embed")()
func Timed(stage string) func() {
	start := time.Now()
	return func() {
		Debug("%s took %s", stage, time.Since(start).Round(time.Microsecond))
	}
}
