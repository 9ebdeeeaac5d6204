// Package logging holds the process-wide zerolog logger.
//
// Call Init once from main; Get anywhere after that. If Get runs before
// Init it sets up a JSON logger at info level so library code never has
// to care about ordering.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the logger at startup.
type Options struct {
	// Level is one of trace, debug, info, warn, error. Unrecognised or
	// empty values fall back to info.
	Level string
	// Pretty switches to the human console writer. Keep false in
	// production so output stays line-delimited JSON.
	Pretty bool
	// Output defaults to os.Stdout.
	Output io.Writer
}

var (
	mu       sync.Mutex
	instance zerolog.Logger
	ready    bool
)

// Init builds the shared logger. The first call wins; later calls return
// the existing instance unchanged.
func Init(opts Options) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if ready {
		return instance
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	lvl := ParseLevel(opts.Level)
	instance = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	ready = true
	return instance
}

// Get returns the shared logger, initialising defaults if needed.
func Get() zerolog.Logger {
	mu.Lock()
	ok := ready
	l := instance
	mu.Unlock()
	if ok {
		return l
	}
	return Init(Options{})
}

// ParseLevel maps a config string onto a zerolog level, defaulting to
// info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
