// Package logger provides the process-wide structured logger used across
// llmbridge: one zerolog.Logger, configured once, writing through a
// non-blocking async sink so a slow console or disk write never stalls a
// goroutine mid-stream.
package logger

import (
	"io"
	"os"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// asyncWriter wraps an io.Writer and performs writes in a background
// goroutine so a logging call inside a Provider.Stream loop never blocks
// on a slow console or file descriptor.
type asyncWriter struct {
	ch     chan []byte
	writer io.Writer
}

func newAsyncWriter(w io.Writer, bufSize int) *asyncWriter {
	aw := &asyncWriter{
		ch:     make(chan []byte, bufSize),
		writer: w,
	}
	go aw.drain()
	return aw
}

func (aw *asyncWriter) drain() {
	for p := range aw.ch {
		aw.writer.Write(p) //nolint:errcheck
	}
}

func (aw *asyncWriter) Write(p []byte) (int, error) {
	buf := make([]byte, len(p))
	copy(buf, p)
	select {
	case aw.ch <- buf:
	default:
		// drop the log entry if the buffer is full rather than blocking
	}
	return len(p), nil
}

var once sync.Once
var log zerolog.Logger

// GetLogLevel reads LLMBRIDGE_LOG_LEVEL (a zerolog.Level integer),
// defaulting to Info when unset or unparseable.
func GetLogLevel() zerolog.Level {
	logLevel, err := strconv.Atoi(os.Getenv("LLMBRIDGE_LOG_LEVEL"))
	if err != nil {
		logLevel = int(zerolog.InfoLevel)
	}
	return zerolog.Level(logLevel)
}

// Get returns the singleton process logger, initializing it on first use.
func Get() zerolog.Logger {
	once.Do(func() {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.TimeFieldFormat = time.RFC3339Nano

		consoleWriter := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}

		var syncOutput io.Writer = consoleWriter
		if path := os.Getenv("LLMBRIDGE_LOG_FILE"); path != "" {
			if f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
				syncOutput = zerolog.MultiLevelWriter(consoleWriter, f)
			}
		}

		output := newAsyncWriter(syncOutput, 1024)

		var gitRevision string
		var goVersion string
		if buildInfo, ok := debug.ReadBuildInfo(); ok {
			goVersion = buildInfo.GoVersion
			for _, v := range buildInfo.Settings {
				if v.Key == "vcs.revision" {
					gitRevision = v.Value
					break
				}
			}
		}

		log = zerolog.New(output).
			Level(GetLogLevel()).
			With().
			Timestamp().
			Str("git_revision", gitRevision).
			Str("go_version", goVersion).
			Logger()
	})

	return log
}
