// Package logging sets up the global zerolog logger used across yoloset.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the name of the rotating log file inside the log directory.
const FileName = "yoloset.log"

// Options controls Init.
type Options struct {
	Verbose bool
	// Directory for the rotating log file. Empty falls back to
	// YOLOSET_LOGS_FOLDER, then to "logs" next to the executable.
	Directory string
	// Console defaults to os.Stderr. Other writers are serialized, so they
	// need not be safe for concurrent use.
	Console io.Writer
}

// Init initializes the global logger with dual sinks: the console and a
// rotating file. The returned closer flushes the file sink.
func Init(opts Options) (io.Closer, error) {
	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	console := opts.Console
	noColor := true
	switch console {
	case nil, io.Writer(os.Stderr):
		console = os.Stderr
		noColor = !(isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()))
	default:
		// Per-split goroutines log concurrently.
		console = zerolog.SyncWriter(console)
	}
	consoleWriter := zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: time.RFC3339,
		NoColor:    noColor,
	}

	logDir := ResolveDirectory(opts.Directory)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %q: %w", logDir, err)
	}

	testFile := filepath.Join(logDir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
		return nil, fmt.Errorf("log directory %q is not writable: %w", logDir, err)
	}
	_ = os.Remove(testFile)

	fileWriter := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, FileName),
		MaxSize:    16, // megabytes
		MaxBackups: 32,
		MaxAge:     365, // days
		Compress:   true,
	}

	multi := zerolog.MultiLevelWriter(io.Writer(consoleWriter), fileWriter)

	log.Logger = zerolog.New(multi).
		With().
		Timestamp().
		Logger()
	return fileWriter, nil
}

// ResolveDirectory picks the log directory: explicit value, then
// YOLOSET_LOGS_FOLDER, then "logs" beside the binary.
func ResolveDirectory(dir string) string {
	if dir != "" {
		return dir
	}
	if env := os.Getenv("YOLOSET_LOGS_FOLDER"); env != "" {
		return env
	}
	if exePath, err := os.Executable(); err == nil {
		return filepath.Join(filepath.Dir(exePath), "logs")
	}
	return "logs"
}
