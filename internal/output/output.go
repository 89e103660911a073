// Package output handles CLI output: plain and verbose messages, a live
// progress line and the JSON mode used by --json.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// defaultWidth is used when the terminal width cannot be read.
const defaultWidth = 80

// Config holds output configuration.
type Config struct {
	Verbose   bool      // Enable verbose output
	JSON      bool      // Emit machine-readable documents instead of text
	Writer    io.Writer // Output destination (default: os.Stdout)
	ErrWriter io.Writer // Error output destination (default: os.Stderr)
	IsTTY     bool      // Whether output is a terminal
}

// Output handles formatted output with verbose and progress support.
type Output struct {
	config Config

	progressMu     sync.Mutex
	progressActive bool
	progressLabel  string
	progressTotal  int
	progressWidth  int
}

// New creates a new Output instance with the given configuration.
func New(config Config) *Output {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}
	if config.ErrWriter == nil {
		config.ErrWriter = os.Stderr
	}
	return &Output{config: config}
}

// DefaultConfig returns a Config writing to stdout/stderr with TTY detection.
func DefaultConfig() Config {
	return Config{
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		IsTTY:     term.IsTerminal(int(os.Stdout.Fd())),
	}
}

// Verbose prints a message only when verbose mode is enabled.
func (o *Output) Verbose(format string, args ...interface{}) {
	if !o.config.Verbose || o.config.JSON {
		return
	}
	o.println(o.config.Writer, format, args...)
}

// Info prints an informational message. Suppressed in JSON mode so stdout
// stays a single document.
func (o *Output) Info(format string, args ...interface{}) {
	if o.config.JSON {
		return
	}
	o.println(o.config.Writer, format, args...)
}

// Error prints an error message to stderr.
func (o *Output) Error(format string, args ...interface{}) {
	o.println(o.config.ErrWriter, format, args...)
}

// JSON writes v as indented JSON to the output writer.
func (o *Output) JSON(v interface{}) error {
	enc := json.NewEncoder(o.config.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (o *Output) println(w io.Writer, format string, args ...interface{}) {
	o.clearProgressLine()
	msg := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	fmt.Fprint(w, msg)
}

func (o *Output) showProgress() bool {
	return o.config.IsTTY && !o.config.Verbose && !o.config.JSON
}

// clearProgressLine blanks the progress line if one is showing.
func (o *Output) clearProgressLine() {
	o.progressMu.Lock()
	defer o.progressMu.Unlock()
	if o.progressActive && o.config.IsTTY {
		fmt.Fprint(o.config.Writer, "\r"+strings.Repeat(" ", o.progressWidth)+"\r")
	}
}

// StartProgress begins a progress line such as "Analyzing train".
func (o *Output) StartProgress(label string, total int) {
	if !o.showProgress() {
		return
	}
	width := defaultWidth
	if f, ok := o.config.Writer.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			width = w
		}
	}

	o.progressMu.Lock()
	defer o.progressMu.Unlock()
	o.progressActive = true
	o.progressLabel = label
	o.progressTotal = total
	o.progressWidth = width - 1
}

// UpdateProgress redraws the progress line in place.
func (o *Output) UpdateProgress(current int) {
	if !o.showProgress() {
		return
	}
	o.progressMu.Lock()
	defer o.progressMu.Unlock()
	if !o.progressActive {
		return
	}
	fmt.Fprint(o.config.Writer, "\r"+progressLine(o.progressLabel, current, o.progressTotal, o.progressWidth))
}

// EndProgress clears the progress line.
func (o *Output) EndProgress() {
	if !o.showProgress() {
		return
	}
	o.progressMu.Lock()
	defer o.progressMu.Unlock()
	if !o.progressActive {
		return
	}
	o.progressActive = false
	fmt.Fprint(o.config.Writer, "\r"+strings.Repeat(" ", o.progressWidth)+"\r")
}

// progressLine renders "label [#####.....] current/total" fitted to width.
func progressLine(label string, current, total, width int) string {
	counter := fmt.Sprintf(" %d/%d", current, total)
	barWidth := width - len(label) - len(counter) - 3
	if barWidth < 10 || total <= 0 {
		line := label + counter
		if len(line) > width && width > 0 {
			line = line[:width]
		}
		return line
	}
	if barWidth > 40 {
		barWidth = 40
	}
	filled := barWidth * current / total
	if filled > barWidth {
		filled = barWidth
	}
	return fmt.Sprintf("%s [%s%s]%s", label,
		strings.Repeat("#", filled), strings.Repeat(".", barWidth-filled), counter)
}

// IsVerbose returns whether verbose mode is enabled.
func (o *Output) IsVerbose() bool {
	return o.config.Verbose
}

// IsJSON returns whether JSON mode is enabled.
func (o *Output) IsJSON() bool {
	return o.config.JSON
}

// IsTTY returns whether the output is a terminal.
func (o *Output) IsTTY() bool {
	return o.config.IsTTY
}
