// Package prompt asks the user to confirm destructive steps: executing a
// rebalance plan and undoing one.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// IsInteractive reports whether stdin is a terminal. Piped or redirected
// input is never prompted.
func IsInteractive() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Answer is the user's reply to a question.
type Answer int

const (
	// AnswerYes accepts.
	AnswerYes Answer = iota
	// AnswerNo declines.
	AnswerNo
	// AnswerQuit is returned on EOF or an explicit quit.
	AnswerQuit
)

func (a Answer) String() string {
	switch a {
	case AnswerYes:
		return "yes"
	case AnswerNo:
		return "no"
	default:
		return "quit"
	}
}

// Prompter reads answers from reader and writes questions to writer.
type Prompter struct {
	scanner *bufio.Scanner
	writer  io.Writer
}

// New creates a Prompter. Use os.Stdin and os.Stderr for normal operation,
// or buffers for testing.
func New(reader io.Reader, writer io.Writer) *Prompter {
	return &Prompter{
		scanner: bufio.NewScanner(reader),
		writer:  writer,
	}
}

// Ask prints question followed by the options and reads one line.
// Unrecognized input is treated as no.
func (p *Prompter) Ask(question string) (Answer, error) {
	fmt.Fprintf(p.writer, "%s (y)es, (n)o, (q)uit: ", question)

	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return AnswerQuit, fmt.Errorf("error reading input: %w", err)
		}
		fmt.Fprintln(p.writer)
		return AnswerQuit, nil
	}

	input := strings.TrimSpace(strings.ToLower(p.scanner.Text()))
	switch input {
	case "y", "yes":
		return AnswerYes, nil
	case "n", "no", "":
		return AnswerNo, nil
	case "q", "quit":
		return AnswerQuit, nil
	default:
		fmt.Fprintf(p.writer, "Invalid input '%s', treating as no.\n", input)
		return AnswerNo, nil
	}
}

// Confirm is Ask reduced to a yes/no decision.
func (p *Prompter) Confirm(question string) (bool, error) {
	answer, err := p.Ask(question)
	return answer == AnswerYes, err
}

// ConfirmExecute asks before moving n images.
func (p *Prompter) ConfirmExecute(n int) (bool, error) {
	return p.Confirm(fmt.Sprintf("Move %d image(s) now?", n))
}

// OfferUndo asks whether to revert the moves that just completed. The
// offer is made once; declining discards the undo record.
func (p *Prompter) OfferUndo(moved int) (bool, error) {
	return p.Confirm(fmt.Sprintf("Undo the %d move(s) just made?", moved))
}
