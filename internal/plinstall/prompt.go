package plinstall

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Confirmer asks yes/no questions.
type Confirmer interface {
	Confirm(defaultYes bool, format string, a ...any) bool
}

// Prompter reads answers from a line-oriented input stream. It blocks until
// a valid answer arrives; end of input counts as "no" (or "cancel").
type Prompter struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// readLine returns the trimmed next line. A final line without newline is
// still returned; io.EOF is reported only when nothing was read.
func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Confirm prints the question with a [Y/n] or [y/N] hint and loops until
// it gets an answer. An empty answer selects the default.
func (p *Prompter) Confirm(defaultYes bool, format string, a ...any) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	hint := "[y/N]"
	if defaultYes {
		hint = "[Y/n]"
	}
	prompt := fmt.Sprintf("%s %s: ", fmt.Sprintf(format, a...), hint)

	for {
		cFprintf(p.out, colArrow, "-> ")
		cFprintf(p.out, nil, "%s", prompt)
		response, err := p.readLine()
		if err != nil {
			fmt.Fprintln(p.out)
			return false
		}
		switch strings.ToLower(response) {
		case "":
			return defaultYes
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
		cFprintf(p.out, colWarn, "Invalid input.\n")
	}
}
