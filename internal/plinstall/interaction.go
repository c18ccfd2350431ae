package plinstall

import (
	"fmt"
	"strconv"
	"strings"
)

// Chooser is what the disambiguator needs from the user interface.
type Chooser interface {
	Confirmer
	// Select returns the 0-based index of the chosen option, or false when
	// the user cancelled.
	Select(title string, options []string) (int, bool)
}

// parseMenuChoice turns a menu answer into a 1-based number within [1, max].
func parseMenuChoice(input string, max int) (int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, fmt.Errorf("no selection")
	}
	n, err := strconv.Atoi(input)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", input)
	}
	if n <= 0 || n > max {
		return 0, fmt.Errorf("number out of range (1-%d): %d", max, n)
	}
	return n, nil
}

// Select shows a numbered menu of options followed by a Cancel entry and
// redisplays it until a valid number is entered.
func (p *Prompter) Select(title string, options []string) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cancel := len(options) + 1
	for {
		cFprintf(p.out, colArrow, "-> ")
		cFprintf(p.out, colNote, "%s\n", title)
		for i, opt := range options {
			fmt.Fprintf(p.out, "  %d) %s\n", i+1, opt)
		}
		fmt.Fprintf(p.out, "  %d) Cancel\n", cancel)
		cFprintf(p.out, colArrow, "-> ")
		fmt.Fprintf(p.out, "Select [1-%d]: ", cancel)

		input, err := p.readLine()
		if err != nil {
			fmt.Fprintln(p.out)
			return -1, false
		}
		n, err := parseMenuChoice(input, cancel)
		if err != nil {
			cFprintf(p.out, colError, "Error: %v\n", err)
			continue
		}
		if n == cancel {
			return -1, false
		}
		return n - 1, true
	}
}
