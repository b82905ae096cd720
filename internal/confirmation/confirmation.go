// Package confirmation asks the user to approve destructive operations.
package confirmation

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"mysql-db-export/internal/display"
)

// Confirmer prompts for a yes/no answer
type Confirmer interface {
	Confirm(ctx context.Context, question string, details []string, autoApprove bool) (bool, error)
}

type confirmer struct {
	reader *bufio.Reader
	out    io.Writer
	colors *display.ColorSystem
}

// NewConfirmer creates a confirmer reading from in and writing to out.
// Nil values default to stdin and stdout.
func NewConfirmer(in io.Reader, out io.Writer, colors *display.ColorSystem) Confirmer {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	if colors == nil {
		colors = display.NewColorSystem(display.DarkColorTheme(), false)
	}
	return &confirmer{reader: bufio.NewReader(in), out: out, colors: colors}
}

// Confirm lists details, then asks question until the answer is yes or no.
// An empty answer is no. Cancelling ctx aborts the prompt with ctx.Err().
func (c *confirmer) Confirm(ctx context.Context, question string, details []string, autoApprove bool) (bool, error) {
	for _, line := range details {
		fmt.Fprintf(c.out, "  %s\n", line)
	}

	if autoApprove {
		fmt.Fprintln(c.out, c.colors.Colorize("Auto-approving...", c.colors.Theme().Success))
		return true, nil
	}

	for {
		input, err := c.prompt(ctx, question)
		if err != nil {
			return false, err
		}
		if answer, ok := parseAnswer(input); ok {
			return answer, nil
		}
		fmt.Fprintf(c.out, "Invalid input '%s'. Please enter 'y' for yes or 'n' for no.\n", input)
	}
}

func (c *confirmer) prompt(ctx context.Context, question string) (string, error) {
	fmt.Fprint(c.out, c.colors.Colorize(question+" [y/N]: ", c.colors.Theme().Warning))

	type result struct {
		input string
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		input, err := c.reader.ReadString('\n')
		if err == io.EOF && input != "" {
			err = nil
		}
		ch <- result{strings.TrimSpace(input), err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(c.out)
		fmt.Fprintln(c.out, c.colors.Colorize("Operation cancelled by user", c.colors.Theme().Warning))
		return "", ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return "", fmt.Errorf("failed to read input: %w", r.err)
		}
		return r.input, nil
	}
}

func parseAnswer(input string) (answer bool, valid bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true, true
	case "n", "no", "":
		return false, true
	default:
		return false, false
	}
}
