package display

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Printer writes human oriented command output
type Printer struct {
	out    io.Writer
	colors *ColorSystem
	quiet  bool
}

// NewPrinter creates a printer writing to out. A nil writer means stdout.
func NewPrinter(out io.Writer, colors *ColorSystem) *Printer {
	if out == nil {
		out = os.Stdout
	}
	if colors == nil {
		colors = NewColorSystem(DarkColorTheme(), false)
	}
	return &Printer{out: out, colors: colors}
}

// SetQuiet suppresses everything except errors
func (p *Printer) SetQuiet(quiet bool) {
	p.quiet = quiet
}

// Colors returns the color system
func (p *Printer) Colors() *ColorSystem {
	return p.colors
}

// Header prints a section title followed by an underline
func (p *Printer) Header(title string) {
	if p.quiet {
		return
	}
	theme := p.colors.Theme()
	fmt.Fprintln(p.out, p.colors.Colorize(title, theme.Primary))
	fmt.Fprintln(p.out, p.colors.Colorize(strings.Repeat("=", len(title)), theme.Muted))
}

// Success prints a success line
func (p *Printer) Success(format string, args ...interface{}) {
	p.status("[OK]", p.colors.Theme().Success, format, args...)
}

// Info prints an informational line
func (p *Printer) Info(format string, args ...interface{}) {
	p.status("[i]", p.colors.Theme().Info, format, args...)
}

// Warning prints a warning line
func (p *Printer) Warning(format string, args ...interface{}) {
	p.status("[!]", p.colors.Theme().Warning, format, args...)
}

// Error prints an error line. Errors are printed even in quiet mode.
func (p *Printer) Error(format string, args ...interface{}) {
	prefix := p.colors.Colorize("[X]", p.colors.Theme().Error)
	fmt.Fprintf(p.out, "%s %s\n", prefix, fmt.Sprintf(format, args...))
}

func (p *Printer) status(marker string, clr Color, format string, args ...interface{}) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", p.colors.Colorize(marker, clr), fmt.Sprintf(format, args...))
}

// KeyValue prints an aligned key/value block
func (p *Printer) KeyValue(pairs [][2]string) {
	if p.quiet {
		return
	}
	width := 0
	for _, kv := range pairs {
		if len(kv[0]) > width {
			width = len(kv[0])
		}
	}
	for _, kv := range pairs {
		key := fmt.Sprintf("%-*s", width+1, kv[0]+":")
		fmt.Fprintf(p.out, "  %s %s\n", p.colors.Colorize(key, p.colors.Theme().Muted), kv[1])
	}
}

// List prints a titled bullet list, skipping empty lists
func (p *Printer) List(title string, items []string) {
	if p.quiet || len(items) == 0 {
		return
	}
	fmt.Fprintf(p.out, "  %s:\n", title)
	for _, item := range items {
		fmt.Fprintf(p.out, "    - %s\n", item)
	}
}

// Table renders a table
func (p *Printer) Table(t *Table) {
	if p.quiet {
		return
	}
	_ = t.Render(p.out)
}

// Println prints a plain line
func (p *Printer) Println(a ...interface{}) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out, a...)
}
