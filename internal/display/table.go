package display

import (
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

// TableStyle selects the border characters of a table
type TableStyle int

const (
	TableStyleDefault TableStyle = iota
	TableStyleRounded
	TableStyleNoBorder
)

type borderSet struct {
	horizontal, vertical               string
	topLeft, topRight, topMid          string
	midLeft, midRight, cross           string
	bottomLeft, bottomRight, bottomMid string
}

var borders = map[TableStyle]borderSet{
	TableStyleDefault: {
		horizontal: "-", vertical: "|",
		topLeft: "+", topRight: "+", topMid: "+",
		midLeft: "+", midRight: "+", cross: "+",
		bottomLeft: "+", bottomRight: "+", bottomMid: "+",
	},
	TableStyleRounded: {
		horizontal: "─", vertical: "│",
		topLeft: "╭", topRight: "╮", topMid: "┬",
		midLeft: "├", midRight: "┤", cross: "┼",
		bottomLeft: "╰", bottomRight: "╯", bottomMid: "┴",
	},
}

// Table collects rows and renders them with aligned columns
type Table struct {
	headers  []string
	rows     [][]string
	style    TableStyle
	maxWidth int
	colors   *ColorSystem
}

// NewTable creates a table with the given headers
func NewTable(colors *ColorSystem, headers ...string) *Table {
	return &Table{
		headers:  headers,
		style:    TableStyleDefault,
		maxWidth: TerminalWidth(),
		colors:   colors,
	}
}

// SetStyle sets the border style
func (t *Table) SetStyle(style TableStyle) *Table {
	t.style = style
	return t
}

// SetMaxWidth caps the rendered width; zero disables truncation
func (t *Table) SetMaxWidth(width int) *Table {
	t.maxWidth = width
	return t
}

// AddRow appends a row. Missing cells render empty.
func (t *Table) AddRow(cells ...string) *Table {
	t.rows = append(t.rows, cells)
	return t
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the table to w
func (t *Table) Render(w io.Writer) error {
	_, err := io.WriteString(w, t.String())
	return err
}

// String renders the table
func (t *Table) String() string {
	if len(t.headers) == 0 {
		return ""
	}
	widths := t.columnWidths()

	var sb strings.Builder
	if t.style == TableStyleNoBorder {
		t.writeRow(&sb, t.headers, widths, true, "", "  ")
		for _, row := range t.rows {
			t.writeRow(&sb, row, widths, false, "", "  ")
		}
		return sb.String()
	}

	b := borders[t.style]
	sb.WriteString(separator(widths, b.horizontal, b.topLeft, b.topMid, b.topRight))
	t.writeRow(&sb, t.headers, widths, true, b.vertical, " "+b.vertical+" ")
	sb.WriteString(separator(widths, b.horizontal, b.midLeft, b.cross, b.midRight))
	for _, row := range t.rows {
		t.writeRow(&sb, row, widths, false, b.vertical, " "+b.vertical+" ")
	}
	sb.WriteString(separator(widths, b.horizontal, b.bottomLeft, b.bottomMid, b.bottomRight))
	return sb.String()
}

func (t *Table) columnWidths() []int {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i := range widths {
			if i < len(row) {
				if n := utf8.RuneCountInString(row[i]); n > widths[i] {
					widths[i] = n
				}
			}
		}
	}

	if t.maxWidth <= 0 {
		return widths
	}
	// shrink the widest column until the table fits
	overhead := 3*len(widths) + 1
	for total(widths)+overhead > t.maxWidth {
		widest := 0
		for i, w := range widths {
			if w > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= 8 {
			break
		}
		widths[widest]--
	}
	return widths
}

func (t *Table) writeRow(sb *strings.Builder, cells []string, widths []int, header bool, edge, sep string) {
	if edge != "" {
		sb.WriteString(edge + " ")
	}
	for i, width := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		cell = pad(truncate(cell, width), width)
		if header && t.colors != nil {
			cell = t.colors.Colorize(cell, t.colors.Theme().Primary)
		}
		sb.WriteString(cell)
		if i < len(widths)-1 {
			sb.WriteString(sep)
		}
	}
	if edge != "" {
		sb.WriteString(" " + edge)
	}
	sb.WriteString("\n")
}

func separator(widths []int, horizontal, left, mid, right string) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strings.Repeat(horizontal, w+2)
	}
	return left + strings.Join(parts, mid) + right + "\n"
}

func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	if width <= 3 {
		return string([]rune(s)[:width])
	}
	return string([]rune(s)[:width-3]) + "..."
}

func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func total(widths []int) int {
	sum := 0
	for _, w := range widths {
		sum += w
	}
	return sum
}

// TerminalWidth returns the stdout width, or 0 when it is not a terminal
func TerminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return width
}
