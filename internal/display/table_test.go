package display

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func plainColors() *ColorSystem {
	return NewColorSystem(DarkColorTheme(), false)
}

func TestTableDefaultStyle(t *testing.T) {
	table := NewTable(plainColors(), "Profile", "Description").SetMaxWidth(0)
	table.AddRow("full", "Everything")
	table.AddRow("minimal", "Schema")

	expected := "" +
		"+---------+-------------+\n" +
		"| Profile | Description |\n" +
		"+---------+-------------+\n" +
		"| full    | Everything  |\n" +
		"| minimal | Schema      |\n" +
		"+---------+-------------+\n"
	assert.Equal(t, expected, table.String())
	assert.Equal(t, 2, table.Len())
}

func TestTableNoBorder(t *testing.T) {
	table := NewTable(plainColors(), "A", "B").SetStyle(TableStyleNoBorder).SetMaxWidth(0)
	table.AddRow("x")

	assert.Equal(t, "A  B\nx   \n", table.String())
}

func TestTableRounded(t *testing.T) {
	table := NewTable(plainColors(), "A").SetStyle(TableStyleRounded).SetMaxWidth(0)
	table.AddRow("b")

	out := table.String()
	assert.True(t, strings.HasPrefix(out, "╭───╮\n"))
	assert.Contains(t, out, "│ b │")
	assert.True(t, strings.HasSuffix(out, "╰───╯\n"))
}

func TestTableTruncatesToMaxWidth(t *testing.T) {
	table := NewTable(plainColors(), "Name", "Description").SetMaxWidth(30)
	table.AddRow("users", strings.Repeat("x", 40))

	for _, line := range strings.Split(strings.TrimSuffix(table.String(), "\n"), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), 30)
	}
	assert.Contains(t, table.String(), "...")
}

func TestTableWithoutHeaders(t *testing.T) {
	assert.Empty(t, NewTable(plainColors()).String())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	assert.Equal(t, "abc...", truncate("abcdefghij", 6))
}

func TestColorSystemDisabled(t *testing.T) {
	cs := plainColors()
	assert.False(t, cs.Enabled())
	assert.Equal(t, "text", cs.Colorize("text", ColorRed))
	assert.Equal(t, "n=3", cs.Sprintf(ColorGreen, "n=%d", 3))
}

func TestDetectColorSupportHonorsNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.False(t, DetectColorSupport())
}
