package display

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrinterStatusLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, nil)

	p.Header("Export")
	p.Success("wrote %d tables", 3)
	p.Info("profile %s", "full")
	p.Warning("low disk")
	p.Error("failed")

	assert.Equal(t, "Export\n======\n[OK] wrote 3 tables\n[i] profile full\n[!] low disk\n[X] failed\n", buf.String())
}

func TestPrinterQuietKeepsErrors(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, nil)
	p.SetQuiet(true)

	p.Header("Export")
	p.Success("done")
	p.KeyValue([][2]string{{"a", "b"}})
	p.List("Tables", []string{"users"})
	p.Println("plain")
	p.Error("boom")

	assert.Equal(t, "[X] boom\n", buf.String())
}

func TestPrinterKeyValueAligns(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, nil)

	p.KeyValue([][2]string{{"Profile", "full"}, {"Path", "./exports"}})

	assert.Equal(t, "  Profile: full\n  Path:    ./exports\n", buf.String())
}

func TestPrinterList(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, nil)

	p.List("Excluded", nil)
	p.List("Excluded", []string{"logs", "cache_*"})

	assert.Equal(t, "  Excluded:\n    - logs\n    - cache_*\n", buf.String())
}

func TestPrinterTable(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, nil)

	table := NewTable(p.Colors(), "A").SetMaxWidth(0)
	table.AddRow("b")
	p.Table(table)

	assert.Contains(t, buf.String(), "| b |")
}
