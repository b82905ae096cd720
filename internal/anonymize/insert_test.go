package anonymize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEscapeValue(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		expected string
	}{
		{"nil", nil, "NULL"},
		{"true", true, "1"},
		{"false", false, "0"},
		{"int", 42, "42"},
		{"int64", int64(-7), "-7"},
		{"uint8", uint8(3), "3"},
		{"float", 3.25, "3.25"},
		{"string", "plain", "'plain'"},
		{"bytes", []byte("raw"), "'raw'"},
		{"backslash", `a\b`, `'a\\b'`},
		{"nul", "a\x00b", `'a\0b'`},
		{"newlines", "a\nb\rc", `'a\nb\rc'`},
		{"quotes", `it's "x"`, `'it\'s \"x\"'`},
		{"ctrl-z", "a\x1ab", `'a\Zb'`},
		{"time", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "'2024-01-02 03:04:05'"},
		{"time with micros", time.Date(2024, 1, 2, 3, 4, 5, 120000000, time.UTC), "'2024-01-02 03:04:05.12'"},
		{"map", map[string]int{"a": 1}, `'{\"a\":1}'`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EscapeValue(tt.value))
		})
	}
}

func TestGenerateInsertStatement(t *testing.T) {
	assert.Equal(t, "", GenerateInsertStatement("users", Batch{Columns: []string{"id"}}))

	sql := GenerateInsertStatement("order items", Batch{
		Columns: []string{"id", "note"},
		Rows: [][]interface{}{
			{1, "first"},
			{2, "it's"},
		},
	})
	assert.Equal(t, "INSERT INTO `order items` (`id`, `note`) VALUES\n(1, 'first'),\n(2, 'it\\'s');", sql)
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, "`users`", QuoteIdentifier("users"))
	assert.Equal(t, "`we``ird`", QuoteIdentifier("we`ird"))
}
