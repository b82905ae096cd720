package anonymize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var sqlEscaper = strings.NewReplacer(
	`\`, `\\`,
	"\x00", `\0`,
	"\n", `\n`,
	"\r", `\r`,
	"'", `\'`,
	`"`, `\"`,
	"\x1a", `\Z`,
)

// GenerateInsertStatement renders one multi-row INSERT for the batch. An
// empty batch yields an empty string.
func GenerateInsertStatement(table string, batch Batch) string {
	if len(batch.Rows) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(QuoteIdentifier(table))
	b.WriteString(" (")
	for i, column := range batch.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(QuoteIdentifier(column))
	}
	b.WriteString(") VALUES\n")

	for i, row := range batch.Rows {
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteByte('(')
		for j, value := range row {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(EscapeValue(value))
		}
		b.WriteByte(')')
	}
	b.WriteByte(';')
	return b.String()
}

// QuoteIdentifier wraps a table or column name in backticks.
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// EscapeValue renders a Go value as a MySQL literal.
func EscapeValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case bool:
		if v {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(v)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return quote(v)
	case []byte:
		return quote(string(v))
	case time.Time:
		return quote(formatTime(v))
	default:
		return quote(toString(v))
	}
}

func quote(s string) string {
	return "'" + sqlEscaper.Replace(s) + "'"
}

func formatTime(t time.Time) string {
	if t.Nanosecond() == 0 {
		return t.Format("2006-01-02 15:04:05")
	}
	return t.Format("2006-01-02 15:04:05.999999")
}

// toString converts a column value to text; non-string values are JSON encoded.
func toString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return formatTime(v)
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(encoded)
}
