package confirmation

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
)

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		input  string
		answer bool
		valid  bool
	}{
		{"y", true, true},
		{"YES", true, true},
		{" yes ", true, true},
		{"n", false, true},
		{"No", false, true},
		{"", false, true},
		{"maybe", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			answer, valid := parseAnswer(tt.input)
			if answer != tt.answer || valid != tt.valid {
				t.Errorf("parseAnswer(%q) = (%v, %v), want (%v, %v)", tt.input, answer, valid, tt.answer, tt.valid)
			}
		})
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"yes", "y\n", true},
		{"no", "n\n", false},
		{"empty answer", "\n", false},
		{"retry after invalid input", "what\nyes\n", true},
		{"answer without newline", "y", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			c := NewConfirmer(strings.NewReader(tt.input), &out, nil)

			got, err := c.Confirm(context.Background(), "Delete 2 files?", []string{"a.sql", "b.sql.gz"}, false)
			if err != nil {
				t.Fatalf("Confirm() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Confirm() = %v, want %v", got, tt.want)
			}
			if !strings.Contains(out.String(), "  a.sql\n  b.sql.gz\n") {
				t.Errorf("details not listed: %q", out.String())
			}
			if !strings.Contains(out.String(), "Delete 2 files? [y/N]: ") {
				t.Errorf("question not shown: %q", out.String())
			}
		})
	}
}

func TestConfirmInvalidInputIsReported(t *testing.T) {
	var out bytes.Buffer
	c := NewConfirmer(strings.NewReader("what\nn\n"), &out, nil)

	if _, err := c.Confirm(context.Background(), "Continue?", nil, false); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if !strings.Contains(out.String(), "Invalid input 'what'") {
		t.Errorf("expected invalid input message, got %q", out.String())
	}
}

func TestConfirmAutoApprove(t *testing.T) {
	var out bytes.Buffer
	c := NewConfirmer(strings.NewReader(""), &out, nil)

	got, err := c.Confirm(context.Background(), "Continue?", nil, true)
	if err != nil || !got {
		t.Fatalf("Confirm() = (%v, %v), want (true, nil)", got, err)
	}
	if strings.Contains(out.String(), "[y/N]") {
		t.Errorf("auto approve must not prompt: %q", out.String())
	}
}

func TestConfirmEndOfInput(t *testing.T) {
	c := NewConfirmer(strings.NewReader(""), io.Discard, nil)

	if _, err := c.Confirm(context.Background(), "Continue?", nil, false); err == nil {
		t.Error("expected error when input is closed")
	}
}

func TestConfirmCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	c := NewConfirmer(pr, &out, nil)
	_, err := c.Confirm(ctx, "Continue?", nil, false)
	if err != context.Canceled {
		t.Fatalf("Confirm() error = %v, want context.Canceled", err)
	}
	if !strings.Contains(out.String(), "Operation cancelled by user") {
		t.Errorf("expected cancellation message, got %q", out.String())
	}
}
