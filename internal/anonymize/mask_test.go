package anonymize

import (
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	apperrors "mysql-db-export/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func maskRule(t *testing.T, raw map[string]interface{}) Rule {
	t.Helper()
	raw["strategy"] = StrategyMask
	rule, err := ParseRule(raw)
	require.NoError(t, err)
	return rule
}

func TestMaskWithEnds(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		keepFirst int
		keepLast  int
		expected  string
	}{
		{"keep both ends", "secret123", 2, 2, "se*****23"},
		{"mask everything", "secret", 0, 0, "******"},
		{"keep last only", "4111111111111111", 0, 4, "************1111"},
		{"window covers value", "abc", 2, 1, "abc"},
		{"window exceeds value", "ab", 5, 5, "ab"},
		{"multibyte runes", "héllo wörld", 1, 1, "h*********d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskWithEnds(tt.value, "*", tt.keepFirst, tt.keepLast))
		})
	}
}

func TestMaskWithEndsProperties(t *testing.T) {
	values := []string{"a", "hello", "password123", "ünïcödé-strïng", "x y z"}

	for _, v := range values {
		runes := []rune(v)
		for a := 0; a <= 3; a++ {
			for b := 0; b <= 3; b++ {
				got := []rune(MaskWithEnds(v, "#", a, b))
				if a+b >= len(runes) {
					assert.Equal(t, v, string(got))
					continue
				}
				require.Len(t, got, len(runes))
				assert.Equal(t, string(runes[:a]), string(got[:a]))
				assert.Equal(t, string(runes[len(runes)-b:]), string(got[len(got)-b:]))
				for _, r := range got[a : len(got)-b] {
					assert.Equal(t, '#', r)
				}
			}
		}
	}
}

func TestMaskPreservingFormat(t *testing.T) {
	tests := []struct {
		value    string
		expected string
	}{
		{"123-45-6789", "***-**-****"},
		{"AB12 CD34", "**** ****"},
		{"(555) 010.9999", "(***) ***.****"},
		{"--", "--"},
	}

	for _, tt := range tests {
		got := MaskPreservingFormat(tt.value, "*")
		assert.Equal(t, tt.expected, got)
		assert.Equal(t, len([]rune(tt.value)), len([]rune(got)))
		for i, r := range []rune(tt.value) {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				assert.Equal(t, r, []rune(got)[i])
			}
		}
	}
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "j*******@example.com", MaskEmail("john.doe@example.com", "*"))
	assert.Equal(t, "a@example.com", MaskEmail("a@example.com", "*"))
	assert.Equal(t, "i*****d", MaskEmail("invalid", "*"))
	assert.Equal(t, "a*****z", MaskEmail("a@b@c@z", "*"))
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "+* (***) ***-4567", MaskPhone("+1 (555) 123-4567", "*", 4))
	assert.Equal(t, "******7890", MaskPhone("1234567890", "*", 4))
	assert.Equal(t, "no digits", MaskPhone("no digits", "*", 4))
	assert.Equal(t, "12-34", MaskPhone("12-34", "*", 4))
}

func TestMaskStrategyApply(t *testing.T) {
	s := NewMaskStrategy()

	t.Run("null stays null even without preserve_null", func(t *testing.T) {
		rule := maskRule(t, map[string]interface{}{"preserve_null": false})
		got, err := s.Apply(nil, rule)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("empty string", func(t *testing.T) {
		got, err := s.Apply("", maskRule(t, map[string]interface{}{}))
		require.NoError(t, err)
		assert.Equal(t, "", got)
	})

	t.Run("keep ends from options", func(t *testing.T) {
		rule := maskRule(t, map[string]interface{}{"keep_first": 2, "keep_last": 2, "char": "x"})
		got, err := s.Apply("secret123", rule)
		require.NoError(t, err)
		assert.Equal(t, "sexxxxx23", got)
	})

	t.Run("non-string values are encoded first", func(t *testing.T) {
		rule := maskRule(t, map[string]interface{}{"keep_last": 2})
		got, err := s.Apply(12345, rule)
		require.NoError(t, err)
		assert.Equal(t, "***45", got)
	})

	t.Run("byte slices from the driver", func(t *testing.T) {
		rule := maskRule(t, map[string]interface{}{"preserve_format": true})
		got, err := s.Apply([]byte("AB-12"), rule)
		require.NoError(t, err)
		assert.Equal(t, "**-**", got)
	})

	t.Run("email type", func(t *testing.T) {
		got, err := s.Apply("jane@corp.io", maskRule(t, map[string]interface{}{"type": "email"}))
		require.NoError(t, err)
		assert.Equal(t, "j***@corp.io", got)
	})

	t.Run("phone type defaults to last four", func(t *testing.T) {
		got, err := s.Apply("555-123-4567", maskRule(t, map[string]interface{}{"type": "phone"}))
		require.NoError(t, err)
		assert.Equal(t, "***-***-4567", got)
	})

	assert.True(t, strings.EqualFold(s.Name(), "mask"))
	assert.True(t, s.Supports(Rule{Strategy: StrategyMask}))
	assert.False(t, s.Supports(Rule{Strategy: StrategyHash}))
}

func TestMaskCharIsOneCharacter(t *testing.T) {
	for _, char := range []string{"##", "ab", "**"} {
		_, err := ParseRule(map[string]interface{}{"strategy": StrategyMask, "char": char, "keep_first": 2, "keep_last": 2})
		require.Error(t, err, "char %q", char)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))
	}

	rule := maskRule(t, map[string]interface{}{"char": "•", "keep_first": 2, "keep_last": 2})
	got, err := NewMaskStrategy().Apply("secret123", rule)
	require.NoError(t, err)
	assert.Equal(t, "se•••••23", got)
	assert.Equal(t, 9, utf8.RuneCountInString(got.(string)))
}
