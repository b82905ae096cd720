package anonymize

import (
	"strings"
	"unicode"
)

// MaskStrategy hides characters behind a fill character.
type MaskStrategy struct{}

// NewMaskStrategy creates a mask strategy
func NewMaskStrategy() *MaskStrategy {
	return &MaskStrategy{}
}

func (s *MaskStrategy) Name() string { return StrategyMask }

func (s *MaskStrategy) Supports(rule Rule) bool { return rule.Strategy == StrategyMask }

// Apply masks value. NULL always stays NULL regardless of preserve_null.
func (s *MaskStrategy) Apply(value interface{}, rule Rule) (interface{}, error) {
	if value == nil {
		return nil, nil
	}

	str := toString(value)
	if str == "" {
		return "", nil
	}

	opts := rule.Mask
	if opts == nil {
		opts = &MaskOptions{Char: "*"}
	}
	char := opts.Char
	if char == "" {
		char = "*"
	}

	switch opts.Type {
	case MaskTypeEmail:
		return MaskEmail(str, char), nil
	case MaskTypePhone:
		keepLast := opts.KeepLast
		if keepLast == 0 {
			keepLast = 4
		}
		return MaskPhone(str, char, keepLast), nil
	}

	if opts.PreserveFormat {
		return MaskPreservingFormat(str, char), nil
	}
	return MaskWithEnds(str, char, opts.KeepFirst, opts.KeepLast), nil
}

// MaskWithEnds keeps the first keepFirst and last keepLast characters and
// replaces the rest. Values too short to mask are returned unchanged.
func MaskWithEnds(value, char string, keepFirst, keepLast int) string {
	runes := []rune(value)
	length := len(runes)
	if keepFirst+keepLast >= length {
		return value
	}

	var b strings.Builder
	b.WriteString(string(runes[:keepFirst]))
	b.WriteString(strings.Repeat(char, length-keepFirst-keepLast))
	b.WriteString(string(runes[length-keepLast:]))
	return b.String()
}

// MaskPreservingFormat replaces letters and digits and keeps every other
// character in place.
func MaskPreservingFormat(value, char string) string {
	var b strings.Builder
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteString(char)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MaskEmail masks the local part of an address, keeping its first character
// and the domain.
func MaskEmail(email, char string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return MaskWithEnds(email, char, 1, 1)
	}
	return MaskWithEnds(parts[0], char, 1, 0) + "@" + parts[1]
}

// MaskPhone masks the digits of a phone number except the last keepLast and
// keeps the original separators in place.
func MaskPhone(phone, char string, keepLast int) string {
	digitCount := 0
	for _, r := range phone {
		if isASCIIDigit(r) {
			digitCount++
		}
	}
	if digitCount == 0 || keepLast >= digitCount {
		return phone
	}

	fill := '*'
	if char != "" {
		fill = []rune(char)[0]
	}
	maskUpTo := digitCount - keepLast

	var b strings.Builder
	i := 0
	for _, r := range phone {
		if !isASCIIDigit(r) {
			b.WriteRune(r)
			continue
		}
		if i < maskUpTo {
			b.WriteRune(fill)
		} else {
			b.WriteRune(r)
		}
		i++
	}
	return b.String()
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
